package receiver

import (
	"fmt"
	"time"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/fec"
)

// Config carries every parameter of a receiver pipeline. Validation
// happens once at construction; an invalid combination fails
// NewReceiver rather than surfacing at runtime.
type Config struct {
	// OutputSpec is the format of the frames the consumer reads.
	OutputSpec audio.SampleSpec

	// PacketSpec is the on-the-wire format. The sample rate must match
	// OutputSpec; the channel masks may differ within the remapper's
	// supported pairs (identity, mono up, down to mono).
	PacketSpec audio.SampleSpec

	// PacketLength is the fixed audio duration of one source packet,
	// matching the sender's configuration.
	PacketLength time.Duration

	// TargetLatency is the buffered duration a session converges to.
	// Playback within a session starts once this much audio is
	// buffered; the reorder window is derived from it.
	TargetLatency time.Duration

	// NoPlaybackTimeout terminates a session after this much
	// continuous silence with no packet-driven progress.
	NoPlaybackTimeout time.Duration

	// FECScheme selects the erasure coding scheme; it must match the
	// sender's. SchemeNone expects an unprotected stream.
	FECScheme fec.Scheme

	// FECBlock is the coding block shape. Ignored when FECScheme is
	// SchemeNone.
	FECBlock fec.BlockParams

	// NewPayloadDecoder builds the payload decoder of one session. Nil
	// selects lossless little-endian float32 PCM.
	NewPayloadDecoder func() audio.PayloadDecoder
}

// Validate checks the configuration.
//
// Returns:
//   - error: ErrInvalidConfig (wrapped with detail) on any invalid
//     combination, nil otherwise
func (c *Config) Validate() error {
	if err := c.OutputSpec.Validate(); err != nil {
		return fmt.Errorf("%w: output spec: %v", ErrInvalidConfig, err)
	}
	if err := c.PacketSpec.Validate(); err != nil {
		return fmt.Errorf("%w: packet spec: %v", ErrInvalidConfig, err)
	}
	if c.OutputSpec.SampleRate != c.PacketSpec.SampleRate {
		return fmt.Errorf("%w: output rate %d != packet rate %d",
			ErrInvalidConfig, c.OutputSpec.SampleRate, c.PacketSpec.SampleRate)
	}
	if !audio.CanRemap(c.PacketSpec.Channels, c.OutputSpec.Channels) {
		return fmt.Errorf("%w: cannot remap %s to %s",
			ErrInvalidConfig, c.PacketSpec.Channels, c.OutputSpec.Channels)
	}
	if c.PacketLength <= 0 {
		return fmt.Errorf("%w: zero packet length", ErrInvalidConfig)
	}
	if c.PacketSpec.FramesFor(c.PacketLength) == 0 {
		return fmt.Errorf("%w: packet length %v shorter than one frame at %d Hz",
			ErrInvalidConfig, c.PacketLength, c.PacketSpec.SampleRate)
	}
	if c.TargetLatency <= 0 {
		return fmt.Errorf("%w: zero target latency", ErrInvalidConfig)
	}
	if c.NoPlaybackTimeout <= 0 {
		return fmt.Errorf("%w: zero no-playback timeout", ErrInvalidConfig)
	}
	if c.FECScheme != fec.SchemeNone {
		if err := c.FECBlock.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// payloadDecoder builds one session's payload decoder.
func (c *Config) payloadDecoder() audio.PayloadDecoder {
	if c.NewPayloadDecoder != nil {
		return c.NewPayloadDecoder()
	}
	return audio.PCMFloat32{}
}

// packetFrames returns the per-channel frames of one packet.
func (c *Config) packetFrames() int {
	return c.PacketSpec.FramesFor(c.PacketLength)
}

// targetPackets returns the target latency expressed in source
// packets, at least one.
func (c *Config) targetPackets() uint64 {
	pkts := uint64(c.PacketSpec.FramesFor(c.TargetLatency) / c.packetFrames())
	if pkts == 0 {
		pkts = 1
	}
	return pkts
}
