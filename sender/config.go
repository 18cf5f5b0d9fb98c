package sender

import (
	"fmt"
	"time"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/fec"
)

// Config carries every parameter of a sender pipeline. Validation
// happens once at construction; an invalid combination fails NewSender
// rather than surfacing at runtime.
type Config struct {
	// InputSpec is the format of the frames the application feeds in.
	InputSpec audio.SampleSpec

	// PacketSpec is the on-the-wire format. The sample rate must match
	// InputSpec; the channel masks may differ within the remapper's
	// supported pairs (identity, mono up, down to mono).
	PacketSpec audio.SampleSpec

	// PacketLength is the fixed audio duration of one source packet.
	PacketLength time.Duration

	// FECScheme selects the erasure coding scheme. SchemeNone disables
	// protection.
	FECScheme fec.Scheme

	// FECBlock is the coding block shape. Ignored when FECScheme is
	// SchemeNone.
	FECBlock fec.BlockParams

	// Interleaving reorders packet transmission with a stride
	// permutation to spread each coding block across more real-world
	// transmission time.
	Interleaving bool

	// NewPayloadEncoder builds the payload encoder of one slot. Nil
	// selects lossless little-endian float32 PCM.
	NewPayloadEncoder func() audio.PayloadEncoder
}

// Validate checks the configuration.
//
// Returns:
//   - error: ErrInvalidConfig (wrapped with detail) on any invalid
//     combination, nil otherwise
func (c *Config) Validate() error {
	if err := c.InputSpec.Validate(); err != nil {
		return fmt.Errorf("%w: input spec: %v", ErrInvalidConfig, err)
	}
	if err := c.PacketSpec.Validate(); err != nil {
		return fmt.Errorf("%w: packet spec: %v", ErrInvalidConfig, err)
	}
	if c.InputSpec.SampleRate != c.PacketSpec.SampleRate {
		return fmt.Errorf("%w: input rate %d != packet rate %d",
			ErrInvalidConfig, c.InputSpec.SampleRate, c.PacketSpec.SampleRate)
	}
	if !audio.CanRemap(c.InputSpec.Channels, c.PacketSpec.Channels) {
		return fmt.Errorf("%w: cannot remap %s to %s",
			ErrInvalidConfig, c.InputSpec.Channels, c.PacketSpec.Channels)
	}
	if c.PacketLength <= 0 {
		return fmt.Errorf("%w: zero packet length", ErrInvalidConfig)
	}
	if c.PacketSpec.FramesFor(c.PacketLength) == 0 {
		return fmt.Errorf("%w: packet length %v shorter than one frame at %d Hz",
			ErrInvalidConfig, c.PacketLength, c.PacketSpec.SampleRate)
	}
	if c.FECScheme != fec.SchemeNone {
		if err := c.FECBlock.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// payloadEncoder builds one slot's payload encoder.
func (c *Config) payloadEncoder() audio.PayloadEncoder {
	if c.NewPayloadEncoder != nil {
		return c.NewPayloadEncoder()
	}
	return audio.PCMFloat32{}
}
