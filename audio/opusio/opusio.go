// Package opusio provides an Opus payload codec for the packet
// pipeline, as a lossy alternative to raw float32 PCM payloads.
//
// Opus constrains the stream shape: the sample rate must be one Opus
// supports (8, 12, 16, 24, or 48 kHz) and the per-packet frame count
// must be a valid Opus frame size for that rate (2.5 to 60 ms). The
// codec is stateful across packets on both sides, so each sender slot
// and each receiver session needs its own instance, which is what the
// pipeline's factory hooks provide.
package opusio

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"layeh.com/gopus"

	"github.com/opd-ai/fecstream/audio"
)

// maxPayloadBytes bounds one encoded packet. Opus never comes close at
// streaming bitrates; the bound only sizes the encoder's output buffer.
const maxPayloadBytes = 4000

// Encoder encodes float32 frames into Opus packet payloads. It
// implements audio.PayloadEncoder.
type Encoder struct {
	enc        *gopus.Encoder
	channels   int
	frameSize  int
	pcmScratch []int16
}

// NewEncoder creates an Opus payload encoder.
//
// Parameters:
//   - spec: the wire sample spec; the rate must be Opus-supported
//   - packetFrames: per-channel frames per packet, a valid Opus frame
//     size for the rate
//
// Returns:
//   - *Encoder: the new encoder
//   - error: a wrapped gopus error for unsupported parameters
func NewEncoder(spec audio.SampleSpec, packetFrames int) (*Encoder, error) {
	enc, err := gopus.NewEncoder(int(spec.SampleRate), spec.NumChannels(), gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewEncoder",
		"spec":          spec.String(),
		"packet_frames": packetFrames,
	}).Info("Opus payload encoder created")

	return &Encoder{
		enc:       enc,
		channels:  spec.NumChannels(),
		frameSize: packetFrames,
	}, nil
}

// EncodePayload encodes one packet's samples into an Opus payload.
func (e *Encoder) EncodePayload(samples []float32) ([]byte, error) {
	if len(samples) != e.frameSize*e.channels {
		return nil, fmt.Errorf("opus encoder: got %d samples, want %d",
			len(samples), e.frameSize*e.channels)
	}

	if len(e.pcmScratch) < len(samples) {
		e.pcmScratch = make([]int16, len(samples))
	}
	pcm := e.pcmScratch[:len(samples)]
	for i, v := range samples {
		pcm[i] = float32ToInt16(v)
	}

	payload, err := e.enc.Encode(pcm, e.frameSize, maxPayloadBytes)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return payload, nil
}

// Decoder decodes Opus packet payloads into float32 samples. It
// implements audio.PayloadDecoder.
type Decoder struct {
	dec       *gopus.Decoder
	channels  int
	frameSize int
}

// NewDecoder creates an Opus payload decoder matching an encoder's
// parameters.
func NewDecoder(spec audio.SampleSpec, packetFrames int) (*Decoder, error) {
	dec, err := gopus.NewDecoder(int(spec.SampleRate), spec.NumChannels())
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewDecoder",
		"spec":          spec.String(),
		"packet_frames": packetFrames,
	}).Info("Opus payload decoder created")

	return &Decoder{
		dec:       dec,
		channels:  spec.NumChannels(),
		frameSize: packetFrames,
	}, nil
}

// DecodePayload decodes one Opus payload into dst, which must hold
// exactly one packet of interleaved samples.
func (d *Decoder) DecodePayload(payload []byte, dst []float32) error {
	if len(dst) != d.frameSize*d.channels {
		return fmt.Errorf("opus decoder: got %d sample buffer, want %d",
			len(dst), d.frameSize*d.channels)
	}

	pcm, err := d.dec.Decode(payload, d.frameSize, false)
	if err != nil {
		return fmt.Errorf("opus decode: %w", err)
	}
	if len(pcm) != len(dst) {
		return fmt.Errorf("opus decoder: decoded %d samples, want %d",
			len(pcm), len(dst))
	}

	for i, v := range pcm {
		dst[i] = float32(v) / 32768
	}
	return nil
}

func float32ToInt16(v float32) int16 {
	scaled := v * 32767
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(scaled)
	}
}
