package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PCMFloat32 is the default payload encoding: interleaved little-endian
// float32 samples, four bytes per sample. The round trip is lossless,
// which the FEC recovery guarantees rely on.
type PCMFloat32 struct{}

// EncodePayload converts samples to little-endian float32 bytes.
func (PCMFloat32) EncodePayload(samples []float32) ([]byte, error) {
	payload := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(s))
	}
	return payload, nil
}

// DecodePayload converts little-endian float32 bytes back to samples.
//
// Returns:
//   - error: ErrPayloadSize if the payload does not hold exactly
//     len(dst) samples
func (PCMFloat32) DecodePayload(payload []byte, dst []float32) error {
	if len(payload) != len(dst)*4 {
		return fmt.Errorf("%w: %d bytes for %d samples",
			ErrPayloadSize, len(payload), len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return nil
}
