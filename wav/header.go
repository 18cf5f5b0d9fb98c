package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/fecstream/audio"
)

// Wave format codes from the RIFF specification.
const (
	formatPCM       = 0x1
	formatIEEEFloat = 0x3
)

// headerSize is the fixed size of the canonical 44-byte header this
// package writes: RIFF chunk, fmt chunk of 16 bytes, data chunk.
const headerSize = 44

// metadataSize is the RIFF chunk size excluding the data payload.
const metadataSize = 36

// header holds the fields of a canonical WAVE header.
type header struct {
	format        uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
	dataBytes     uint32
}

// encode writes the 44-byte header. dataBytes may be zero for a
// streaming sink that back-patches the sizes later.
func (h header) encode(w io.Writer) error {
	var buf [headerSize]byte

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], metadataSize+h.dataBytes)
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], h.format)
	binary.LittleEndian.PutUint16(buf[22:24], h.numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], h.sampleRate)
	byteRate := h.sampleRate * uint32(h.numChannels) * uint32(h.bitsPerSample/8)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], h.numChannels*(h.bitsPerSample/8))
	binary.LittleEndian.PutUint16(buf[34:36], h.bitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], h.dataBytes)

	_, err := w.Write(buf[:])
	return err
}

// decodeHeader parses a WAVE header, tolerating extra chunks between
// fmt and data the way files from other encoders carry them.
func decodeHeader(r io.Reader) (header, error) {
	var h header

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return h, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return h, fmt.Errorf("%w: missing RIFF/WAVE magic", ErrBadHeader)
	}

	sawFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return h, fmt.Errorf("%w: %v", ErrBadHeader, err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return h, fmt.Errorf("%w: fmt chunk of %d bytes", ErrBadHeader, size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return h, fmt.Errorf("%w: %v", ErrBadHeader, err)
			}
			h.format = binary.LittleEndian.Uint16(body[0:2])
			h.numChannels = binary.LittleEndian.Uint16(body[2:4])
			h.sampleRate = binary.LittleEndian.Uint32(body[4:8])
			h.bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			sawFmt = true

		case "data":
			if !sawFmt {
				return h, fmt.Errorf("%w: data chunk before fmt", ErrBadHeader)
			}
			h.dataBytes = size
			return h, h.validate()

		default:
			// Skip LIST, fact, and other metadata chunks.
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return h, fmt.Errorf("%w: %v", ErrBadHeader, err)
			}
		}
	}
}

func (h header) validate() error {
	switch {
	case h.numChannels == 0 || h.sampleRate == 0:
		return fmt.Errorf("%w: zero channels or rate", ErrBadHeader)
	case h.numChannels > 32:
		// The positional-channel mask in spec() holds 32 bits.
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, h.numChannels)
	case h.format == formatIEEEFloat && h.bitsPerSample == 32:
		return nil
	case h.format == formatPCM && h.bitsPerSample == 16:
		return nil
	default:
		return fmt.Errorf("%w: format %#x with %d bits",
			ErrUnsupportedFormat, h.format, h.bitsPerSample)
	}
}

// spec maps the header to a sample spec. WAV files have positional
// channels, not masks; the first NumChannels bits stand in for them.
func (h header) spec() audio.SampleSpec {
	return audio.SampleSpec{
		SampleRate: h.sampleRate,
		Channels:   audio.ChannelMask(1<<h.numChannels - 1),
	}
}
