package wav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/audio"
)

// Source reads a WAV file as a stream of audio frames. It implements
// audio.FrameReader.
type Source struct {
	f    *os.File
	r    *bufio.Reader
	hdr  header
	spec audio.SampleSpec

	remaining uint32 // data bytes left
	eof       bool
}

// OpenSource opens a WAV file for sequential frame reads.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Source: the open source
//   - error: ErrBadHeader, ErrUnsupportedFormat, or a wrapped I/O
//     error
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wav source: %w", err)
	}

	r := bufio.NewReader(f)
	hdr, err := decodeHeader(r)
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &Source{
		f:         f,
		r:         r,
		hdr:       hdr,
		spec:      hdr.spec(),
		remaining: hdr.dataBytes,
	}

	logrus.WithFields(logrus.Fields{
		"function": "OpenSource",
		"path":     path,
		"spec":     s.spec.String(),
		"bits":     hdr.bitsPerSample,
		"bytes":    hdr.dataBytes,
	}).Info("WAV source opened")

	return s, nil
}

// Spec returns the file's sample spec.
func (s *Source) Spec() audio.SampleSpec {
	return s.spec
}

// ReadFrame fills the frame from the file. A frame cut short by end of
// file is zero-padded; a read at end of file returns false. The frame
// spec must match the file spec.
func (s *Source) ReadFrame(f *audio.Frame) bool {
	if !f.Spec.Equal(s.spec) {
		panic("wav: frame spec does not match file spec")
	}
	if s.eof {
		return false
	}

	read := 0
	for read < len(f.Samples) && s.remaining > 0 {
		v, err := s.readSample()
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				logrus.WithFields(logrus.Fields{
					"function": "Source.ReadFrame",
					"error":    err.Error(),
				}).Error("WAV read failed")
			}
			s.remaining = 0
			break
		}
		f.Samples[read] = v
		read++
	}

	if read == 0 {
		s.eof = true
		return false
	}
	for i := read; i < len(f.Samples); i++ {
		f.Samples[i] = 0
	}
	if s.remaining == 0 {
		s.eof = true
	}
	return true
}

func (s *Source) readSample() (float32, error) {
	switch s.hdr.format {
	case formatIEEEFloat:
		var buf [4]byte
		if _, err := io.ReadFull(s.r, buf[:]); err != nil {
			return 0, err
		}
		s.consume(4)
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil

	default: // formatPCM, 16-bit
		var buf [2]byte
		if _, err := io.ReadFull(s.r, buf[:]); err != nil {
			return 0, err
		}
		s.consume(2)
		return float32(int16(binary.LittleEndian.Uint16(buf[:]))) / 32768, nil
	}
}

func (s *Source) consume(n uint32) {
	if s.remaining < n {
		s.remaining = 0
		return
	}
	s.remaining -= n
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}
