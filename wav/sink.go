package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/audio"
)

// Sink writes a stream of audio frames to a 32-bit IEEE float WAV
// file. It implements audio.FrameWriter. The header is written with
// zero sizes up front and back-patched on Close, so an interrupted
// run leaves a recognizable but truncated file, like every streaming
// WAV writer does.
type Sink struct {
	f      *os.File
	spec   audio.SampleSpec
	hdr    header
	buf    []byte
	closed bool
}

// CreateSink creates (or truncates) a WAV file for the given spec.
//
// Parameters:
//   - path: the file to write
//   - spec: the stream format; samples are written as float32
//
// Returns:
//   - *Sink: the open sink
//   - error: a spec validation error or a wrapped I/O error
func CreateSink(path string, spec audio.SampleSpec) (*Sink, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav sink: %w", err)
	}

	s := &Sink{
		f:    f,
		spec: spec,
		hdr: header{
			format:        formatIEEEFloat,
			numChannels:   uint16(spec.NumChannels()),
			sampleRate:    spec.SampleRate,
			bitsPerSample: 32,
		},
	}
	if err := s.hdr.encode(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("wav sink: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "CreateSink",
		"path":     path,
		"spec":     spec.String(),
	}).Info("WAV sink created")

	return s, nil
}

// WriteFrame appends the frame's samples to the file. The frame spec
// must match the sink spec.
//
// Returns:
//   - error: ErrSinkClosed or a wrapped I/O error
func (s *Sink) WriteFrame(f *audio.Frame) error {
	if s.closed {
		return ErrSinkClosed
	}
	if !f.Spec.Equal(s.spec) {
		panic("wav: frame spec does not match sink spec")
	}

	need := len(f.Samples) * 4
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]
	for i, v := range f.Samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	if _, err := s.f.Write(buf); err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}
	s.hdr.dataBytes += uint32(need)
	return nil
}

// Flush rewrites the RIFF header with the current sizes, leaving the
// write position at the end of the data chunk. The file is playable
// after a Flush even if the process later dies mid-write.
//
// Returns:
//   - error: ErrSinkClosed or a wrapped I/O error
func (s *Sink) Flush() error {
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.patchHeader(); err != nil {
		return err
	}
	if _, err := s.f.Seek(0, 2); err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}
	return nil
}

func (s *Sink) patchHeader() error {
	if _, err := s.f.Seek(0, 0); err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}
	if err := s.hdr.encode(s.f); err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}
	return nil
}

// Close back-patches the RIFF sizes and closes the file.
func (s *Sink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.patchHeader(); err != nil {
		s.f.Close()
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Sink.Close",
		"bytes":    s.hdr.dataBytes,
	}).Info("WAV sink closed")

	return s.f.Close()
}
