package audio

import "fmt"

// Frame is a block of interleaved float32 samples tagged with the spec
// they were produced under. Frames are transient: they are created by
// the application or by the pipeline, consumed immediately, and never
// persisted. The buffer is owned by the caller for the duration of a
// read or write call only.
type Frame struct {
	// Samples holds interleaved samples for all channels. Its length
	// is always a multiple of Spec.NumChannels().
	Samples []float32

	// Spec is the format of the samples.
	Spec SampleSpec
}

// NewFrame creates a frame wrapping the given sample buffer.
//
// Parameters:
//   - spec: the sample format of the buffer
//   - samples: interleaved samples; length must be a multiple of the
//     spec's channel count
//
// Returns:
//   - *Frame: the new frame
//   - error: ErrInvalidSpec or ErrFrameAlignment on invalid input
func NewFrame(spec SampleSpec, samples []float32) (*Frame, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if len(samples)%spec.NumChannels() != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels",
			ErrFrameAlignment, len(samples), spec.NumChannels())
	}
	return &Frame{Samples: samples, Spec: spec}, nil
}

// SilentFrame creates a zeroed frame holding the given number of
// per-channel frames.
func SilentFrame(spec SampleSpec, frames int) *Frame {
	return &Frame{
		Samples: make([]float32, frames*spec.NumChannels()),
		Spec:    spec,
	}
}

// Frames returns the number of per-channel frames in the buffer.
func (f *Frame) Frames() int {
	ch := f.Spec.NumChannels()
	if ch == 0 {
		return 0
	}
	return len(f.Samples) / ch
}

// Zero fills the frame with silence.
func (f *Frame) Zero() {
	for i := range f.Samples {
		f.Samples[i] = 0
	}
}

// Validate reports whether the frame satisfies the alignment
// invariant under its own spec.
func (f *Frame) Validate() error {
	if err := f.Spec.Validate(); err != nil {
		return err
	}
	if len(f.Samples)%f.Spec.NumChannels() != 0 {
		return fmt.Errorf("%w: %d samples, %d channels",
			ErrFrameAlignment, len(f.Samples), f.Spec.NumChannels())
	}
	return nil
}
