package audio

// FrameReader produces audio frames at the consumer's pace.
//
// ReadFrame fills the caller-provided frame and returns true, or
// returns false only on permanent end of stream. Transient underrun
// yields a frame of silence and true, never false and never blocking.
type FrameReader interface {
	ReadFrame(f *Frame) bool
}

// FrameWriter consumes audio frames at the producer's pace.
type FrameWriter interface {
	WriteFrame(f *Frame) error
}

// PayloadEncoder converts interleaved samples to a packet payload.
// Implementations may be stateful (e.g. an Opus encoder) and are not
// safe for concurrent use.
type PayloadEncoder interface {
	EncodePayload(samples []float32) ([]byte, error)
}

// PayloadDecoder converts a packet payload back to interleaved
// samples, filling exactly len(dst) samples. Implementations may be
// stateful and are not safe for concurrent use.
type PayloadDecoder interface {
	DecodePayload(payload []byte, dst []float32) error
}
