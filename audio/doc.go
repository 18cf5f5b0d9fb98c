// Package audio provides the sample-level building blocks of the
// streaming pipeline: sample specifications, audio frames, channel
// remapping, additive mixing, and payload sample encodings.
//
// All audio flows through the pipeline as interleaved float32 samples
// tagged with a SampleSpec. A frame's sample count is always a multiple
// of its channel count; constructors enforce the invariant so the rest
// of the pipeline can rely on it.
//
// The FrameReader and FrameWriter interfaces are the boundary between
// the pipeline and audio backends (sound cards, WAV files, test
// harnesses). A reader returns false only on permanent end of stream;
// transient underrun yields a frame of silence and true.
package audio
