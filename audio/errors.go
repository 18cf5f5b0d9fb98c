package audio

import "errors"

// Sentinel errors for audio package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrInvalidSpec indicates a sample spec with a zero rate or an
	// empty channel mask.
	ErrInvalidSpec = errors.New("invalid sample spec")

	// ErrFrameAlignment indicates a sample buffer whose length is not
	// a multiple of the channel count.
	ErrFrameAlignment = errors.New("sample count not a multiple of channel count")

	// ErrUnsupportedRemap indicates a channel pair the remapper does
	// not define a policy for.
	ErrUnsupportedRemap = errors.New("unsupported channel remapping")

	// ErrPayloadSize indicates a payload whose size does not match the
	// expected sample count.
	ErrPayloadSize = errors.New("payload size mismatch")
)
