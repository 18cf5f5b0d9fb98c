package wav

import "errors"

// Sentinel errors for wav package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrBadHeader indicates a file that is not a RIFF/WAVE stream or
	// whose header is truncated or inconsistent.
	ErrBadHeader = errors.New("malformed wav header")

	// ErrUnsupportedFormat indicates a WAVE encoding other than 32-bit
	// IEEE float or 16-bit integer PCM.
	ErrUnsupportedFormat = errors.New("unsupported wav sample format")

	// ErrSinkClosed indicates a write to a closed sink.
	ErrSinkClosed = errors.New("wav sink closed")
)
