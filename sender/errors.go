package sender

import "errors"

// Sentinel errors for sender package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrInvalidConfig indicates an unusable sender configuration.
	ErrInvalidConfig = errors.New("invalid sender configuration")

	// ErrFrameSpec indicates a frame whose spec does not match the
	// sender's configured input spec.
	ErrFrameSpec = errors.New("frame spec does not match input spec")

	// ErrEndpointExists indicates a second endpoint created for a role
	// already present on the slot.
	ErrEndpointExists = errors.New("endpoint already exists for role")

	// ErrEndpointRole indicates an endpoint role outside
	// {audio-source, audio-repair}.
	ErrEndpointRole = errors.New("unsupported endpoint role")

	// ErrNotBound indicates frames fed before the slot's source
	// endpoint was bound to a destination writer.
	ErrNotBound = errors.New("source endpoint not bound")

	// ErrSlotStarted indicates an endpoint change after audio started
	// flowing through the slot.
	ErrSlotStarted = errors.New("slot already carrying audio")

	// ErrSenderClosed indicates use of a sender after Close.
	ErrSenderClosed = errors.New("sender closed")
)
