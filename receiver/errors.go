package receiver

import "errors"

// Sentinel errors for receiver package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrInvalidConfig indicates an unusable receiver configuration.
	ErrInvalidConfig = errors.New("invalid receiver configuration")

	// ErrEndpointExists indicates a second endpoint created for a role
	// already present on the slot.
	ErrEndpointExists = errors.New("endpoint already exists for role")

	// ErrEndpointRole indicates an endpoint role outside
	// {audio-source, audio-repair}.
	ErrEndpointRole = errors.New("unsupported endpoint role")

	// ErrSlotClosed indicates use of a slot after Close.
	ErrSlotClosed = errors.New("slot closed")
)
