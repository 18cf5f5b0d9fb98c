package transport

import "errors"

// Sentinel errors for transport package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrShortPacket indicates a datagram smaller than the wire header.
	ErrShortPacket = errors.New("packet shorter than wire header")

	// ErrBadRole indicates a wire role byte outside the known values.
	ErrBadRole = errors.New("unknown packet role on wire")

	// ErrNoDestination indicates a send of a packet with no address.
	ErrNoDestination = errors.New("packet has no destination address")

	// ErrTransportClosed indicates use of a closed transport.
	ErrTransportClosed = errors.New("transport closed")
)
