package fec

import "errors"

// Sentinel errors for fec package operations.
// These errors enable reliable error classification using errors.Is().

var (
	// ErrUnknownScheme indicates a scheme identifier outside the
	// registered set.
	ErrUnknownScheme = errors.New("unknown FEC scheme")

	// ErrSchemeNone indicates a codec was requested for SchemeNone,
	// which carries no codec.
	ErrSchemeNone = errors.New("scheme none has no codec")

	// ErrInvalidParams indicates unusable block parameters.
	ErrInvalidParams = errors.New("invalid block parameters")

	// ErrNotEnoughSymbols indicates a decode attempt with fewer than N
	// of the block's N+M symbols available.
	ErrNotEnoughSymbols = errors.New("not enough symbols to decode block")

	// ErrDecodeFailed indicates the decoder could not reconstruct the
	// block from the available symbols. For the sparse-graph scheme
	// this can occur even with N or more symbols present.
	ErrDecodeFailed = errors.New("block decoding failed")

	// ErrBadSymbol indicates a malformed symbol (truncated framing or
	// inconsistent size).
	ErrBadSymbol = errors.New("malformed symbol")
)
