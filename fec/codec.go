package fec

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// BlockEncoder derives repair symbols from a complete coding block of
// source payloads. Implementations are stateless across blocks but not
// safe for concurrent use.
type BlockEncoder interface {
	// EncodeBlock takes exactly N source payloads and returns M repair
	// symbols sharing the block's symbol size.
	EncodeBlock(source [][]byte) ([][]byte, error)
}

// BlockDecoder reconstructs missing source payloads from the symbols
// of a single block.
type BlockDecoder interface {
	// DecodeBlock takes the available symbols keyed by global block
	// position: positions 0..N-1 hold bare source payloads, positions
	// N..N+M-1 hold repair symbols. It returns all N source payloads.
	//
	// Fewer than N available symbols yields ErrNotEnoughSymbols; a
	// sufficient but undecodable subset yields ErrDecodeFailed. Both
	// surface to the session as an unrecoverable block, not a fault.
	DecodeBlock(present map[int][]byte) ([][]byte, error)
}

// codecFactory builds the encoder/decoder pair of one scheme.
type codecFactory struct {
	newEncoder func(BlockParams) (BlockEncoder, error)
	newDecoder func(BlockParams) (BlockDecoder, error)
}

// codecRegistry is the closed scheme table. SchemeNone is deliberately
// absent: a source-only stream has no codec.
var codecRegistry = map[Scheme]codecFactory{
	SchemeReedSolomon: {
		newEncoder: newRSEncoder,
		newDecoder: newRSDecoder,
	},
	SchemeLDPCStaircase: {
		newEncoder: newLDPCEncoder,
		newDecoder: newLDPCDecoder,
	},
}

// NewBlockEncoder creates the encoder for a scheme.
//
// Parameters:
//   - scheme: the coding scheme, must not be SchemeNone
//   - params: the block shape (N source, M repair)
//
// Returns:
//   - BlockEncoder: the scheme's encoder
//   - error: ErrSchemeNone, ErrUnknownScheme, or ErrInvalidParams
func NewBlockEncoder(scheme Scheme, params BlockParams) (BlockEncoder, error) {
	factory, err := lookupScheme(scheme)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":       "NewBlockEncoder",
		"scheme":         scheme.String(),
		"source_packets": params.SourcePackets,
		"repair_packets": params.RepairPackets,
	}).Info("Creating FEC block encoder")

	return factory.newEncoder(params)
}

// NewBlockDecoder creates the decoder for a scheme.
//
// Parameters:
//   - scheme: the coding scheme, must not be SchemeNone
//   - params: the block shape (N source, M repair)
//
// Returns:
//   - BlockDecoder: the scheme's decoder
//   - error: ErrSchemeNone, ErrUnknownScheme, or ErrInvalidParams
func NewBlockDecoder(scheme Scheme, params BlockParams) (BlockDecoder, error) {
	factory, err := lookupScheme(scheme)
	if err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":       "NewBlockDecoder",
		"scheme":         scheme.String(),
		"source_packets": params.SourcePackets,
		"repair_packets": params.RepairPackets,
	}).Info("Creating FEC block decoder")

	return factory.newDecoder(params)
}

func lookupScheme(scheme Scheme) (codecFactory, error) {
	if scheme == SchemeNone {
		return codecFactory{}, ErrSchemeNone
	}
	factory, ok := codecRegistry[scheme]
	if !ok {
		return codecFactory{}, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	return factory, nil
}
