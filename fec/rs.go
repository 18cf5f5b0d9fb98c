package fec

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
	"github.com/sirupsen/logrus"
)

// rsEncoder implements BlockEncoder with a systematic Reed-Solomon
// code over GF(2^8). Any M erasures in a block are recoverable
// deterministically.
type rsEncoder struct {
	params BlockParams
	rs     reedsolomon.Encoder
}

// rsDecoder implements BlockDecoder for the Reed-Solomon scheme.
type rsDecoder struct {
	params BlockParams
	rs     reedsolomon.Encoder
}

func newRSCodec(params BlockParams) (reedsolomon.Encoder, error) {
	rs, err := reedsolomon.New(params.SourcePackets, params.RepairPackets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return rs, nil
}

func newRSEncoder(params BlockParams) (BlockEncoder, error) {
	rs, err := newRSCodec(params)
	if err != nil {
		return nil, err
	}
	return &rsEncoder{params: params, rs: rs}, nil
}

func newRSDecoder(params BlockParams) (BlockDecoder, error) {
	rs, err := newRSCodec(params)
	if err != nil {
		return nil, err
	}
	return &rsDecoder{params: params, rs: rs}, nil
}

// EncodeBlock frames the N source payloads into equal-size symbols and
// computes the M repair symbols.
func (e *rsEncoder) EncodeBlock(source [][]byte) ([][]byte, error) {
	if len(source) != e.params.SourcePackets {
		return nil, fmt.Errorf("%w: got %d source payloads, want %d",
			ErrInvalidParams, len(source), e.params.SourcePackets)
	}

	symbolSize, err := checkedSymbolSize(source)
	if err != nil {
		return nil, err
	}

	shards := make([][]byte, e.params.Total())
	for i, payload := range source {
		shards[i] = frameSymbol(payload, symbolSize)
	}
	for j := e.params.SourcePackets; j < e.params.Total(); j++ {
		shards[j] = make([]byte, symbolSize)
	}

	if err := e.rs.Encode(shards); err != nil {
		return nil, fmt.Errorf("reed-solomon encode: %w", err)
	}

	return shards[e.params.SourcePackets:], nil
}

// DecodeBlock reconstructs the N source payloads from any N or more of
// the block's symbols.
func (d *rsDecoder) DecodeBlock(present map[int][]byte) ([][]byte, error) {
	n := d.params.SourcePackets

	source, symbolSize, missing, err := splitPresent(present, d.params)
	if err != nil {
		return nil, err
	}
	if missing == 0 {
		return source, nil
	}

	shards := make([][]byte, d.params.Total())
	for i := 0; i < n; i++ {
		if payload, ok := present[i]; ok {
			shards[i] = frameSymbol(payload, symbolSize)
		}
	}
	for j := n; j < d.params.Total(); j++ {
		if sym, ok := present[j]; ok {
			shards[j] = sym
		}
	}

	if err := d.rs.ReconstructData(shards); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "rsDecoder.DecodeBlock",
			"error":    err.Error(),
		}).Debug("Reed-Solomon reconstruction failed")
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	for i := 0; i < n; i++ {
		if source[i] != nil {
			continue
		}
		payload, err := unframeSymbol(shards[i])
		if err != nil {
			return nil, err
		}
		source[i] = payload
	}

	return source, nil
}

// checkedSymbolSize computes the block symbol size, rejecting payloads
// the two-byte length prefix cannot represent.
func checkedSymbolSize(source [][]byte) (int, error) {
	for _, p := range source {
		if len(p) > 0xFFFF {
			return 0, fmt.Errorf("%w: payload of %d bytes", ErrInvalidParams, len(p))
		}
	}
	return symbolSizeFor(source), nil
}

// splitPresent validates the available symbols of a block and collects
// the directly-present source payloads.
//
// Returns the N-element source slice (nil entries for missing
// payloads), the block symbol size (0 if no repair symbol is present),
// and the number of missing source payloads. ErrNotEnoughSymbols is
// returned when fewer than N symbols are available in total, and
// ErrBadSymbol when repair symbols disagree on the symbol size.
func splitPresent(present map[int][]byte, params BlockParams) ([][]byte, int, int, error) {
	n := params.SourcePackets

	source := make([][]byte, n)
	available := 0
	missing := 0
	symbolSize := 0

	for i := 0; i < n; i++ {
		if payload, ok := present[i]; ok {
			source[i] = payload
			available++
		} else {
			missing++
		}
	}
	for j := n; j < params.Total(); j++ {
		sym, ok := present[j]
		if !ok {
			continue
		}
		available++
		if symbolSize == 0 {
			symbolSize = len(sym)
		} else if len(sym) != symbolSize {
			return nil, 0, 0, fmt.Errorf("%w: repair symbol size %d, block symbol size %d",
				ErrBadSymbol, len(sym), symbolSize)
		}
	}

	if missing > 0 && available < n {
		return nil, 0, 0, fmt.Errorf("%w: %d of %d", ErrNotEnoughSymbols, available, n)
	}

	return source, symbolSize, missing, nil
}
