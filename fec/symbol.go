package fec

import (
	"encoding/binary"
	"fmt"
)

// symbolHeaderSize is the length-prefix overhead of a framed symbol.
const symbolHeaderSize = 2

// symbolSizeFor returns the shared symbol size of a block: the largest
// payload plus the length prefix. Shorter payloads are zero-padded up
// to this size when framed.
func symbolSizeFor(payloads [][]byte) int {
	max := 0
	for _, p := range payloads {
		if len(p) > max {
			max = len(p)
		}
	}
	return max + symbolHeaderSize
}

// frameSymbol frames a payload into a fixed-size symbol: a big-endian
// uint16 true length, the payload, and zero padding.
func frameSymbol(payload []byte, symbolSize int) []byte {
	sym := make([]byte, symbolSize)
	binary.BigEndian.PutUint16(sym, uint16(len(payload)))
	copy(sym[symbolHeaderSize:], payload)
	return sym
}

// unframeSymbol extracts the true payload from a framed symbol.
func unframeSymbol(sym []byte) ([]byte, error) {
	if len(sym) < symbolHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadSymbol, len(sym))
	}
	n := int(binary.BigEndian.Uint16(sym))
	if n > len(sym)-symbolHeaderSize {
		return nil, fmt.Errorf("%w: length %d exceeds symbol size %d",
			ErrBadSymbol, n, len(sym))
	}
	return sym[symbolHeaderSize : symbolHeaderSize+n], nil
}
