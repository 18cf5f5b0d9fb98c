package fec

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ldpcSourceDegree is the number of parity equations each source
// symbol participates in, capped by the repair count.
const ldpcSourceDegree = 3

// ldpcCode is the shared structure of the LDPC-Staircase scheme: a
// sparse random mapping of source symbols onto parity equations plus a
// staircase over the repair symbols. Equation j reads
//
//	XOR(sources in rows[j]) ^ repair[j-1] ^ repair[j] = 0
//
// with repair[-1] taken as zero. The mapping is derived from a PRNG
// seeded only by the block shape, so an encoder and a decoder built
// from the same parameters agree on it without any wire exchange.
type ldpcCode struct {
	params BlockParams

	// rows[j] lists the source positions in parity equation j.
	rows [][]int
}

func newLDPCCode(params BlockParams) *ldpcCode {
	seed := int64(params.SourcePackets)<<20 | int64(params.RepairPackets)
	rng := rand.New(rand.NewSource(seed))

	m := params.RepairPackets
	degree := ldpcSourceDegree
	if degree > m {
		degree = m
	}

	rows := make([][]int, m)

	for i := 0; i < params.SourcePackets; i++ {
		picked := make(map[int]bool, degree)
		for len(picked) < degree {
			picked[rng.Intn(m)] = true
		}
		for j := range picked {
			rows[j] = append(rows[j], i)
		}
	}

	return &ldpcCode{params: params, rows: rows}
}

// ldpcEncoder implements BlockEncoder for the LDPC-Staircase scheme.
type ldpcEncoder struct {
	code *ldpcCode
}

// ldpcDecoder implements BlockDecoder for the LDPC-Staircase scheme.
type ldpcDecoder struct {
	code *ldpcCode
}

func newLDPCEncoder(params BlockParams) (BlockEncoder, error) {
	return &ldpcEncoder{code: newLDPCCode(params)}, nil
}

func newLDPCDecoder(params BlockParams) (BlockDecoder, error) {
	return &ldpcDecoder{code: newLDPCCode(params)}, nil
}

// EncodeBlock computes the staircase repair symbols over the framed
// source payloads.
func (e *ldpcEncoder) EncodeBlock(source [][]byte) ([][]byte, error) {
	params := e.code.params
	if len(source) != params.SourcePackets {
		return nil, fmt.Errorf("%w: got %d source payloads, want %d",
			ErrInvalidParams, len(source), params.SourcePackets)
	}

	symbolSize, err := checkedSymbolSize(source)
	if err != nil {
		return nil, err
	}

	framed := make([][]byte, len(source))
	for i, payload := range source {
		framed[i] = frameSymbol(payload, symbolSize)
	}

	repair := make([][]byte, params.RepairPackets)
	for j := range repair {
		acc := make([]byte, symbolSize)
		if j > 0 {
			copy(acc, repair[j-1])
		}
		for _, i := range e.code.rows[j] {
			xorInto(acc, framed[i])
		}
		repair[j] = acc
	}

	return repair, nil
}

// DecodeBlock reconstructs missing source payloads by iterative
// peeling: any parity equation with a single unknown symbol yields
// that symbol; solved symbols may unlock further equations. Peeling
// can stall with N or more symbols available — recovery under this
// scheme is probabilistic by design.
func (d *ldpcDecoder) DecodeBlock(present map[int][]byte) ([][]byte, error) {
	params := d.code.params
	n := params.SourcePackets

	source, symbolSize, missing, err := splitPresent(present, params)
	if err != nil {
		return nil, err
	}
	if missing == 0 {
		return source, nil
	}

	framed := make([][]byte, n)
	for i := 0; i < n; i++ {
		if source[i] != nil {
			framed[i] = frameSymbol(source[i], symbolSize)
		}
	}
	repair := make([][]byte, params.RepairPackets)
	for j := 0; j < params.RepairPackets; j++ {
		if sym, ok := present[n+j]; ok {
			repair[j] = sym
		}
	}

	unknownSources := missing
	for progress := true; progress && unknownSources > 0; {
		progress = false
		for j := 0; j < params.RepairPackets; j++ {
			solved := d.peelEquation(j, framed, repair, symbolSize)
			if solved < 0 {
				continue
			}
			progress = true
			if solved < n {
				unknownSources--
			}
		}
	}

	if unknownSources > 0 {
		logrus.WithFields(logrus.Fields{
			"function":        "ldpcDecoder.DecodeBlock",
			"unknown_sources": unknownSources,
		}).Debug("LDPC peeling stalled before full recovery")
		return nil, fmt.Errorf("%w: %d source symbols unresolved",
			ErrDecodeFailed, unknownSources)
	}

	for i := 0; i < n; i++ {
		if source[i] != nil {
			continue
		}
		payload, err := unframeSymbol(framed[i])
		if err != nil {
			return nil, err
		}
		source[i] = payload
	}

	return source, nil
}

// peelEquation attempts to solve parity equation j. It returns the
// global position of the symbol it solved (source position, or n+j for
// a repair symbol), or -1 if the equation has zero or multiple
// unknowns.
func (d *ldpcDecoder) peelEquation(j int, framed, repair [][]byte, symbolSize int) int {
	n := d.code.params.SourcePackets

	unknown := -1
	count := 0

	for _, i := range d.code.rows[j] {
		if framed[i] == nil {
			unknown, count = i, count+1
		}
	}
	if repair[j] == nil {
		unknown, count = n+j, count+1
	}
	if j > 0 && repair[j-1] == nil {
		unknown, count = n+j-1, count+1
	}
	if count != 1 {
		return -1
	}

	acc := make([]byte, symbolSize)
	for _, i := range d.code.rows[j] {
		if framed[i] != nil {
			xorInto(acc, framed[i])
		}
	}
	if repair[j] != nil {
		xorInto(acc, repair[j])
	}
	if j > 0 && repair[j-1] != nil {
		xorInto(acc, repair[j-1])
	}

	if unknown < n {
		framed[unknown] = acc
	} else {
		repair[unknown-n] = acc
	}
	return unknown
}

// xorInto accumulates src into dst byte-wise. The slices share the
// block symbol size.
func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
