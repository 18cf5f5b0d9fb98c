package fec

import "fmt"

// Scheme identifies an erasure coding scheme. The set is closed:
// schemes are selected via configuration, not extended at runtime.
type Scheme uint8

const (
	// SchemeNone disables FEC protection; the stream is source-only.
	SchemeNone Scheme = iota

	// SchemeReedSolomon is a systematic MDS block code over GF(2^8).
	SchemeReedSolomon

	// SchemeLDPCStaircase is a sparse-graph code with a staircase
	// parity structure, decoded by iterative peeling.
	SchemeLDPCStaircase
)

// String returns the scheme's configuration name.
func (s Scheme) String() string {
	switch s {
	case SchemeNone:
		return "none"
	case SchemeReedSolomon:
		return "rs"
	case SchemeLDPCStaircase:
		return "ldpc"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// ParseScheme maps a configuration name to a Scheme.
//
// Returns:
//   - Scheme: the parsed scheme
//   - error: ErrUnknownScheme (wrapped with the name) for any name
//     outside {none, rs, ldpc}
func ParseScheme(name string) (Scheme, error) {
	switch name {
	case "none", "":
		return SchemeNone, nil
	case "rs":
		return SchemeReedSolomon, nil
	case "ldpc":
		return SchemeLDPCStaircase, nil
	default:
		return SchemeNone, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// BlockParams is the shape of a coding block: N source symbols
// protected by M repair symbols.
type BlockParams struct {
	// SourcePackets is N, the number of source symbols per block.
	SourcePackets int

	// RepairPackets is M, the number of repair symbols per block.
	RepairPackets int
}

// Validate reports whether the parameters describe a usable block.
func (p BlockParams) Validate() error {
	if p.SourcePackets <= 0 {
		return fmt.Errorf("%w: %d source packets", ErrInvalidParams, p.SourcePackets)
	}
	if p.RepairPackets <= 0 {
		return fmt.Errorf("%w: %d repair packets", ErrInvalidParams, p.RepairPackets)
	}
	return nil
}

// Total returns N+M, the full symbol count of a block.
func (p BlockParams) Total() int {
	return p.SourcePackets + p.RepairPackets
}
