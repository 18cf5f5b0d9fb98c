package sender

import (
	"github.com/opd-ai/fecstream/packet"
)

// interleaver reorders packet transmission with a stride permutation
// over consecutive windows of packets. Spreading a coding block's
// packets across more real-world transmission time converts a burst
// loss into scattered single losses, which the erasure code handles
// far better.
type interleaver struct {
	out    packet.Writer
	depth  int
	stride int
	window []*packet.Packet
}

// newInterleaver creates an interleaver over windows of depth packets,
// normally one full coding block (N+M).
func newInterleaver(depth int, out packet.Writer) *interleaver {
	return &interleaver{
		out:    out,
		depth:  depth,
		stride: strideFor(depth),
		window: make([]*packet.Packet, 0, depth),
	}
}

// WritePacket buffers the packet; a full window is emitted in permuted
// order.
func (il *interleaver) WritePacket(p *packet.Packet) error {
	il.window = append(il.window, p)
	if len(il.window) < il.depth {
		return nil
	}

	for k := 0; k < il.depth; k++ {
		if err := il.out.WritePacket(il.window[k*il.stride%il.depth]); err != nil {
			return err
		}
	}
	il.window = il.window[:0]
	return nil
}

// Flush emits a partial window in natural order.
func (il *interleaver) Flush() error {
	for _, p := range il.window {
		if err := il.out.WritePacket(p); err != nil {
			return err
		}
	}
	il.window = il.window[:0]
	return nil
}

// strideFor picks the smallest stride not below the square root of
// depth that is coprime with depth, so the permutation k -> k*stride
// mod depth is a bijection.
func strideFor(depth int) int {
	if depth <= 2 {
		return 1
	}
	s := 2
	for s*s < depth {
		s++
	}
	for gcd(s, depth) != 1 {
		s++
	}
	return s
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
