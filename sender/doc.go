// Package sender implements the sending half of the streaming
// pipeline: it accepts audio frames, slices them into fixed-duration
// packets, protects coding blocks with FEC repair packets, optionally
// interleaves the transmission order, and fans packets out to the
// bound endpoints of each slot.
//
// The pipeline inside one slot is a chain of packet writers:
//
//	frames -> packetizer -> FEC writer -> [interleaver] -> endpoint router
//
// The packetizer buffers samples across frame boundaries, so the frame
// length and the packet length need not divide evenly. The FEC writer
// passes source packets through immediately and emits the block's
// repair packets once all N source slots fill (or a flush forces the
// block closed). Every slot sequences its own packets and blocks, so
// one sender can serve multiple destinations independently.
//
// Feeding frames before a slot's source endpoint is bound to a
// destination writer is an error. A slot without a bound repair
// endpoint degrades to source-only operation with no FEC, which is not
// an error.
package sender
