// Package packet defines the transport packet model of the streaming
// pipeline and the queue that carries packets between the network push
// path and the audio pull path.
//
// A packet is immutable once handed to a writer. Source packets carry
// sliced audio payloads; repair packets carry FEC symbols derived from
// a coding block of source packets. Sequence numbers are monotonic per
// role, and the (block index, position) pair keys a packet within its
// coding block.
//
// The Queue is the single synchronization boundary of the pipeline:
// network readers push into it from their own goroutine while the
// audio path drains it during frame production. Reads never block;
// an empty queue yields nil rather than suspending the caller.
package packet
