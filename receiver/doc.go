// Package receiver implements the receiving half of the streaming
// pipeline: it ingests source and repair packets pushed in by the
// network, repairs losses with the erasure codec, reorders packets
// into a gapless audio timeline per peer, absorbs jitter through a
// latency-targeted buffer, and emits audio frames at the consumer's
// pace.
//
// Packets enter through slot endpoints, whose writer mounts may be fed
// from any goroutine; the endpoint queues are the only synchronization
// boundary. Frame production is pull-based and never blocks on the
// network: a frame request drains the queues, performs at most bounded
// decoding work, and degrades to silence when data is missing.
//
// Sessions are created implicitly, one per distinct peer address, on
// the first source packet from that address. A session moves between
// ACTIVE and STALLED as its buffer fills and drains, and terminates
// when the watchdog sees nothing but silence for the configured
// no-playback timeout. A packet from the same peer after termination
// starts a brand-new session with fresh counters.
package receiver
