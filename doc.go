// Package fecstream is a real-time audio streaming toolkit with
// forward error correction.
//
// The sending pipeline (package sender) slices an audio stream into
// fixed-length packets, derives repair packets with an erasure code
// (package fec), and hands both flows to a transport. The receiving
// pipeline (package receiver) reassembles per-peer sessions from the
// arriving packets, repairs losses, absorbs jitter behind a target
// latency, and mixes all peers into a single output stream.
//
// Supporting packages: audio holds the sample model and payload
// codecs (including Opus in audio/opusio), packet the wire-agnostic
// packet type and queue, transport the UDP framing, and wav file I/O
// for the bundled fecsend and fecrecv commands.
package fecstream
