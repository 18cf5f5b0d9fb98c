// Package fec provides the erasure codec registry of the streaming
// pipeline: block encoders that derive repair symbols from a full
// coding block of source payloads, and block decoders that reconstruct
// missing source payloads from any sufficient subset of the block's
// symbols.
//
// Two interchangeable schemes are registered:
//
//   - SchemeReedSolomon: a systematic MDS block code. Any N of the
//     N+M symbols recover the block deterministically.
//   - SchemeLDPCStaircase: a sparse-graph code decoded by iterative
//     peeling. Recovery is probabilistic; a higher repair count
//     tolerates bursty loss at lower CPU cost than Reed-Solomon.
//
// The scheme is fixed for a stream's lifetime and negotiated out of
// band, never mid-stream. SchemeNone disables protection entirely and
// has no codec.
//
// All symbols in a block share one size. A payload is framed into a
// symbol as a two-byte big-endian true length, the payload bytes, and
// zero padding up to the symbol size; repair packets carry whole
// symbols while source packets carry bare payloads. Decoding failure
// below N available symbols is a typed error, not a fault: the
// receiver absorbs it as an unrecoverable block.
package fec
