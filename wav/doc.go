// Package wav reads and writes RIFF/WAVE files as frame streams.
//
// The source decodes 32-bit IEEE float and 16-bit integer PCM files
// into float32 frames; the sink always writes 32-bit IEEE float, the
// pipeline's native sample format. Both operate strictly sequentially:
// the source zero-pads the final short frame the way a live capture
// device pads an underrun, and the sink back-patches the RIFF sizes on
// Close.
package wav
