package audio

import "fmt"

// CanRemap reports whether the remapper defines a policy for the given
// channel pair. Supported pairs are identity, mono to any wider mask
// (duplicate), and any mask down to mono (average). Arbitrary channel
// subsets are never taken.
func CanRemap(from, to ChannelMask) bool {
	if from.NumChannels() == 0 || to.NumChannels() == 0 {
		return false
	}
	return from == to || from.NumChannels() == 1 || to.NumChannels() == 1
}

// Remap converts interleaved samples between channel masks.
//
// A single source channel is duplicated to every output channel;
// multiple source channels are averaged down to a single output
// channel. src and dst must cover the same number of per-channel
// frames.
//
// Parameters:
//   - src: interleaved samples under the from mask
//   - from: channel mask of src
//   - dst: destination buffer, len(src)/from.NumChannels() frames wide
//   - to: channel mask of dst
//
// Returns:
//   - error: ErrUnsupportedRemap for an undefined channel pair,
//     ErrFrameAlignment if the buffers do not cover equal frame counts
func Remap(src []float32, from ChannelMask, dst []float32, to ChannelMask) error {
	if !CanRemap(from, to) {
		return fmt.Errorf("%w: %s to %s", ErrUnsupportedRemap, from, to)
	}

	fromCh := from.NumChannels()
	toCh := to.NumChannels()

	if len(src)%fromCh != 0 || len(dst)%toCh != 0 ||
		len(src)/fromCh != len(dst)/toCh {
		return fmt.Errorf("%w: %d samples/%d ch to %d samples/%d ch",
			ErrFrameAlignment, len(src), fromCh, len(dst), toCh)
	}

	switch {
	case from == to:
		copy(dst, src)

	case fromCh == 1:
		// Duplicate the single source channel to all output channels.
		for i, s := range src {
			base := i * toCh
			for c := 0; c < toCh; c++ {
				dst[base+c] = s
			}
		}

	default:
		// Average all source channels down to mono.
		frames := len(src) / fromCh
		inv := 1.0 / float32(fromCh)
		for i := 0; i < frames; i++ {
			var sum float32
			base := i * fromCh
			for c := 0; c < fromCh; c++ {
				sum += src[base+c]
			}
			dst[i] = sum * inv
		}
	}

	return nil
}
