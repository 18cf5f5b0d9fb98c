package audio

import (
	"fmt"
	"math/bits"
	"time"
)

// ChannelMask identifies the set of channels carried by a stream as a
// bitmask, one bit per channel position.
type ChannelMask uint32

// Common channel masks.
const (
	// ChanMono is a single centered channel.
	ChanMono ChannelMask = 0x1

	// ChanStereo is a front-left/front-right pair.
	ChanStereo ChannelMask = 0x3
)

// NumChannels returns the number of channels enabled in the mask.
func (m ChannelMask) NumChannels() int {
	return bits.OnesCount32(uint32(m))
}

// String returns a human-readable name for the mask.
func (m ChannelMask) String() string {
	switch m {
	case ChanMono:
		return "mono"
	case ChanStereo:
		return "stereo"
	default:
		return fmt.Sprintf("mask(%#x)", uint32(m))
	}
}

// SampleSpec describes the format of an audio stream: its sample rate
// in Hertz and its channel mask. The sample type is always float32.
type SampleSpec struct {
	// SampleRate is the number of per-channel samples per second.
	SampleRate uint32

	// Channels is the channel mask of the stream.
	Channels ChannelMask
}

// Validate reports whether the spec is usable.
//
// Returns:
//   - error: ErrInvalidSpec (wrapped with detail) if the rate or the
//     channel mask is zero, nil otherwise
func (s SampleSpec) Validate() error {
	if s.SampleRate == 0 {
		return fmt.Errorf("%w: zero sample rate", ErrInvalidSpec)
	}
	if s.Channels.NumChannels() == 0 {
		return fmt.Errorf("%w: empty channel mask", ErrInvalidSpec)
	}
	return nil
}

// NumChannels returns the number of channels in the spec.
func (s SampleSpec) NumChannels() int {
	return s.Channels.NumChannels()
}

// FramesFor converts a duration to a whole number of per-channel
// frames, rounding to the nearest frame. Nearest rounding keeps the
// conversion stable across a duration that was itself derived from a
// frame count by integer division.
func (s SampleSpec) FramesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((uint64(d)*uint64(s.SampleRate) + uint64(time.Second)/2) / uint64(time.Second))
}

// SamplesFor converts a duration to a whole number of interleaved
// samples across all channels, using the same nearest-frame rounding
// as FramesFor.
func (s SampleSpec) SamplesFor(d time.Duration) int {
	return s.FramesFor(d) * s.NumChannels()
}

// DurationFor converts a per-channel frame count to a duration.
func (s SampleSpec) DurationFor(frames int) time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return time.Duration(uint64(frames) * uint64(time.Second) / uint64(s.SampleRate))
}

// Equal reports whether two specs describe the same format.
func (s SampleSpec) Equal(other SampleSpec) bool {
	return s.SampleRate == other.SampleRate && s.Channels == other.Channels
}

// String returns a human-readable description of the spec.
func (s SampleSpec) String() string {
	return fmt.Sprintf("%dHz/%s", s.SampleRate, s.Channels)
}
