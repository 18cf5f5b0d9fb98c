package audio

// MixInto adds src into dst sample by sample, clipping the result to
// the valid [-1, +1] range. Simultaneous peers combine additively
// through this function; dst and src must be the same length.
func MixInto(dst, src []float32) {
	if len(dst) != len(src) {
		panic("audio: mix buffer length mismatch")
	}
	for i, s := range src {
		v := dst[i] + s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		dst[i] = v
	}
}
