package wav

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/fecstream/audio"
)

var (
	_ audio.FrameReader = (*Source)(nil)
	_ audio.FrameWriter = (*Sink)(nil)
)

var stereoSpec = audio.SampleSpec{SampleRate: 44100, Channels: audio.ChanStereo}

func tempWav(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.wav")
}

func rampFrame(t *testing.T, spec audio.SampleSpec, startFrame, frames int) *audio.Frame {
	t.Helper()

	ch := spec.NumChannels()
	samples := make([]float32, frames*ch)
	for fr := 0; fr < frames; fr++ {
		v := float32((startFrame+fr)%4096) / 4096
		for c := 0; c < ch; c++ {
			samples[fr*ch+c] = v
		}
	}
	f, err := audio.NewFrame(spec, samples)
	require.NoError(t, err)
	return f
}

func TestSinkSource_RoundTrip(t *testing.T) {
	path := tempWav(t)

	sink, err := CreateSink(path, stereoSpec)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, sink.WriteFrame(rampFrame(t, stereoSpec, i*100, 100)))
	}
	require.NoError(t, sink.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()
	assert.True(t, stereoSpec.Equal(src.Spec()))

	got := audio.SilentFrame(stereoSpec, 500)
	require.True(t, src.ReadFrame(got))
	for fr := 0; fr < 500; fr++ {
		want := float32(fr%4096) / 4096
		require.Equal(t, want, got.Samples[fr*2], "frame %d", fr)
		require.Equal(t, want, got.Samples[fr*2+1], "frame %d", fr)
	}

	// Everything consumed: the next read reports end of stream.
	assert.False(t, src.ReadFrame(got))
}

func TestSource_ZeroPadsFinalShortFrame(t *testing.T) {
	path := tempWav(t)

	sink, err := CreateSink(path, stereoSpec)
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrame(rampFrame(t, stereoSpec, 0, 30)))
	require.NoError(t, sink.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	got := audio.SilentFrame(stereoSpec, 40)
	for i := range got.Samples {
		got.Samples[i] = -1
	}
	require.True(t, src.ReadFrame(got))

	for fr := 0; fr < 30; fr++ {
		assert.Equal(t, float32(fr%4096)/4096, got.Samples[fr*2])
	}
	for i := 60; i < 80; i++ {
		assert.Equal(t, float32(0), got.Samples[i], "sample %d", i)
	}

	assert.False(t, src.ReadFrame(got))
}

func TestSink_BackPatchesSizes(t *testing.T) {
	path := tempWav(t)

	sink, err := CreateSink(path, stereoSpec)
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrame(rampFrame(t, stereoSpec, 0, 10)))
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, headerSize+10*2*4)

	dataBytes := binary.LittleEndian.Uint32(raw[40:44])
	chunkSize := binary.LittleEndian.Uint32(raw[4:8])
	assert.Equal(t, uint32(10*2*4), dataBytes)
	assert.Equal(t, metadataSize+dataBytes, chunkSize)

	// fmt chunk: IEEE float, stereo, 44100 Hz, 32 bits.
	assert.Equal(t, uint16(formatIEEEFloat), binary.LittleEndian.Uint16(raw[20:22]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(raw[22:24]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(raw[24:28]))
	assert.Equal(t, uint16(32), binary.LittleEndian.Uint16(raw[34:36]))
}

func TestSink_FlushKeepsFilePlayable(t *testing.T) {
	path := tempWav(t)

	sink, err := CreateSink(path, stereoSpec)
	require.NoError(t, err)
	require.NoError(t, sink.WriteFrame(rampFrame(t, stereoSpec, 0, 10)))
	require.NoError(t, sink.Flush())

	// The header already reflects the flushed data.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(10*2*4), binary.LittleEndian.Uint32(raw[40:44]))

	// Writes after a flush land at the end, not over the header.
	require.NoError(t, sink.WriteFrame(rampFrame(t, stereoSpec, 10, 10)))
	require.NoError(t, sink.Close())

	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, headerSize+20*2*4)
	assert.Equal(t, uint32(20*2*4), binary.LittleEndian.Uint32(raw[40:44]))

	err = sink.Flush()
	assert.ErrorIs(t, err, ErrSinkClosed)
}

func TestSink_ClosedRejectsWrites(t *testing.T) {
	sink, err := CreateSink(tempWav(t), stereoSpec)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	err = sink.WriteFrame(rampFrame(t, stereoSpec, 0, 10))
	assert.ErrorIs(t, err, ErrSinkClosed)
}

// buildWav assembles a raw WAV byte stream for decoder tests.
func buildWav(format, bits, channels uint16, rate uint32, extraChunk bool, data []byte) []byte {
	var out []byte
	put16 := func(v uint16) { out = binary.LittleEndian.AppendUint16(out, v) }
	put32 := func(v uint32) { out = binary.LittleEndian.AppendUint32(out, v) }

	out = append(out, "RIFF"...)
	put32(0) // chunk size, unchecked by the decoder
	out = append(out, "WAVE"...)

	out = append(out, "fmt "...)
	put32(16)
	put16(format)
	put16(channels)
	put32(rate)
	put32(rate * uint32(channels) * uint32(bits/8))
	put16(channels * (bits / 8))
	put16(bits)

	if extraChunk {
		out = append(out, "LIST"...)
		put32(4)
		out = append(out, "INFO"...)
	}

	out = append(out, "data"...)
	put32(uint32(len(data)))
	out = append(out, data...)
	return out
}

func TestSource_Int16PCM(t *testing.T) {
	var data []byte
	values := []int16{0, 16384, -16384, 32767, -32768, 100}
	for _, v := range values {
		data = binary.LittleEndian.AppendUint16(data, uint16(v))
	}

	path := tempWav(t)
	require.NoError(t, os.WriteFile(path, buildWav(formatPCM, 16, 2, 48000, false, data), 0o644))

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	spec := src.Spec()
	assert.Equal(t, uint32(48000), spec.SampleRate)
	assert.Equal(t, 2, spec.NumChannels())

	got := audio.SilentFrame(spec, 3)
	require.True(t, src.ReadFrame(got))
	for i, v := range values {
		assert.InDelta(t, float64(v)/32768, float64(got.Samples[i]), 1e-6, "sample %d", i)
	}
}

func TestSource_SkipsMetadataChunks(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, math.Float32bits(0.5))

	path := tempWav(t)
	require.NoError(t, os.WriteFile(path, buildWav(formatIEEEFloat, 32, 1, 44100, true, data), 0o644))

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	got := audio.SilentFrame(src.Spec(), 1)
	require.True(t, src.ReadFrame(got))
	assert.Equal(t, float32(0.5), got.Samples[0])
}

func TestOpenSource_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{
			name:    "Not a RIFF file",
			raw:     []byte("this is not a wav file at all, not even close"),
			wantErr: ErrBadHeader,
		},
		{
			name:    "Truncated header",
			raw:     []byte("RIFF\x00\x00"),
			wantErr: ErrBadHeader,
		},
		{
			name:    "Unsupported 24-bit PCM",
			raw:     buildWav(formatPCM, 24, 2, 44100, false, nil),
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "Unsupported compressed format",
			raw:     buildWav(0x55, 16, 2, 44100, false, nil),
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "More channels than the mask can hold",
			raw:     buildWav(formatIEEEFloat, 32, 33, 44100, false, nil),
			wantErr: ErrUnsupportedFormat,
		},
		{
			name:    "Zero channels",
			raw:     buildWav(formatIEEEFloat, 32, 0, 44100, false, nil),
			wantErr: ErrBadHeader,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tempWav(t)
			require.NoError(t, os.WriteFile(path, tt.raw, 0o644))

			src, err := OpenSource(path)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, src)
		})
	}
}
