package receiver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/fec"
	"github.com/opd-ai/fecstream/packet"
)

const (
	testRate = 44100

	// 40 per-channel frames per packet.
	packetFramesN = 40
)

var (
	stereoSpec = audio.SampleSpec{SampleRate: testRate, Channels: audio.ChanStereo}
	monoSpec   = audio.SampleSpec{SampleRate: testRate, Channels: audio.ChanMono}

	packetLen = packetFramesN * time.Second / testRate
)

func testAddr(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

// baseConfig builds a stereo, unprotected configuration with a target
// latency of targetPkts packets and a generous watchdog.
func baseConfig(targetPkts int) Config {
	return Config{
		OutputSpec:        stereoSpec,
		PacketSpec:        stereoSpec,
		PacketLength:      packetLen,
		TargetLatency:     time.Duration(targetPkts) * packetLen,
		NoPlaybackTimeout: 100 * time.Duration(targetPkts) * packetLen,
	}
}

// newTestReceiver builds a receiver with one slot and both endpoint
// writers mounted.
func newTestReceiver(t *testing.T, cfg Config) (*Receiver, *Slot, packet.Writer, packet.Writer) {
	t.Helper()

	r, err := NewReceiver(cfg)
	require.NoError(t, err)

	slot := r.CreateSlot()
	src, err := slot.CreateEndpoint(packet.RoleSource)
	require.NoError(t, err)
	rep, err := slot.CreateEndpoint(packet.RoleRepair)
	require.NoError(t, err)

	return r, slot, src.Writer(), rep.Writer()
}

// rampSamples fills interleaved samples with the deterministic ramp
// value of each global frame position, identical on every channel.
func rampSamples(startFrame, frames, ch int) []float32 {
	samples := make([]float32, frames*ch)
	for fr := 0; fr < frames; fr++ {
		v := float32((startFrame+fr)%4096) / 4096
		for c := 0; c < ch; c++ {
			samples[fr*ch+c] = v
		}
	}
	return samples
}

// rampPayload encodes the ramp window of one source packet.
func rampPayload(t *testing.T, seq uint32) []byte {
	t.Helper()
	payload, err := audio.PCMFloat32{}.EncodePayload(
		rampSamples(int(seq)*packetFramesN, packetFramesN, 2))
	require.NoError(t, err)
	return payload
}

func sourcePacket(t *testing.T, addr net.Addr, seq uint32, n int) *packet.Packet {
	t.Helper()
	return &packet.Packet{
		Role:       packet.RoleSource,
		Seq:        seq,
		BlockIndex: seq / uint32(n),
		BlockPos:   uint16(seq % uint32(n)),
		Addr:       addr,
		Payload:    rampPayload(t, seq),
	}
}

func deliver(t *testing.T, w packet.Writer, pkts ...*packet.Packet) {
	t.Helper()
	for _, p := range pkts {
		require.NoError(t, w.WritePacket(p))
	}
}

// readFrames pulls count frames of framesEach per-channel frames and
// returns the concatenated samples.
func readFrames(t *testing.T, r *Receiver, spec audio.SampleSpec, count, framesEach int) []float32 {
	t.Helper()

	var out []float32
	for i := 0; i < count; i++ {
		f := audio.SilentFrame(spec, framesEach)
		require.True(t, r.ReadFrame(f))
		out = append(out, f.Samples...)
	}
	return out
}

// assertRamp checks that samples carry the ramp starting at startFrame,
// identical on every channel.
func assertRamp(t *testing.T, samples []float32, startFrame, ch int) {
	t.Helper()

	frames := len(samples) / ch
	for fr := 0; fr < frames; fr++ {
		want := float32((startFrame+fr)%4096) / 4096
		for c := 0; c < ch; c++ {
			if samples[fr*ch+c] != want {
				t.Fatalf("frame %d channel %d: got %v, want %v",
					startFrame+fr, c, samples[fr*ch+c], want)
			}
		}
	}
}

func assertSilence(t *testing.T, samples []float32) {
	t.Helper()
	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d: got %v, want silence", i, s)
		}
	}
}

func TestNewReceiver_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "Zero output rate",
			mutate: func(c *Config) { c.OutputSpec.SampleRate = 0 },
		},
		{
			name:   "Rate mismatch",
			mutate: func(c *Config) { c.PacketSpec.SampleRate = 48000 },
		},
		{
			name:   "Zero packet length",
			mutate: func(c *Config) { c.PacketLength = 0 },
		},
		{
			name:   "Zero target latency",
			mutate: func(c *Config) { c.TargetLatency = 0 },
		},
		{
			name:   "Zero watchdog timeout",
			mutate: func(c *Config) { c.NoPlaybackTimeout = 0 },
		},
		{
			name: "Scheme with bad block",
			mutate: func(c *Config) {
				c.FECScheme = fec.SchemeReedSolomon
				c.FECBlock = fec.BlockParams{SourcePackets: 4, RepairPackets: 0}
			},
		},
		{
			name: "Unsupported remap pair",
			mutate: func(c *Config) {
				c.PacketSpec.Channels = audio.ChanStereo
				c.OutputSpec.Channels = 0xF
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(2)
			tt.mutate(&cfg)

			r, err := NewReceiver(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, r)
		})
	}
}

func TestReceiver_NoSessionsProducesSilence(t *testing.T) {
	r, _, _, _ := newTestReceiver(t, baseConfig(2))

	out := readFrames(t, r, stereoSpec, 3, 10)
	assertSilence(t, out)
	assert.Equal(t, 0, r.NumSessions())
}

func TestReceiver_PlaysContiguousStream(t *testing.T) {
	r, _, src, _ := newTestReceiver(t, baseConfig(2))
	addr := testAddr(4000)

	for seq := uint32(0); seq < 4; seq++ {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}

	out := readFrames(t, r, stereoSpec, 4, packetFramesN)
	assertRamp(t, out, 0, 2)
	assert.Equal(t, 1, r.NumSessions())

	// Buffer drained: further reads stall into silence.
	assertSilence(t, readFrames(t, r, stereoSpec, 1, packetFramesN))
}

func TestReceiver_PrebuffersUntilTargetLatency(t *testing.T) {
	r, _, src, _ := newTestReceiver(t, baseConfig(2))
	addr := testAddr(4000)

	deliver(t, src, sourcePacket(t, addr, 0, 1))
	assertSilence(t, readFrames(t, r, stereoSpec, 1, packetFramesN))

	deliver(t, src, sourcePacket(t, addr, 1, 1))
	out := readFrames(t, r, stereoSpec, 2, packetFramesN)
	assertRamp(t, out, 0, 2)
}

func TestReceiver_ReordersWithinWindow(t *testing.T) {
	r, _, src, _ := newTestReceiver(t, baseConfig(4))
	addr := testAddr(4000)

	for _, seq := range []uint32{0, 2, 1, 3} {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}

	out := readFrames(t, r, stereoSpec, 4, packetFramesN)
	assertRamp(t, out, 0, 2)
}

// Playout anchors at the first packet that arrives; packets with
// earlier positions are late by definition, not waited for.
func TestReceiver_AnchorsAtFirstArrival(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(1))
	addr := testAddr(4000)

	for _, seq := range []uint32{5, 3, 4, 6} {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}

	out := readFrames(t, r, stereoSpec, 2, packetFramesN)
	assertRamp(t, out, 5*packetFramesN, 2)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(2), stats.LatePackets)
	assert.Equal(t, uint64(2), stats.SourcePackets)
}

// A gap that outlives the reorder window is replaced by one packet of
// silence while the stream continues on time.
func TestReceiver_LossFilledWithSilence(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(2))
	addr := testAddr(4000)

	for _, seq := range []uint32{0, 1, 2, 4, 5} {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}

	out := readFrames(t, r, stereoSpec, 6, packetFramesN)
	assertRamp(t, out[:3*80], 0, 2)
	assertSilence(t, out[3*80:4*80])
	assertRamp(t, out[4*80:], 4*packetFramesN, 2)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(1), stats.LostPackets)
	assert.Equal(t, uint64(5), stats.SourcePackets)
}

// When the buffer runs far past the target, a lost position is dropped
// outright instead of being stretched with silence.
func TestReceiver_ExcessLatencyShedsLostPackets(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(2))
	addr := testAddr(4000)

	for _, seq := range []uint32{0, 1, 2, 4, 5, 6, 7, 8, 9} {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}

	out := readFrames(t, r, stereoSpec, 9, packetFramesN)
	assertRamp(t, out[:3*80], 0, 2)
	assertRamp(t, out[3*80:], 4*packetFramesN, 2)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(1), stats.LostPackets)
}

func TestReceiver_LatePacketsDropped(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(1))
	addr := testAddr(4000)

	deliver(t, src, sourcePacket(t, addr, 0, 1), sourcePacket(t, addr, 1, 1))
	readFrames(t, r, stereoSpec, 2, packetFramesN)

	deliver(t, src, sourcePacket(t, addr, 0, 1))
	readFrames(t, r, stereoSpec, 1, packetFramesN)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(1), stats.LatePackets)
	assert.Equal(t, uint64(2), stats.SourcePackets)
}

func TestReceiver_WatchdogTerminatesIdleSession(t *testing.T) {
	cfg := baseConfig(1)
	cfg.NoPlaybackTimeout = 4 * packetLen

	r, _, src, _ := newTestReceiver(t, cfg)
	addr := testAddr(4000)

	deliver(t, src, sourcePacket(t, addr, 0, 1), sourcePacket(t, addr, 1, 1))
	out := readFrames(t, r, stereoSpec, 2, packetFramesN)
	assertRamp(t, out, 0, 2)
	require.Equal(t, 1, r.NumSessions())

	// Four packets of pure silence trip the watchdog.
	assertSilence(t, readFrames(t, r, stereoSpec, 4, packetFramesN))
	assert.Equal(t, 0, r.NumSessions())
}

func TestReceiver_NewSessionAfterTermination(t *testing.T) {
	cfg := baseConfig(1)
	cfg.NoPlaybackTimeout = 2 * packetLen

	r, slot, src, _ := newTestReceiver(t, cfg)
	addr := testAddr(4000)

	deliver(t, src, sourcePacket(t, addr, 0, 1))
	readFrames(t, r, stereoSpec, 1, packetFramesN)
	readFrames(t, r, stereoSpec, 2, packetFramesN)
	require.Equal(t, 0, r.NumSessions())

	// The same peer reappearing starts a session with fresh counters.
	deliver(t, src, sourcePacket(t, addr, 50, 1))
	readFrames(t, r, stereoSpec, 1, packetFramesN)
	require.Equal(t, 1, r.NumSessions())

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(1), stats.SourcePackets)
	assert.Equal(t, uint64(0), stats.LatePackets)
}

// Repair traffic alone never opens a session: without source packets
// there is no stream worth playing.
func TestReceiver_RepairAloneCreatesNoSession(t *testing.T) {
	cfg := baseConfig(4)
	cfg.FECScheme = fec.SchemeReedSolomon
	cfg.FECBlock = fec.BlockParams{SourcePackets: 4, RepairPackets: 2}

	r, _, _, rep := newTestReceiver(t, cfg)
	addr := testAddr(4000)

	for j := 0; j < 4; j++ {
		deliver(t, rep, &packet.Packet{
			Role:       packet.RoleRepair,
			Seq:        uint32(j),
			BlockIndex: uint32(j / 2),
			BlockPos:   uint16(j % 2),
			Addr:       addr,
			Payload:    make([]byte, 322),
		})
	}

	assertSilence(t, readFrames(t, r, stereoSpec, 2, packetFramesN))
	assert.Equal(t, 0, r.NumSessions())
}

// encodeRepair derives the repair symbols of one block of ramp
// payloads through the codec registry, the same way a sender does.
func encodeRepair(t *testing.T, params fec.BlockParams, block uint32, payloads [][]byte) []*packet.Packet {
	t.Helper()

	enc, err := fec.NewBlockEncoder(fec.SchemeReedSolomon, params)
	require.NoError(t, err)
	symbols, err := enc.EncodeBlock(payloads)
	require.NoError(t, err)

	pkts := make([]*packet.Packet, len(symbols))
	for j, sym := range symbols {
		pkts[j] = &packet.Packet{
			Role:       packet.RoleRepair,
			Seq:        block*uint32(params.RepairPackets) + uint32(j),
			BlockIndex: block,
			BlockPos:   uint16(j),
			Payload:    sym,
		}
	}
	return pkts
}

func TestReceiver_FECRecoversMissingSource(t *testing.T) {
	params := fec.BlockParams{SourcePackets: 4, RepairPackets: 2}
	cfg := baseConfig(4)
	cfg.FECScheme = fec.SchemeReedSolomon
	cfg.FECBlock = params

	r, slot, src, rep := newTestReceiver(t, cfg)
	addr := testAddr(4000)

	block := make([]*packet.Packet, 4)
	payloads := make([][]byte, 4)
	for i := range block {
		block[i] = sourcePacket(t, addr, uint32(i), 4)
		payloads[i] = block[i].Payload
	}

	// Source 2 is lost in transit; the repair symbols make up for it.
	deliver(t, src, block[0], block[1], block[3])
	for _, p := range encodeRepair(t, params, 0, payloads) {
		p.Addr = addr
		deliver(t, rep, p)
	}

	out := readFrames(t, r, stereoSpec, 4, packetFramesN)
	assertRamp(t, out, 0, 2)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(1), stats.RecoveredPackets)
	assert.Equal(t, uint64(0), stats.LostPackets)
	assert.Equal(t, uint64(3), stats.SourcePackets)
	assert.Equal(t, uint64(2), stats.RepairPackets)
}

// A forced flush on the sender shifts the block grid against the
// sequence numbers; recovery must follow the carried block
// coordinates, not seq arithmetic.
func TestReceiver_RecoversWithShiftedBlockGrid(t *testing.T) {
	params := fec.BlockParams{SourcePackets: 4, RepairPackets: 2}
	cfg := baseConfig(4)
	cfg.FECScheme = fec.SchemeReedSolomon
	cfg.FECBlock = params

	r, slot, src, rep := newTestReceiver(t, cfg)
	addr := testAddr(4000)

	// Block 5 covers seqs 2..5: the stream was flushed mid-block
	// upstream, so seq 2 sits at block position 0.
	block := make([]*packet.Packet, 4)
	payloads := make([][]byte, 4)
	for i := range block {
		p := sourcePacket(t, addr, uint32(2+i), 1)
		p.BlockIndex = 5
		p.BlockPos = uint16(i)
		block[i] = p
		payloads[i] = p.Payload
	}

	// Seq 4 is lost; the block's repair must restore exactly it.
	deliver(t, src, block[0], block[1], block[3])
	for _, p := range encodeRepair(t, params, 5, payloads) {
		p.Addr = addr
		deliver(t, rep, p)
	}

	out := readFrames(t, r, stereoSpec, 4, packetFramesN)
	assertRamp(t, out, 2*packetFramesN, 2)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(1), stats.RecoveredPackets)
	assert.Equal(t, uint64(0), stats.LostPackets)
}

// The 32-bit wire sequence wrapping around must not strand the
// timeline: packets after the wrap continue the stream.
func TestReceiver_SequenceNumberWrapsAround(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(2))
	addr := testAddr(4000)

	seqs := []uint32{0xFFFFFFFE, 0xFFFFFFFF, 0, 1}
	for _, seq := range seqs {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}

	out := readFrames(t, r, stereoSpec, 4, packetFramesN)
	for k, seq := range seqs {
		assertRamp(t, out[k*80:(k+1)*80], int(seq)*packetFramesN, 2)
	}

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(4), stats.SourcePackets)
	assert.Equal(t, uint64(0), stats.LatePackets)
	assert.Equal(t, uint64(0), stats.LostPackets)
}

// Too few symbols make the block unrecoverable; the missing positions
// are lost once the window closes, the present ones still play.
func TestReceiver_UnrecoverableBlockLosesOnlyMissing(t *testing.T) {
	params := fec.BlockParams{SourcePackets: 4, RepairPackets: 2}
	cfg := baseConfig(4)
	cfg.FECScheme = fec.SchemeReedSolomon
	cfg.FECBlock = params

	r, slot, src, rep := newTestReceiver(t, cfg)
	addr := testAddr(4000)

	block := make([]*packet.Packet, 4)
	payloads := make([][]byte, 4)
	for i := range block {
		block[i] = sourcePacket(t, addr, uint32(i), 4)
		payloads[i] = block[i].Payload
	}

	// Sources 1 and 2 lost, only one repair survives: 3 of 4 symbols.
	deliver(t, src, block[0], block[3])
	repairs := encodeRepair(t, params, 0, payloads)
	repairs[0].Addr = addr
	deliver(t, rep, repairs[0])

	// A complete second block closes the first block's window.
	for seq := uint32(4); seq < 8; seq++ {
		deliver(t, src, sourcePacket(t, addr, seq, 4))
	}

	out := readFrames(t, r, stereoSpec, 8, packetFramesN)
	assertRamp(t, out[:80], 0, 2)
	assertSilence(t, out[80:3*80])
	assertRamp(t, out[3*80:], 3*packetFramesN, 2)

	stats := slot.SessionStats()[addr.String()]
	assert.Equal(t, uint64(2), stats.LostPackets)
	assert.Equal(t, uint64(0), stats.RecoveredPackets)
}

func TestReceiver_TwoPeersMixAdditively(t *testing.T) {
	r, _, src, _ := newTestReceiver(t, baseConfig(1))
	addrA := testAddr(4000)
	addrB := testAddr(4001)

	constPayload := func(v float32) []byte {
		samples := make([]float32, packetFramesN*2)
		for i := range samples {
			samples[i] = v
		}
		payload, err := audio.PCMFloat32{}.EncodePayload(samples)
		require.NoError(t, err)
		return payload
	}

	pa := sourcePacket(t, addrA, 0, 1)
	pa.Payload = constPayload(0.25)
	pb := sourcePacket(t, addrB, 0, 1)
	pb.Payload = constPayload(0.5)
	deliver(t, src, pa, pb)

	out := readFrames(t, r, stereoSpec, 1, packetFramesN)
	assert.Equal(t, 2, r.NumSessions())
	for i, s := range out {
		require.Equal(t, float32(0.75), s, "sample %d", i)
	}
}

func TestReceiver_StereoWireToMonoOutput(t *testing.T) {
	cfg := baseConfig(1)
	cfg.OutputSpec = monoSpec

	r, _, src, _ := newTestReceiver(t, cfg)
	deliver(t, src, sourcePacket(t, testAddr(4000), 0, 1))

	// Equal channel values average to themselves.
	out := readFrames(t, r, monoSpec, 1, packetFramesN)
	assertRamp(t, out, 0, 1)
}

func TestReceiver_MonoWireToStereoOutput(t *testing.T) {
	cfg := baseConfig(1)
	cfg.PacketSpec = monoSpec

	r, _, src, _ := newTestReceiver(t, cfg)

	payload, err := audio.PCMFloat32{}.EncodePayload(
		rampSamples(0, packetFramesN, 1))
	require.NoError(t, err)
	deliver(t, src, &packet.Packet{
		Role:    packet.RoleSource,
		Seq:     0,
		Addr:    testAddr(4000),
		Payload: payload,
	})

	out := readFrames(t, r, stereoSpec, 1, packetFramesN)
	assertRamp(t, out, 0, 2)
}

func TestSlot_DuplicateEndpoint(t *testing.T) {
	r, err := NewReceiver(baseConfig(2))
	require.NoError(t, err)
	slot := r.CreateSlot()

	_, err = slot.CreateEndpoint(packet.RoleSource)
	require.NoError(t, err)
	_, err = slot.CreateEndpoint(packet.RoleSource)
	assert.ErrorIs(t, err, ErrEndpointExists)
}

func TestSlot_CloseStopsAcceptingPackets(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(1))

	slot.Close()
	err := src.WritePacket(sourcePacket(t, testAddr(4000), 0, 1))
	assert.ErrorIs(t, err, packet.ErrQueueClosed)

	_, err = slot.CreateEndpoint(packet.RoleRepair)
	assert.ErrorIs(t, err, ErrSlotClosed)

	assertSilence(t, readFrames(t, r, stereoSpec, 1, packetFramesN))
	assert.Equal(t, 0, r.NumSessions())
}

func TestReceiver_FrameSpecMismatchPanics(t *testing.T) {
	r, _, _, _ := newTestReceiver(t, baseConfig(2))

	assert.Panics(t, func() {
		r.ReadFrame(audio.SilentFrame(monoSpec, 10))
	})
}

func TestReceiver_RequestedDriftTracksOverfill(t *testing.T) {
	r, slot, src, _ := newTestReceiver(t, baseConfig(2))
	addr := testAddr(4000)

	for seq := uint32(0); seq < 10; seq++ {
		deliver(t, src, sourcePacket(t, addr, seq, 1))
	}
	readFrames(t, r, stereoSpec, 1, packetFramesN)

	stats := slot.SessionStats()[addr.String()]
	assert.Greater(t, stats.RequestedDrift, 0)
	assert.Equal(t, uint64(9), stats.BufferedPackets)
}
