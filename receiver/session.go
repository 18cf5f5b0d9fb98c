package receiver

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/fec"
	"github.com/opd-ai/fecstream/packet"
)

// SessionState is the lifecycle state of one peer session.
type SessionState uint8

const (
	// StateActive means the last frame request was fully served with
	// buffered audio.
	StateActive SessionState = iota + 1

	// StateStalled means the session is prebuffering or ran out of
	// contiguous audio and padded the last frame with silence.
	StateStalled

	// StateTerminated means the watchdog gave up on the session; it is
	// evicted after the frame that observed the transition.
	StateTerminated
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStalled:
		return "stalled"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of one session's counters.
type Stats struct {
	// State is the session state at snapshot time.
	State SessionState

	// SourcePackets counts accepted source packets.
	SourcePackets uint64

	// RepairPackets counts accepted repair packets.
	RepairPackets uint64

	// RecoveredPackets counts source packets rebuilt by FEC decoding.
	RecoveredPackets uint64

	// LostPackets counts playout positions given up on after the
	// reorder window expired, whether replaced by silence or dropped
	// to shed excess latency.
	LostPackets uint64

	// LatePackets counts packets discarded for arriving behind the
	// playout cursor.
	LatePackets uint64

	// BufferedPackets is the current distance from the playout cursor
	// to the newest known position, in source packets.
	BufferedPackets uint64

	// RequestedDrift is the smoothed difference between buffered and
	// target latency, in per-channel frames. Positive values ask the
	// stream clock to slow down (buffer running long), negative to
	// speed up.
	RequestedDrift int
}

// blockState accumulates the symbols of one coding block until the
// playout cursor moves past it. start is the timeline position of the
// block's first source slot, known once any source packet of the
// block arrives.
type blockState struct {
	source [][]byte
	repair [][]byte

	start    uint64
	anchored bool

	have       int
	haveSource int

	// Decode retry bookkeeping: a failed attempt is not repeated until
	// another symbol arrives.
	triedHave int
	tried     bool
	recovered bool
}

// session reassembles the stream of one peer into a gapless sample
// timeline and plays it out at the consumer's pace.
//
// All session methods are called under the owning slot's receiver
// lock; the session itself holds no synchronization.
type session struct {
	cfg     *Config
	addr    net.Addr
	key     string
	dec     fec.BlockDecoder
	payload audio.PayloadDecoder

	n            int // source packets per block (1 when unprotected)
	m            int // repair packets per block
	packetFrames int
	wireSamples  int // interleaved samples per packet on the wire

	blocks map[uint32]*blockState

	// Playout position in source packets. cursor is the next position
	// to play; newest is the highest position known to exist.
	cursor  uint64
	newest  uint64
	seenAny bool
	playing bool

	// Sequence unwrap state: timeline positions are unbounded, the
	// 32-bit wire sequence wraps.
	lastSeq uint32
	lastPos uint64

	// Blocks below this index are resolved; their repair is late.
	minBlock uint32

	// Current packet being drained, in wire-layout samples.
	cur    []float32
	curOff int

	state         SessionState
	silentFrames  int
	timeoutFrames int

	targetPkts uint64
	windowPkts uint64

	drift float64 // EMA of buffered-minus-target, in frames

	stats Stats
}

// driftSmoothing is the EMA weight of the newest latency observation.
const driftSmoothing = 0.1

// newSession builds the session for one peer address.
func newSession(cfg *Config, addr net.Addr, key string) (*session, error) {
	s := &session{
		cfg:          cfg,
		addr:         addr,
		key:          key,
		payload:      cfg.payloadDecoder(),
		n:            1,
		packetFrames: cfg.packetFrames(),
		blocks:       make(map[uint32]*blockState),
		state:        StateStalled,
		targetPkts:   cfg.targetPackets(),
	}
	s.wireSamples = s.packetFrames * cfg.PacketSpec.NumChannels()
	s.timeoutFrames = cfg.OutputSpec.FramesFor(cfg.NoPlaybackTimeout)

	if cfg.FECScheme != fec.SchemeNone {
		dec, err := fec.NewBlockDecoder(cfg.FECScheme, cfg.FECBlock)
		if err != nil {
			return nil, err
		}
		s.dec = dec
		s.n = cfg.FECBlock.SourcePackets
		s.m = cfg.FECBlock.RepairPackets
	}

	// The reorder window never closes before a whole coding block had
	// a chance to assemble.
	s.windowPkts = s.targetPkts
	if uint64(s.n) > s.windowPkts {
		s.windowPkts = uint64(s.n)
	}

	logrus.WithFields(logrus.Fields{
		"function":       "newSession",
		"peer":           key,
		"target_packets": s.targetPkts,
		"window_packets": s.windowPkts,
		"fec_scheme":     cfg.FECScheme.String(),
	}).Info("Session created")

	return s, nil
}

// route files one packet from this session's peer into the block map.
// Packets behind the playout cursor are counted late and dropped.
func (s *session) route(p *packet.Packet) {
	switch p.Role {
	case packet.RoleSource:
		s.routeSource(p)
	case packet.RoleRepair:
		s.routeRepair(p)
	}
}

// unwrapSeq maps a wire sequence number onto the unbounded timeline,
// tolerating 32-bit wraparound the way RTP receivers do.
//
// Returns:
//   - uint64: the timeline position
//   - bool: false when the position would land before the timeline
//     origin
func (s *session) unwrapSeq(seq uint32) (uint64, bool) {
	if !s.seenAny {
		s.lastSeq = seq
		s.lastPos = uint64(seq)
		return s.lastPos, true
	}

	d := int64(int32(seq - s.lastSeq))
	pos := int64(s.lastPos) + d
	if pos < 0 {
		return 0, false
	}
	if uint64(pos) > s.lastPos {
		s.lastSeq = seq
		s.lastPos = uint64(pos)
	}
	return uint64(pos), true
}

func (s *session) routeSource(p *packet.Packet) {
	pos, ok := s.unwrapSeq(p.Seq)
	if !ok {
		s.stats.LatePackets++
		return
	}

	if !s.seenAny {
		// Playout starts at the first packet that actually arrived;
		// earlier positions of its block are never waited for.
		s.seenAny = true
		s.cursor = pos
		s.newest = pos
	}

	if pos < s.cursor {
		s.stats.LatePackets++
		return
	}

	// Blocks are keyed by the carried coordinates, not by seq
	// arithmetic: after a sender-side forced flush the block grid
	// shifts against the sequence numbers.
	b := p.BlockIndex
	i := int(p.BlockPos)
	if s.dec == nil {
		b = uint32(pos)
		i = 0
	} else if i >= s.n {
		return
	}

	bs := s.block(b)
	if !bs.anchored && uint64(i) <= pos {
		bs.anchored = true
		bs.start = pos - uint64(i)
	}
	if bs.source[i] == nil {
		bs.source[i] = p.Payload
		bs.have++
		bs.haveSource++
		s.stats.SourcePackets++
	}
	if pos > s.newest {
		s.newest = pos
	}
	// Repair that arrived before the block's first source packet
	// already proved the rest of the block exists upstream.
	if bs.anchored && bs.have > bs.haveSource {
		if end := bs.start + uint64(s.n) - 1; end > s.newest {
			s.newest = end
		}
	}
}

func (s *session) routeRepair(p *packet.Packet) {
	if s.dec == nil {
		// Unprotected stream: repair traffic is noise.
		return
	}
	if !s.seenAny {
		// A session only forms on source packets; repair arriving
		// first on an existing session still needs an anchor.
		return
	}

	b := p.BlockIndex
	if int32(b-s.minBlock) < 0 {
		s.stats.LatePackets++
		return
	}
	// Repair BlockPos is 0-based within the block's repair packets.
	i := int(p.BlockPos)
	if i >= s.m {
		return
	}

	bs := s.block(b)
	if bs.repair[i] == nil {
		bs.repair[i] = p.Payload
		bs.have++
		s.stats.RepairPackets++
	}

	// Repair presence proves the whole block exists upstream.
	if bs.anchored {
		if end := bs.start + uint64(s.n) - 1; end > s.newest {
			s.newest = end
		}
	}
}

func (s *session) block(b uint32) *blockState {
	bs := s.blocks[b]
	if bs == nil {
		bs = &blockState{
			source: make([][]byte, s.n),
			repair: make([][]byte, s.m),
		}
		s.blocks[b] = bs
	}
	return bs
}

// readSamples fills dst (output-layout, whole frames) with the next
// stretch of the session's timeline, padding with silence on underrun,
// and runs the watchdog.
func (s *session) readSamples(dst []float32) {
	outCh := s.cfg.OutputSpec.NumChannels()
	wireCh := s.cfg.PacketSpec.NumChannels()

	produced := 0
	for produced < len(dst) {
		if s.cur == nil || s.curOff == len(s.cur) {
			if !s.advance() {
				break
			}
		}

		frames := (len(s.cur) - s.curOff) / wireCh
		if want := (len(dst) - produced) / outCh; want < frames {
			frames = want
		}

		src := s.cur[s.curOff : s.curOff+frames*wireCh]
		out := dst[produced : produced+frames*outCh]
		if err := audio.Remap(src, s.cfg.PacketSpec.Channels, out, s.cfg.OutputSpec.Channels); err != nil {
			panic("receiver: remap failed: " + err.Error())
		}

		s.curOff += frames * wireCh
		produced += frames * outCh
	}

	if produced < len(dst) {
		for i := produced; i < len(dst); i++ {
			dst[i] = 0
		}
		s.state = StateStalled
		s.silentFrames += (len(dst) - produced) / outCh
	} else {
		s.state = StateActive
	}

	if s.silentFrames >= s.timeoutFrames {
		logrus.WithFields(logrus.Fields{
			"function":      "session.readSamples",
			"peer":          s.key,
			"silent_frames": s.silentFrames,
		}).Warn("Session terminated by no-playback watchdog")
		s.state = StateTerminated
	}

	s.drift += driftSmoothing * (float64(s.bufferedFrames()-s.targetFrames()) - s.drift)
}

// advance makes the next playable packet current.
//
// Returns:
//   - bool: false when no packet can be played yet (prebuffering, a
//     gap still inside the reorder window, or the buffer is drained)
func (s *session) advance() bool {
	if !s.playing {
		if !s.seenAny || s.bufferedPackets() < s.targetPkts {
			return false
		}
		s.playing = true
		logrus.WithFields(logrus.Fields{
			"function":         "session.advance",
			"peer":             s.key,
			"buffered_packets": s.bufferedPackets(),
		}).Info("Session playback started")
	}

	for {
		pos := s.cursor
		if pos > s.newest {
			return false
		}

		var payload []byte
		if b, bs, i := s.findBlock(pos); bs != nil {
			if bs.source[i] == nil {
				s.tryDecode(b, bs)
			}
			payload = bs.source[i]
		}

		if payload != nil {
			s.setCurrent(payload)
			s.cursor++
			s.releasePassedBlocks()
			return true
		}

		if s.newest < pos+s.windowPkts {
			// Still inside the reorder window; the packet may yet
			// arrive or become recoverable.
			return false
		}

		// Window expired: the position is lost.
		s.stats.LostPackets++
		s.cursor++
		s.releasePassedBlocks()

		if s.bufferedPackets() > s.targetPkts+s.windowPkts {
			// Buffer is running away; shed the lost position outright
			// instead of stretching the stream with silence.
			continue
		}

		s.setSilence()
		s.silentFrames += s.packetFrames
		return true
	}
}

// setCurrent decodes one packet payload into the drain buffer. An
// undecodable payload degrades to silence for its duration.
func (s *session) setCurrent(payload []byte) {
	if cap(s.cur) < s.wireSamples {
		s.cur = make([]float32, s.wireSamples)
	}
	s.cur = s.cur[:s.wireSamples]
	s.curOff = 0

	if err := s.payload.DecodePayload(payload, s.cur); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "session.setCurrent",
			"peer":     s.key,
			"error":    err.Error(),
		}).Warn("Payload decode failed, substituting silence")
		for i := range s.cur {
			s.cur[i] = 0
		}
		s.silentFrames += s.packetFrames
		return
	}
	s.silentFrames = 0
}

// setSilence makes one packet's worth of silence current.
func (s *session) setSilence() {
	if cap(s.cur) < s.wireSamples {
		s.cur = make([]float32, s.wireSamples)
	}
	s.cur = s.cur[:s.wireSamples]
	s.curOff = 0
	for i := range s.cur {
		s.cur[i] = 0
	}
}

// tryDecode attempts FEC recovery of a block when enough symbols are
// present. A failed attempt is not repeated until the block grows.
func (s *session) tryDecode(b uint32, bs *blockState) {
	if s.dec == nil || bs.recovered || bs.haveSource == s.n || bs.have < s.n {
		return
	}
	if bs.tried && bs.triedHave == bs.have {
		return
	}
	bs.tried = true
	bs.triedHave = bs.have

	present := make(map[int][]byte, bs.have)
	for i, p := range bs.source {
		if p != nil {
			present[i] = p
		}
	}
	for i, p := range bs.repair {
		if p != nil {
			present[s.n+i] = p
		}
	}

	restored, err := s.dec.DecodeBlock(present)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "session.tryDecode",
			"peer":     s.key,
			"block":    b,
			"have":     bs.have,
			"error":    err.Error(),
		}).Debug("Block decode attempt failed")
		return
	}

	for i := range bs.source {
		if bs.source[i] == nil {
			bs.source[i] = restored[i]
			bs.haveSource++
			s.stats.RecoveredPackets++
		}
	}
	bs.recovered = true

	logrus.WithFields(logrus.Fields{
		"function": "session.tryDecode",
		"peer":     s.key,
		"block":    b,
	}).Debug("Block recovered")
}

// findBlock locates the anchored block covering a timeline position.
// A sender-side forced flush pads its open block, so a flushed block's
// nominal range can overlap the next block's real packets; the block
// with the higher start owns the position.
func (s *session) findBlock(pos uint64) (uint32, *blockState, int) {
	var (
		bestB uint32
		best  *blockState
	)
	for b, bs := range s.blocks {
		if !bs.anchored || pos < bs.start || pos >= bs.start+uint64(s.n) {
			continue
		}
		if best == nil || bs.start > best.start {
			bestB, best = b, bs
		}
	}
	if best == nil {
		return 0, nil, 0
	}
	return bestB, best, int(pos - best.start)
}

// releasePassedBlocks drops block state fully behind the cursor and
// moves the late-repair watermark past it. Blocks arrive in index
// order, so a block falling behind resolves every lower index too.
func (s *session) releasePassedBlocks() {
	for b, bs := range s.blocks {
		switch {
		case bs.anchored && bs.start+uint64(s.n) <= s.cursor:
			if int32(b-s.minBlock) >= 0 {
				s.minBlock = b + 1
			}
		case !bs.anchored && int32(b-s.minBlock) < 0:
		default:
			continue
		}
		delete(s.blocks, b)
	}
}

// bufferedPackets returns the packet distance from the cursor to the
// newest known position.
func (s *session) bufferedPackets() uint64 {
	if !s.seenAny || s.newest < s.cursor {
		return 0
	}
	return s.newest - s.cursor + 1
}

func (s *session) bufferedFrames() int {
	return int(s.bufferedPackets()) * s.packetFrames
}

func (s *session) targetFrames() int {
	return int(s.targetPkts) * s.packetFrames
}

// Stats returns a snapshot of the session's counters.
func (s *session) Stats() Stats {
	st := s.stats
	st.State = s.state
	st.BufferedPackets = s.bufferedPackets()
	st.RequestedDrift = int(s.drift)
	return st
}
