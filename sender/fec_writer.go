package sender

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/fec"
	"github.com/opd-ai/fecstream/packet"
)

// fecWriter groups the source packet stream into coding blocks and
// emits the repair packets of each completed block. Source packets
// pass through immediately; repair packets follow as soon as the
// block's last source slot fills.
//
// Without an encoder (source-only operation) every packet forms its
// own trivial one-packet block, which keeps the block bookkeeping on
// the receiver uniform.
type fecWriter struct {
	enc fec.BlockEncoder
	n   int
	out packet.Writer

	blockIndex  uint32
	cur         [][]byte
	repairSeq   uint32
	payloadSize int
}

func newFECWriter(enc fec.BlockEncoder, params fec.BlockParams, out packet.Writer) *fecWriter {
	n := 1
	if enc != nil {
		n = params.SourcePackets
	}
	return &fecWriter{enc: enc, n: n, out: out}
}

// WritePacket stamps a source packet with its block coordinates,
// forwards it, and closes the block when it fills.
func (w *fecWriter) WritePacket(p *packet.Packet) error {
	p.BlockIndex = w.blockIndex
	p.BlockPos = uint16(len(w.cur))

	w.cur = append(w.cur, p.Payload)
	w.payloadSize = len(p.Payload)

	if err := w.out.WritePacket(p); err != nil {
		return err
	}

	if len(w.cur) == w.n {
		return w.closeBlock()
	}
	return nil
}

// Flush force-closes a partially filled block: the empty source slots
// are treated as silence (zero payloads) for repair computation but
// are never transmitted.
func (w *fecWriter) Flush() error {
	if len(w.cur) == 0 {
		return nil
	}
	for len(w.cur) < w.n {
		w.cur = append(w.cur, make([]byte, w.payloadSize))
	}
	return w.closeBlock()
}

func (w *fecWriter) closeBlock() error {
	defer func() {
		w.blockIndex++
		w.cur = w.cur[:0]
	}()

	if w.enc == nil {
		return nil
	}

	symbols, err := w.enc.EncodeBlock(w.cur)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", w.blockIndex, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "fecWriter.closeBlock",
		"block_index": w.blockIndex,
		"repairs":     len(symbols),
	}).Debug("Coding block closed, emitting repair packets")

	for j, sym := range symbols {
		rp := &packet.Packet{
			Role:       packet.RoleRepair,
			Seq:        w.repairSeq,
			BlockIndex: w.blockIndex,
			BlockPos:   uint16(j),
			Payload:    sym,
		}
		w.repairSeq++
		if err := w.out.WritePacket(rp); err != nil {
			return err
		}
	}
	return nil
}
