package sender

import (
	"fmt"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/packet"
)

// packetizer slices a continuous sample stream into fixed-length
// source packets. Samples are buffered across frame boundaries, so a
// frame may fill a fraction of a packet or span several.
type packetizer struct {
	enc  audio.PayloadEncoder
	out  packet.Writer
	buf  []float32
	fill int
	seq  uint32
}

func newPacketizer(samplesPerPacket int, enc audio.PayloadEncoder, out packet.Writer) *packetizer {
	return &packetizer{
		enc: enc,
		out: out,
		buf: make([]float32, samplesPerPacket),
	}
}

// writeSamples buffers wire-format samples, emitting a source packet
// every time the packet buffer fills.
func (pz *packetizer) writeSamples(samples []float32) error {
	for len(samples) > 0 {
		n := copy(pz.buf[pz.fill:], samples)
		pz.fill += n
		samples = samples[n:]

		if pz.fill == len(pz.buf) {
			if err := pz.emit(); err != nil {
				return err
			}
		}
	}
	return nil
}

// flush completes a partially filled packet with silence and emits it.
// A no-op when the buffer is empty.
func (pz *packetizer) flush() error {
	if pz.fill == 0 {
		return nil
	}
	for i := pz.fill; i < len(pz.buf); i++ {
		pz.buf[i] = 0
	}
	pz.fill = len(pz.buf)
	return pz.emit()
}

func (pz *packetizer) emit() error {
	payload, err := pz.enc.EncodePayload(pz.buf)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	p := &packet.Packet{
		Role:    packet.RoleSource,
		Seq:     pz.seq,
		Payload: payload,
	}
	pz.seq++
	pz.fill = 0

	return pz.out.WritePacket(p)
}
