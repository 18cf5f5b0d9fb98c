package sender

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/fec"
	"github.com/opd-ai/fecstream/packet"
)

// Endpoint binds one logical channel of a slot (audio-source or
// audio-repair) to a destination address and a packet writer. The
// endpoint never interprets packet payloads; it only stamps the
// destination and counts what passes through.
type Endpoint struct {
	role   packet.Role
	slot   *Slot
	dest   net.Addr
	writer packet.Writer

	packetsSent uint64
}

// Role returns the endpoint's channel role.
func (e *Endpoint) Role() packet.Role {
	return e.role
}

// SetDestinationWriter binds the packet writer packets are handed to,
// typically a transport adapter or a queue. Binding is rejected once
// audio flows through the slot.
//
// Returns:
//   - error: ErrSlotStarted after the first fed samples
func (e *Endpoint) SetDestinationWriter(w packet.Writer) error {
	if e.slot.started {
		return ErrSlotStarted
	}
	e.writer = w
	return nil
}

// SetDestinationAddress binds the destination address stamped on every
// outgoing packet. Binding is rejected once audio flows through the
// slot.
//
// Returns:
//   - error: ErrSlotStarted after the first fed samples
func (e *Endpoint) SetDestinationAddress(addr net.Addr) error {
	if e.slot.started {
		return ErrSlotStarted
	}
	e.dest = addr
	return nil
}

// PacketsSent returns the number of packets handed to the writer.
func (e *Endpoint) PacketsSent() uint64 {
	return e.packetsSent
}

func (e *Endpoint) bound() bool {
	return e != nil && e.writer != nil
}

func (e *Endpoint) writePacket(p *packet.Packet) error {
	p.Addr = e.dest
	e.packetsSent++
	if err := e.writer.WritePacket(p); err != nil {
		return fmt.Errorf("endpoint %s: %w", e.role, err)
	}
	return nil
}

// Slot is one outbound destination of a sender: its endpoints plus the
// packetization chain feeding them. Every slot sequences its own
// packets and coding blocks.
type Slot struct {
	cfg          *Config
	packetFrames int

	source *Endpoint
	repair *Endpoint

	pz      *packetizer
	fw      *fecWriter
	il      *interleaver
	started bool
}

// CreateEndpoint adds an endpoint for a channel role to the slot.
// Binding order is fixed: create endpoints and bind them before any
// audio flows; endpoint changes after that are rejected.
//
// Parameters:
//   - role: packet.RoleSource or packet.RoleRepair
//
// Returns:
//   - *Endpoint: the new endpoint, to be bound by the caller
//   - error: ErrEndpointRole, ErrEndpointExists, or ErrSlotStarted
func (s *Slot) CreateEndpoint(role packet.Role) (*Endpoint, error) {
	if s.started {
		return nil, ErrSlotStarted
	}

	ep := &Endpoint{role: role, slot: s}
	switch role {
	case packet.RoleSource:
		if s.source != nil {
			return nil, fmt.Errorf("%w: %s", ErrEndpointExists, role)
		}
		s.source = ep
	case packet.RoleRepair:
		if s.repair != nil {
			return nil, fmt.Errorf("%w: %s", ErrEndpointExists, role)
		}
		s.repair = ep
	default:
		return nil, fmt.Errorf("%w: %s", ErrEndpointRole, role)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Slot.CreateEndpoint",
		"role":     role.String(),
	}).Info("Sender endpoint created")

	return ep, nil
}

// start assembles the packet chain on the first fed samples. FEC is
// active only when a scheme is configured and a repair endpoint is
// bound; otherwise the slot degrades to source-only operation.
func (s *Slot) start() error {
	if !s.source.bound() {
		return ErrNotBound
	}

	var blockEnc fec.BlockEncoder
	fecActive := s.cfg.FECScheme != fec.SchemeNone && s.repair.bound()
	if fecActive {
		enc, err := fec.NewBlockEncoder(s.cfg.FECScheme, s.cfg.FECBlock)
		if err != nil {
			return err
		}
		blockEnc = enc
	}

	var tail packet.Writer = &endpointRouter{slot: s}
	if s.cfg.Interleaving {
		depth := 1
		if fecActive {
			depth = s.cfg.FECBlock.Total()
		}
		s.il = newInterleaver(depth, tail)
		tail = s.il
	}

	s.fw = newFECWriter(blockEnc, s.cfg.FECBlock, tail)
	s.pz = newPacketizer(s.packetFrames*s.cfg.PacketSpec.NumChannels(),
		s.cfg.payloadEncoder(), s.fw)
	s.started = true

	logrus.WithFields(logrus.Fields{
		"function":     "Slot.start",
		"fec_active":   fecActive,
		"scheme":       s.cfg.FECScheme.String(),
		"interleaving": s.cfg.Interleaving,
	}).Info("Sender slot started")

	return nil
}

func (s *Slot) writeSamples(samples []float32) error {
	if !s.started {
		if err := s.start(); err != nil {
			return err
		}
	}
	return s.pz.writeSamples(samples)
}

// flush drains the slot: the partial packet is padded with silence,
// the partial block force-closed, and any interleaver window emitted.
func (s *Slot) flush() error {
	if !s.started {
		return nil
	}
	if err := s.pz.flush(); err != nil {
		return err
	}
	if err := s.fw.Flush(); err != nil {
		return err
	}
	if s.il != nil {
		return s.il.Flush()
	}
	return nil
}

// endpointRouter is the tail of the chain: it hands each packet to the
// endpoint matching its role.
type endpointRouter struct {
	slot *Slot
}

func (r *endpointRouter) WritePacket(p *packet.Packet) error {
	var ep *Endpoint
	switch p.Role {
	case packet.RoleSource:
		ep = r.slot.source
	case packet.RoleRepair:
		ep = r.slot.repair
	}
	if !ep.bound() {
		// Repair packets are only generated when a repair endpoint is
		// bound, so an unbound endpoint here is a pipeline bug.
		panic(fmt.Sprintf("sender: no bound endpoint for %s packet", p.Role))
	}
	return ep.writePacket(p)
}
