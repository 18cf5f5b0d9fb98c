package receiver

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/audio"
	"github.com/opd-ai/fecstream/packet"
)

// Endpoint is one inbound channel of a slot. Its writer mount accepts
// packets from any goroutine and queues them until the next frame
// request drains the queue under the receiver lock.
type Endpoint struct {
	role  packet.Role
	queue *packet.Queue
}

// Role returns the endpoint's channel role.
func (e *Endpoint) Role() packet.Role {
	return e.role
}

// Writer returns the mount the transport delivers packets into. The
// returned writer stamps a receive timestamp and may be used
// concurrently with frame reads.
func (e *Endpoint) Writer() packet.Writer {
	return &rxStamper{queue: e.queue}
}

// rxStamper timestamps packets on arrival before queueing them.
type rxStamper struct {
	queue *packet.Queue
}

func (w *rxStamper) WritePacket(p *packet.Packet) error {
	if p.RxTime.IsZero() {
		p.RxTime = time.Now()
	}
	return w.queue.WritePacket(p)
}

// Slot is one inbound stream bundle of a receiver: a source endpoint,
// an optional repair endpoint, and the per-peer sessions formed by the
// traffic arriving on them.
type Slot struct {
	cfg *Config

	source *Endpoint
	repair *Endpoint

	sessions map[string]*session
	closed   bool
}

// CreateEndpoint adds an inbound endpoint for a channel role.
//
// Parameters:
//   - role: packet.RoleSource or packet.RoleRepair
//
// Returns:
//   - *Endpoint: the new endpoint whose Writer receives packets
//   - error: ErrEndpointRole, ErrEndpointExists, or ErrSlotClosed
func (s *Slot) CreateEndpoint(role packet.Role) (*Endpoint, error) {
	if s.closed {
		return nil, ErrSlotClosed
	}

	ep := &Endpoint{role: role, queue: packet.NewQueue()}
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
	}).Info("Receiver endpoint created")

	return ep, nil
}

// NumSessions returns the number of live sessions on the slot.
func (s *Slot) NumSessions() int {
	return len(s.sessions)
}

// SessionStats returns a counter snapshot per peer address.
func (s *Slot) SessionStats() map[string]Stats {
	out := make(map[string]Stats, len(s.sessions))
	for key, sess := range s.sessions {
		out[key] = sess.Stats()
	}
	return out
}

// Close stops the slot's endpoints from accepting packets. Existing
// sessions keep draining what they buffered until the watchdog
// terminates them.
func (s *Slot) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.source != nil {
		s.source.queue.Close()
	}
	if s.repair != nil {
		s.repair.queue.Close()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Slot.Close",
		"sessions": len(s.sessions),
	}).Info("Receiver slot closed")
}

// refresh drains the endpoint queues into per-peer sessions. Source
// packets from an unknown peer create its session; repair packets from
// an unknown peer are dropped, since repair alone proves nothing about
// a stream worth playing.
func (s *Slot) refresh() {
	if s.source != nil {
		s.drain(s.source.queue)
	}
	if s.repair != nil {
		s.drain(s.repair.queue)
	}
}

func (s *Slot) drain(q *packet.Queue) {
	for {
		p := q.ReadPacket()
		if p == nil {
			return
		}
		if p.Addr == nil {
			continue
		}

		key := p.Addr.String()
		sess := s.sessions[key]
		if sess == nil {
			if p.Role != packet.RoleSource {
				continue
			}
			created, err := newSession(s.cfg, p.Addr, key)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Slot.drain",
					"peer":     key,
					"error":    err.Error(),
				}).Error("Session creation failed")
				continue
			}
			sess = created
			s.sessions[key] = sess
		}
		sess.route(p)
	}
}

// readInto mixes one frame's worth of every session into dst, using
// scratch as the per-session render buffer. Sessions terminated by the
// watchdog during this read are evicted afterwards.
func (s *Slot) readInto(dst, scratch []float32) {
	if len(s.sessions) == 0 {
		return
	}

	// Deterministic mix order: ascending peer address.
	keys := make([]string, 0, len(s.sessions))
	for key := range s.sessions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		sess := s.sessions[key]
		sess.readSamples(scratch)
		audio.MixInto(dst, scratch)

		if sess.state == StateTerminated {
			delete(s.sessions, key)
			logrus.WithFields(logrus.Fields{
				"function": "Slot.readInto",
				"peer":     key,
				"stats":    fmt.Sprintf("%+v", sess.Stats()),
			}).Info("Session evicted")
		}
	}
}
