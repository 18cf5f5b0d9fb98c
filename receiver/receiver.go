package receiver

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/audio"
)

// Receiver is the receiving pipeline. One receiver serves any number
// of slots; a frame request drains every slot's queues and mixes all
// live sessions into the requested frame.
//
// Frame reads are driven from a single audio goroutine; slot creation
// and reads are serialized by an internal mutex. Endpoint writer
// mounts are safe from any goroutine.
type Receiver struct {
	mu sync.Mutex

	cfg     Config
	slots   []*Slot
	scratch []float32
}

// NewReceiver validates the configuration and creates a receiver.
//
// Returns:
//   - *Receiver: the new receiver
//   - error: ErrInvalidConfig (wrapped with detail) if the
//     configuration is unusable
func NewReceiver(cfg Config) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewReceiver",
			"error":    err.Error(),
		}).Error("Receiver configuration rejected")
		return nil, err
	}

	r := &Receiver{cfg: cfg}

	logrus.WithFields(logrus.Fields{
		"function":       "NewReceiver",
		"output_spec":    cfg.OutputSpec.String(),
		"packet_spec":    cfg.PacketSpec.String(),
		"target_latency": cfg.TargetLatency.String(),
		"fec_scheme":     cfg.FECScheme.String(),
	}).Info("Receiver created")

	return r, nil
}

// CreateSlot adds an inbound slot. The caller then creates the slot's
// endpoints and mounts their writers on a transport.
func (r *Receiver) CreateSlot() *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot := &Slot{cfg: &r.cfg, sessions: make(map[string]*session)}
	r.slots = append(r.slots, slot)

	logrus.WithFields(logrus.Fields{
		"function": "Receiver.CreateSlot",
		"slots":    len(r.slots),
	}).Info("Receiver slot created")

	return slot
}

// ReadFrame fills the frame with the mix of all live sessions. It
// never blocks and never reports end of stream: with no sessions, or
// with every session stalled, the frame is silence.
//
// The frame's spec must be the configured output spec and its buffer
// must hold whole frames; both are programmer errors, not runtime
// conditions, and violating them panics.
//
// Returns:
//   - bool: always true; the pipeline has no end-of-stream condition
func (r *Receiver) ReadFrame(f *audio.Frame) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !f.Spec.Equal(r.cfg.OutputSpec) {
		panic("receiver: frame spec does not match output spec")
	}
	if err := f.Validate(); err != nil {
		panic("receiver: " + err.Error())
	}

	f.Zero()
	if cap(r.scratch) < len(f.Samples) {
		r.scratch = make([]float32, len(f.Samples))
	}
	scratch := r.scratch[:len(f.Samples)]

	for _, slot := range r.slots {
		slot.refresh()
		slot.readInto(f.Samples, scratch)
	}
	return true
}

// NumSessions returns the number of live sessions across all slots.
func (r *Receiver) NumSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, slot := range r.slots {
		n += slot.NumSessions()
	}
	return n
}
