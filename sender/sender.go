package sender

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/audio"
)

// Sender is the sending pipeline. One sender serves any number of
// slots (destinations); every fed frame is remapped to the wire
// channel layout once and then sliced independently per slot.
//
// The sender is driven from a single audio goroutine; slot creation
// and frame writes are serialized by an internal mutex.
type Sender struct {
	mu sync.Mutex

	cfg          Config
	packetFrames int
	slots        []*Slot
	wire         []float32
	closed       bool
}

// NewSender validates the configuration and creates a sender.
//
// Returns:
//   - *Sender: the new sender
//   - error: ErrInvalidConfig (wrapped with detail) if the
//     configuration is unusable
func NewSender(cfg Config) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewSender",
			"error":    err.Error(),
		}).Error("Sender configuration rejected")
		return nil, err
	}

	s := &Sender{
		cfg:          cfg,
		packetFrames: cfg.PacketSpec.FramesFor(cfg.PacketLength),
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewSender",
		"input_spec":    cfg.InputSpec.String(),
		"packet_spec":   cfg.PacketSpec.String(),
		"packet_frames": s.packetFrames,
		"fec_scheme":    cfg.FECScheme.String(),
	}).Info("Sender created")

	return s, nil
}

// CreateSlot adds an outbound destination slot. The caller then
// creates and binds the slot's endpoints before feeding frames.
func (s *Sender) CreateSlot() (*Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSenderClosed
	}

	slot := &Slot{cfg: &s.cfg, packetFrames: s.packetFrames}
	s.slots = append(s.slots, slot)

	logrus.WithFields(logrus.Fields{
		"function": "Sender.CreateSlot",
		"slots":    len(s.slots),
	}).Info("Sender slot created")

	return slot, nil
}

// WriteFrame feeds one audio frame into the pipeline. The frame buffer
// is owned by the caller and not retained past the call.
//
// Returns:
//   - error: ErrSenderClosed, ErrFrameSpec for a frame not matching
//     the configured input spec, ErrNotBound if a slot's source
//     endpoint is unbound, or a wrapped transport write error
func (s *Sender) WriteFrame(f *audio.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if !f.Spec.Equal(s.cfg.InputSpec) {
		return fmt.Errorf("%w: got %s, want %s",
			ErrFrameSpec, f.Spec, s.cfg.InputSpec)
	}
	if err := f.Validate(); err != nil {
		return err
	}

	wire := s.remapToWire(f)
	for _, slot := range s.slots {
		if err := slot.writeSamples(wire); err != nil {
			return err
		}
	}
	return nil
}

// Flush force-completes the partial packet and coding block of every
// slot. Meaningful at end of stream; mid-stream flushes shorten the
// final block's protection but are not an error.
func (s *Sender) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes all slots and rejects further use.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	err := s.flushLocked()
	s.closed = true

	logrus.WithFields(logrus.Fields{
		"function": "Sender.Close",
	}).Info("Sender closed")

	return err
}

func (s *Sender) flushLocked() error {
	for _, slot := range s.slots {
		if err := slot.flush(); err != nil {
			return err
		}
	}
	return nil
}

// remapToWire converts a frame's samples to the wire channel layout,
// reusing the sender's scratch buffer.
func (s *Sender) remapToWire(f *audio.Frame) []float32 {
	if s.cfg.InputSpec.Channels == s.cfg.PacketSpec.Channels {
		return f.Samples
	}

	need := f.Frames() * s.cfg.PacketSpec.NumChannels()
	if cap(s.wire) < need {
		s.wire = make([]float32, need)
	}
	wire := s.wire[:need]

	// The channel pair was validated at construction; a failure here
	// would be a frame alignment bug already rejected above.
	if err := audio.Remap(f.Samples, s.cfg.InputSpec.Channels, wire, s.cfg.PacketSpec.Channels); err != nil {
		panic(fmt.Sprintf("sender: remap failed: %v", err))
	}
	return wire
}
