package packet

import (
	"errors"
	"sync"
)

// ErrQueueClosed indicates a write to a closed queue.
var ErrQueueClosed = errors.New("packet queue closed")

// Queue is a thread-safe FIFO of packets. It is the hand-off point
// between a network goroutine pushing packets and the audio goroutine
// pulling frames; one producer and one consumer per queue is the
// intended model, though the mutex makes any combination safe.
type Queue struct {
	mu      sync.Mutex
	packets []*Packet
	head    int
	closed  bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// WritePacket appends a packet to the queue, taking ownership of it.
//
// Returns:
//   - error: ErrQueueClosed after Close; nil otherwise
func (q *Queue) WritePacket(p *Packet) error {
	if p == nil {
		panic("packet: write of nil packet")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	q.packets = append(q.packets, p)
	return nil
}

// ReadPacket removes and returns the oldest packet, or nil when the
// queue is empty. It never blocks.
func (q *Queue) ReadPacket() *Packet {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == len(q.packets) {
		return nil
	}

	p := q.packets[q.head]
	q.packets[q.head] = nil
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 32 && q.head*2 >= len(q.packets) {
		q.packets = append(q.packets[:0], q.packets[q.head:]...)
		q.head = 0
	}

	return p
}

// Len returns the number of packets currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets) - q.head
}

// Close marks the queue closed. Subsequent writes fail with
// ErrQueueClosed; queued packets remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
