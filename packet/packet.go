package packet

import (
	"fmt"
	"net"
	"time"
)

// Role tags a packet as audio source data or FEC repair data. Endpoint
// channels carry exactly one role each.
type Role uint8

const (
	// RoleSource marks packets carrying sliced audio payload.
	RoleSource Role = iota + 1

	// RoleRepair marks packets carrying FEC repair symbols.
	RoleRepair
)

// String returns the role's name.
func (r Role) String() string {
	switch r {
	case RoleSource:
		return "audio-source"
	case RoleRepair:
		return "audio-repair"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// Packet is one transport unit of the stream. It is created by the
// sender's packetizer, owned by exactly one endpoint queue until
// handed to the transport, and on the receiver owned by the session's
// pending buffer until consumed or discarded.
type Packet struct {
	// Role distinguishes source and repair packets.
	Role Role

	// Seq is the stream sequence number, monotonic per role starting
	// at zero. For source packets it doubles as the packet's global
	// position in the audio timeline.
	Seq uint32

	// BlockIndex identifies the coding block the packet belongs to.
	BlockIndex uint32

	// BlockPos is the packet's position within its block and role:
	// 0..N-1 for source packets, 0..M-1 for repair packets.
	BlockPos uint16

	// Addr is the destination address on the send path and the peer
	// source address on the receive path.
	Addr net.Addr

	// RxTime is the arrival timestamp, set by the receiving endpoint.
	// Zero until the packet has been received.
	RxTime time.Time

	// Payload is the encoded audio bytes (source) or the FEC symbol
	// (repair).
	Payload []byte
}

// Writer consumes packets. Implementations must not retain the packet
// beyond the call unless they take ownership (queues do).
type Writer interface {
	WritePacket(p *Packet) error
}

// Reader produces packets. A nil result means no packet is currently
// available; readers never block waiting for a future packet.
type Reader interface {
	ReadPacket() *Packet
}
