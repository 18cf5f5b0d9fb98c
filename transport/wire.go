package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/fecstream/packet"
)

// headerSize is the fixed wire header length.
const headerSize = 11

// Marshal serializes a packet for transmission.
//
// Parameters:
//   - p: the packet; Addr and RxTime are not part of the wire format
//
// Returns:
//   - []byte: header plus payload
//   - error: ErrBadRole for a role the wire format cannot carry
func Marshal(p *packet.Packet) ([]byte, error) {
	if p.Role != packet.RoleSource && p.Role != packet.RoleRepair {
		return nil, fmt.Errorf("%w: %d", ErrBadRole, p.Role)
	}

	buf := make([]byte, headerSize+len(p.Payload))
	buf[0] = byte(p.Role)
	binary.BigEndian.PutUint32(buf[1:5], p.Seq)
	binary.BigEndian.PutUint32(buf[5:9], p.BlockIndex)
	binary.BigEndian.PutUint16(buf[9:11], p.BlockPos)
	copy(buf[headerSize:], p.Payload)

	return buf, nil
}

// Unmarshal parses a received datagram into a packet. The payload is
// copied out of the read buffer so the buffer can be reused.
//
// Returns:
//   - *packet.Packet: the parsed packet, Addr and RxTime unset
//   - error: ErrShortPacket or ErrBadRole
func Unmarshal(data []byte) (*packet.Packet, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(data))
	}

	role := packet.Role(data[0])
	if role != packet.RoleSource && role != packet.RoleRepair {
		return nil, fmt.Errorf("%w: %d", ErrBadRole, data[0])
	}

	payload := make([]byte, len(data)-headerSize)
	copy(payload, data[headerSize:])

	return &packet.Packet{
		Role:       role,
		Seq:        binary.BigEndian.Uint32(data[1:5]),
		BlockIndex: binary.BigEndian.Uint32(data[5:9]),
		BlockPos:   binary.BigEndian.Uint16(data[9:11]),
		Payload:    payload,
	}, nil
}
