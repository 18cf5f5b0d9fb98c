package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/fecstream/packet"
)

// readBufferSize bounds one datagram. Pipeline packets are a few
// hundred bytes of audio; anything close to this is misconfiguration.
const readBufferSize = 16 * 1024

// readPollInterval is the read deadline used to keep the serve loop
// responsive to Close.
const readPollInterval = 100 * time.Millisecond

// UDPTransport sends and receives pipeline packets over a single UDP
// socket. It implements packet.Writer for the sending direction.
type UDPTransport struct {
	conn   net.PacketConn
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	routes map[packet.Role]packet.Writer
	closed bool
}

// NewUDPTransport binds a UDP socket and starts the receive loop.
//
// Parameters:
//   - listenAddr: the local address, e.g. "127.0.0.1:0" or ":4010"
//
// Returns:
//   - *UDPTransport: the running transport
//   - error: a wrapped socket error
func NewUDPTransport(listenAddr string) (*UDPTransport, error) {
	conn, err := net.ListenPacket("udp", listenAddr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &UDPTransport{
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		routes: make(map[packet.Role]packet.Writer),
	}
	go t.serve()

	logrus.WithFields(logrus.Fields{
		"function": "NewUDPTransport",
		"addr":     conn.LocalAddr().String(),
	}).Info("UDP transport listening")

	return t, nil
}

// LocalAddr returns the bound local address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RegisterWriter mounts the destination for received packets of one
// role, typically a receiver endpoint's writer. Packets of a role with
// no mount are dropped.
func (t *UDPTransport) RegisterWriter(role packet.Role, w packet.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[role] = w
}

// WritePacket marshals and transmits one packet to its stamped
// destination address.
//
// Returns:
//   - error: ErrNoDestination, ErrTransportClosed, ErrBadRole, or a
//     socket error
func (t *UDPTransport) WritePacket(p *packet.Packet) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTransportClosed
	}
	if p.Addr == nil {
		return ErrNoDestination
	}

	data, err := Marshal(p)
	if err != nil {
		return err
	}

	_, err = t.conn.WriteTo(data, p.Addr)
	return err
}

// Close stops the receive loop and closes the socket. It waits for the
// loop to exit so no writer mount is used after Close returns.
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.cancel()
	err := t.conn.Close()
	<-t.done

	logrus.WithFields(logrus.Fields{
		"function": "UDPTransport.Close",
		"addr":     t.conn.LocalAddr().String(),
	}).Info("UDP transport closed")

	return err
}

// serve reads datagrams until the transport is closed.
func (t *UDPTransport) serve() {
	defer close(t.done)

	buf := make([]byte, readBufferSize)
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		_ = t.conn.SetReadDeadline(time.Now().Add(readPollInterval))
		n, addr, err := t.conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			// Socket closed or fatally broken.
			return
		}

		t.dispatch(buf[:n], addr)
	}
}

func (t *UDPTransport) dispatch(data []byte, addr net.Addr) {
	p, err := Unmarshal(data)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "UDPTransport.dispatch",
			"peer":     addr.String(),
			"error":    err.Error(),
		}).Debug("Dropping malformed datagram")
		return
	}
	p.Addr = addr

	t.mu.RLock()
	w := t.routes[p.Role]
	t.mu.RUnlock()
	if w == nil {
		return
	}

	if err := w.WritePacket(p); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "UDPTransport.dispatch",
			"peer":     addr.String(),
			"role":     p.Role.String(),
			"error":    err.Error(),
		}).Debug("Inbound packet rejected by writer")
	}
}
