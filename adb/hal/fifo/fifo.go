package fifo

import (
	"sync"

	"github.com/ardnew/microbridge/adb/hal"
	"github.com/ardnew/microbridge/pkg"
)

// DefaultPacketSize is the bulk packet size used by [New].
const DefaultPacketSize = 512

// Transport is an in-memory loopback implementation of [hal.Transport].
// It pairs with a [Peer] representing the device end of the link: bytes
// written by the engine appear at the peer, and transfers queued by the
// peer are returned by BulkRead. Transfer boundaries are preserved, as on
// a real bulk link.
//
// The transport starts detached; call [Peer.Attach] to simulate plugging
// the device in.
type Transport struct {
	mu   sync.Mutex
	cond *sync.Cond

	// Queued transfers, oldest first.
	toHost   [][]byte // device -> engine
	toDevice [][]byte // engine -> device

	attached bool
	closed   bool

	packetSize int
}

// Peer is the device end of a loopback link. Tests and simulations use it
// to inject transfers toward the engine and to observe what the engine
// wrote.
type Peer struct {
	t *Transport
}

// New creates a loopback transport with the default packet size and
// returns both ends of the link.
func New() (*Transport, *Peer) {
	return NewSize(DefaultPacketSize)
}

// NewSize creates a loopback transport with the given bulk packet size.
// Small sizes are useful for exercising chunked payload handling.
func NewSize(packetSize int) (*Transport, *Peer) {
	t := &Transport{packetSize: packetSize}
	t.cond = sync.NewCond(&t.mu)
	return t, &Peer{t: t}
}

// Poll implements [hal.Transport]. The loopback link has no housekeeping.
func (t *Transport) Poll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pkg.ErrClosed
	}
	return nil
}

// Attached reports whether the peer has attached.
func (t *Transport) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attached
}

// MaxPacketSize returns the configured bulk packet size.
func (t *Transport) MaxPacketSize() int {
	return t.packetSize
}

// BulkWrite queues p as one transfer toward the peer.
func (t *Transport) BulkWrite(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, pkg.ErrClosed
	}
	if !t.attached {
		return 0, pkg.ErrNoDevice
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	t.toDevice = append(t.toDevice, buf)
	t.cond.Broadcast()
	return len(p), nil
}

// BulkRead returns the next transfer queued by the peer. With block false
// it returns [pkg.ErrNoData] when nothing is pending; with block true it
// waits until the peer queues a transfer, detaches, or the transport is
// closed. A transfer longer than p is truncated to len(p) and the excess
// discarded, matching bulk overflow behavior.
func (t *Transport) BulkRead(p []byte, block bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for len(t.toHost) == 0 {
		if t.closed {
			return 0, pkg.ErrClosed
		}
		if !t.attached {
			return 0, pkg.ErrNoDevice
		}
		if !block {
			return 0, pkg.ErrNoData
		}
		t.cond.Wait()
	}

	buf := t.toHost[0]
	t.toHost = t.toHost[1:]
	return copy(p, buf), nil
}

// Close tears down both ends of the link. Blocked readers are released
// with [pkg.ErrClosed].
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.attached = false
	t.cond.Broadcast()
	return nil
}

// Attach simulates plugging the device in.
func (p *Peer) Attach() {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	p.t.attached = true
	p.t.cond.Broadcast()
}

// Detach simulates unplugging the device. Blocked engine reads are
// released with [pkg.ErrNoDevice]; queued transfers are discarded.
func (p *Peer) Detach() {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	p.t.attached = false
	p.t.toHost = nil
	p.t.toDevice = nil
	p.t.cond.Broadcast()
}

// Write queues p as one transfer toward the engine.
func (p *Peer) Write(buf []byte) (int, error) {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()

	if p.t.closed {
		return 0, pkg.ErrClosed
	}
	if !p.t.attached {
		return 0, pkg.ErrNoDevice
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)
	p.t.toHost = append(p.t.toHost, cp)
	p.t.cond.Broadcast()
	return len(buf), nil
}

// Next pops the oldest transfer written by the engine, or returns false
// if none is pending.
func (p *Peer) Next() ([]byte, bool) {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()

	if len(p.t.toDevice) == 0 {
		return nil, false
	}
	buf := p.t.toDevice[0]
	p.t.toDevice = p.t.toDevice[1:]
	return buf, true
}

// Pending returns the number of transfers written by the engine that the
// peer has not yet consumed.
func (p *Peer) Pending() int {
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	return len(p.t.toDevice)
}

var _ hal.Transport = (*Transport)(nil)
