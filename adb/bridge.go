package adb

import (
	"errors"

	"github.com/ardnew/microbridge/adb/hal"
	"github.com/ardnew/microbridge/pkg"
)

// Bridge is the host-side ADB protocol engine. It multiplexes up to
// MaxConnections logical streams over one bulk transport, drives the CNXN
// handshake, and delivers lifecycle and data events through registered
// handlers.
//
// All engine state lives in the Bridge; multiple independent bridges may
// coexist in a process, each bound to its own transport. A Bridge is not
// safe for concurrent use: [Bridge.Poll] and every other method must be
// invoked from a single goroutine. Cooperative scheduling is the caller's
// responsibility -- call Poll repeatedly from a timer, a task loop, or
// explicit test stepping.
type Bridge struct {
	transport hal.Transport
	clock     hal.Clock

	// Connection table. Slot index + 1 is the connection's local id.
	conns [MaxConnections]Conn

	// Link state.
	attached  bool
	connected bool

	banner  string
	handler EventHandler

	// Effective bulk chunk size: transport max packet size clamped to
	// the scratch buffer.
	packetSize int

	// Reusable buffers (no per-poll allocation).
	rxBuf     [maxPacketBuf]byte
	hdrBuf    [MessageSize]byte
	bannerBuf [maxBannerLength]byte
}

// New creates a bridge bound to the given transport, using the system
// clock for retry pacing.
func New(t hal.Transport) *Bridge {
	b := &Bridge{
		transport: t,
		clock:     hal.SystemClock{},
		banner:    DefaultBanner,
	}
	b.packetSize = t.MaxPacketSize()
	if b.packetSize <= 0 || b.packetSize > maxPacketBuf {
		b.packetSize = maxPacketBuf
	}
	if b.packetSize < MessageSize {
		// A header must fit in one transfer.
		b.packetSize = MessageSize
	}
	return b
}

// SetClock replaces the clock used for retry pacing and handshake delays.
// Intended for tests that step the engine deterministically.
func (b *Bridge) SetClock(c hal.Clock) {
	b.clock = c
}

// SetEventHandler sets the global event handler. It is called for every
// bridge event before any per-connection handler.
func (b *Bridge) SetEventHandler(handler EventHandler) {
	b.handler = handler
}

// SetBanner sets the identity string sent with the CNXN handshake,
// e.g. "host::myhost".
func (b *Bridge) SetBanner(banner string) {
	b.banner = banner
}

// Attached reports whether a transport device is currently present.
func (b *Bridge) Attached() bool { return b.attached }

// Connected reports whether the CNXN handshake has completed.
func (b *Bridge) Connected() bool { return b.connected }

// AddConnection allocates a connection slot for the given ADB destination,
// e.g. "tcp:1234" or "shell:ls". The destination string is fixed for the
// life of the connection and may not exceed MaxDestLength-1 bytes.
//
// Persistent connections are reopened automatically whenever the link is
// available; non-persistent connections open once and release their slot
// when closed. The optional handler receives this connection's events after
// the global handler.
//
// The new connection starts in the closed state and is opened on a
// subsequent poll cycle once the link handshake has completed.
func (b *Bridge) AddConnection(dest string, persistent bool, handler EventHandler) (*Conn, error) {
	if len(dest)+1 > MaxDestLength {
		return nil, pkg.ErrDestTooLong
	}

	for i := range b.conns {
		c := &b.conns[i]
		if c.status != StatusUnused {
			continue
		}

		*c = Conn{
			localID:    uint32(i + 1), // local id may not be zero
			dest:       dest,
			status:     StatusClosed,
			persistent: persistent,
			handler:    handler,
		}

		pkg.LogDebug(pkg.ComponentBridge, "connection added",
			"localID", c.localID,
			"dest", dest,
			"persistent", persistent)
		return c, nil
	}

	return nil, pkg.ErrTableFull
}

// Write sends data to an open connection as a single WRTE frame. On
// success the connection enters the writing state until the peer
// acknowledges with OKAY.
//
// Returns [pkg.ErrNoDevice] if no transport is attached,
// [pkg.ErrNotConnected] if the link handshake has not completed, and
// [pkg.ErrNotOpen] if the connection is not open; no transport write is
// performed in those cases.
func (b *Bridge) Write(c *Conn, data []byte) error {
	if !b.attached {
		return pkg.ErrNoDevice
	}
	if !b.connected {
		return pkg.ErrNotConnected
	}
	if c.status != StatusOpen {
		return pkg.ErrNotOpen
	}

	if err := b.writeMessage(CmdWrite, c.localID, c.remoteID, data); err != nil {
		return err
	}
	c.status = StatusWriting
	return nil
}

// WriteString sends a string to an open connection. The terminating NUL
// is transmitted, as ADB destinations and shell input expect.
func (b *Bridge) WriteString(c *Conn, s string) error {
	if !b.attached {
		return pkg.ErrNoDevice
	}
	if !b.connected {
		return pkg.ErrNotConnected
	}
	if c.status != StatusOpen {
		return pkg.ErrNotOpen
	}

	if err := b.writeStringMessage(CmdWrite, c.localID, c.remoteID, s); err != nil {
		return err
	}
	c.status = StatusWriting
	return nil
}

// Poll runs one cycle of the engine. It services the transport, maintains
// the handshake, retries pending opens, and dispatches at most one incoming
// message. It never blocks except while draining a known-length inbound
// payload.
//
// The returned error reports a transport housekeeping failure; protocol
// level problems (malformed frames, failed probes) are absorbed and retried
// on later cycles.
func (b *Bridge) Poll() error {
	if err := b.transport.Poll(); err != nil {
		return err
	}

	// Track attach/detach edges. A detach force-closes every live
	// connection and resets the link state.
	if !b.transport.Attached() {
		if b.attached {
			b.detach()
		}
		return nil
	}
	if !b.attached {
		b.attached = true
		pkg.LogInfo(pkg.ComponentBridge, "transport attached",
			"maxPacketSize", b.packetSize)
	}

	if !b.connected {
		// Probe the device, then give it time to respond. Repeats
		// every cycle until a CNXN reply arrives.
		if err := b.writeStringMessage(CmdConnect, ProtocolVersion, MaxPayload, b.banner); err != nil {
			pkg.LogWarn(pkg.ComponentBridge, "handshake probe failed", "error", err)
		}
		b.clock.Sleep(connectDelay)
	} else {
		b.openPending()
	}

	var msg Message
	if !b.readMessage(&msg, false) {
		return nil
	}

	if msg.Command == CmdConnect {
		b.handleConnect(&msg)
		return nil
	}

	c := b.findByLocalID(msg.Arg1)
	if c == nil {
		pkg.LogDebug(pkg.ComponentBridge, "message for unknown connection",
			"command", msg.Command,
			"arg1", msg.Arg1)
		return nil
	}

	switch msg.Command {
	case CmdOkay:
		b.handleOkay(c, &msg)
	case CmdClose:
		b.handleClose(c)
	case CmdWrite:
		b.handleWrite(c, &msg)
	default:
		pkg.LogDebug(pkg.ComponentBridge, "unhandled command",
			"command", msg.Command,
			"localID", c.localID)
	}

	return nil
}

// handleConnect completes the handshake: drain the peer's banner payload,
// mark the link connected, and announce it.
func (b *Bridge) handleConnect(m *Message) {
	n := int(m.DataLength)
	if n > len(b.bannerBuf) {
		n = len(b.bannerBuf)
	}

	got := 0
	if n > 0 {
		var err error
		got, err = b.transport.BulkRead(b.bannerBuf[:n], true)
		if err != nil {
			pkg.LogWarn(pkg.ComponentBridge, "banner read failed", "error", err)
			got = 0
		}
	}

	b.connected = true
	pkg.LogInfo(pkg.ComponentBridge, "link established",
		"banner", string(trimNul(b.bannerBuf[:got])))

	b.fireEvent(nil, EventConnect, b.bannerBuf[:got])
}

// openPending sends OPEN for every closed connection whose retry interval
// has elapsed.
func (b *Bridge) openPending() {
	now := b.clock.Millis()
	for i := range b.conns {
		c := &b.conns[i]
		if c.status != StatusClosed || now-c.lastOpenAttempt <= RetryInterval.Milliseconds() {
			continue
		}

		if err := b.writeStringMessage(CmdOpen, c.localID, 0, c.dest); err != nil {
			pkg.LogWarn(pkg.ComponentBridge, "open send failed",
				"localID", c.localID,
				"error", err)
		}

		// Stamp the attempt either way; a failed send is retried at
		// the normal pace.
		c.lastOpenAttempt = now
		c.status = StatusOpening

		pkg.LogDebug(pkg.ComponentBridge, "open sent",
			"localID", c.localID,
			"dest", c.dest)
	}
}

// closeAll runs the close path for every connection that is neither unused
// nor already closed.
func (b *Bridge) closeAll() {
	for i := range b.conns {
		c := &b.conns[i]
		if c.status == StatusUnused || c.status == StatusClosed {
			continue
		}
		b.handleClose(c)
	}
}

// detach force-closes all live connections and resets the link state.
func (b *Bridge) detach() {
	pkg.LogInfo(pkg.ComponentBridge, "transport detached")
	b.closeAll()
	b.attached = false
	b.connected = false
}

// readMessage attempts to read one message header from the transport.
// Malformed frames (short header, magic mismatch) are dropped: the next
// poll cycle simply tries again.
func (b *Bridge) readMessage(out *Message, block bool) bool {
	n, err := b.transport.BulkRead(b.rxBuf[:b.packetSize], block)
	if err != nil {
		if !errors.Is(err, pkg.ErrNoData) {
			pkg.LogDebug(pkg.ComponentWire, "bulk read failed", "error", err)
		}
		return false
	}

	if !ParseMessage(b.rxBuf[:n], out) {
		pkg.LogDebug(pkg.ComponentWire, "short message header", "length", n)
		return false
	}
	if !out.Valid() {
		pkg.LogDebug(pkg.ComponentWire, "magic mismatch",
			"command", uint32(out.Command),
			"magic", out.Magic)
		return false
	}
	if n != MessageSize {
		pkg.LogDebug(pkg.ComponentWire, "unexpected header length", "length", n)
		return false
	}

	return true
}

// writeMessage sends a message as two transfers: the fixed header, then the
// payload if any. If the header write fails the payload is not sent.
func (b *Bridge) writeMessage(cmd Command, arg0, arg1 uint32, payload []byte) error {
	m := NewMessage(cmd, arg0, arg1, payload)
	m.MarshalTo(b.hdrBuf[:])

	if _, err := b.transport.BulkWrite(b.hdrBuf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := b.transport.BulkWrite(payload)
	return err
}

// writeEmptyMessage sends a message without payload.
func (b *Bridge) writeEmptyMessage(cmd Command, arg0, arg1 uint32) error {
	return b.writeMessage(cmd, arg0, arg1, nil)
}

// writeStringMessage sends a message whose payload is the string plus its
// terminating NUL.
func (b *Bridge) writeStringMessage(cmd Command, arg0, arg1 uint32, s string) error {
	payload := make([]byte, len(s)+1)
	copy(payload, s)
	return b.writeMessage(cmd, arg0, arg1, payload)
}

// trimNul strips a trailing NUL terminator, if present, for display.
func trimNul(p []byte) []byte {
	if n := len(p); n > 0 && p[n-1] == 0 {
		return p[:n-1]
	}
	return p
}
