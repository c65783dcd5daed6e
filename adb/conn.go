package adb

import (
	"fmt"

	"github.com/ardnew/microbridge/pkg"
)

// Status represents the lifecycle state of a connection slot.
type Status uint8

// Connection states.
const (
	StatusUnused    Status = 0 // Slot is free
	StatusClosed    Status = 1 // Allocated, not open; eligible for OPEN
	StatusOpening   Status = 2 // OPEN sent, awaiting OKAY or CLSE
	StatusOpen      Status = 3 // Usable for writes
	StatusWriting   Status = 4 // WRTE sent, awaiting OKAY
	StatusReceiving Status = 5 // Inbound payload being streamed in
)

// String returns a human-readable state name.
func (s Status) String() string {
	switch s {
	case StatusUnused:
		return "unused"
	case StatusClosed:
		return "closed"
	case StatusOpening:
		return "opening"
	case StatusOpen:
		return "open"
	case StatusWriting:
		return "writing"
	case StatusReceiving:
		return "receiving"
	default:
		return fmt.Sprintf("Unknown Status (%d)", s)
	}
}

// Conn is one logical stream multiplexed over the bridge's transport.
// Conns are owned by the Bridge's fixed connection table and obtained from
// [Bridge.AddConnection]; the pointer remains valid for the lifetime of the
// Bridge, but a non-persistent connection's slot may be reassigned after it
// closes.
type Conn struct {
	localID  uint32 // Slot index + 1; never zero
	remoteID uint32 // Peer-assigned id; meaningless until open
	dest     string // ADB destination, e.g. "shell:ls" or "tcp:1234"
	status   Status

	// persistent connections return to the closed state after a close
	// and are reopened automatically; others release their slot.
	persistent bool

	// lastOpenAttempt is the clock reading of the most recent OPEN send,
	// used for retry pacing. Zero means no attempt has been made.
	lastOpenAttempt int64

	// Running counters for the payload currently being streamed in.
	bytesReceived uint32
	expectedBytes uint32

	handler EventHandler
}

// LocalID returns the identifier this side assigned to the connection.
func (c *Conn) LocalID() uint32 { return c.localID }

// RemoteID returns the identifier the peer assigned on open.
// It is meaningless until the connection has reached the open state.
func (c *Conn) RemoteID() uint32 { return c.remoteID }

// Status returns the current connection state.
func (c *Conn) Status() Status { return c.status }

// Destination returns the ADB destination string fixed at creation.
func (c *Conn) Destination() string { return c.dest }

// Persistent reports whether the connection is reopened after a close.
func (c *Conn) Persistent() bool { return c.persistent }

// findByLocalID returns the live connection owning the given local id,
// or nil if none matches. A zero id never matches: unused slots have a
// zero local id and live connections are numbered from one.
func (b *Bridge) findByLocalID(id uint32) *Conn {
	for i := range b.conns {
		c := &b.conns[i]
		if c.status != StatusUnused && c.localID == id {
			return c
		}
	}
	return nil
}

// release returns a connection to the closed state if persistent,
// otherwise frees its slot.
func (b *Bridge) release(c *Conn) {
	if c.persistent {
		c.status = StatusClosed
		return
	}
	*c = Conn{}
}

// handleOkay advances the state machine for an incoming OKAY message.
func (b *Bridge) handleOkay(c *Conn, m *Message) {
	switch c.status {
	case StatusOpening:
		// The peer accepted our OPEN; arg0 carries its stream id.
		c.remoteID = m.Arg0
		c.status = StatusOpen
		pkg.LogDebug(pkg.ComponentConn, "connection open",
			"localID", c.localID,
			"remoteID", c.remoteID,
			"dest", c.dest)
		b.fireEvent(c, EventConnectionOpen, nil)

	case StatusWriting:
		// Write acknowledged.
		c.status = StatusOpen

	default:
		pkg.LogWarn(pkg.ComponentConn, "unexpected OKAY",
			"localID", c.localID,
			"status", c.status)
	}
}

// handleClose processes an incoming CLSE message and fires the matching
// event: a close during open negotiation is a failed open, anything else
// is a peer-initiated close. The slot is then recycled or freed according
// to persistence.
func (b *Bridge) handleClose(c *Conn) {
	if c.status == StatusOpening {
		b.fireEvent(c, EventConnectionFailed, nil)
	} else {
		b.fireEvent(c, EventConnectionClose, nil)
	}

	pkg.LogDebug(pkg.ComponentConn, "connection closed",
		"localID", c.localID,
		"persistent", c.persistent)

	b.release(c)
}

// handleWrite drains the payload announced by an incoming WRTE message,
// firing a receive event per chunk, then acknowledges the transfer with an
// OKAY addressed to the peer (id arguments swapped). The connection holds
// the receiving state for the duration and is restored afterward.
func (b *Bridge) handleWrite(c *Conn, m *Message) {
	prev := c.status
	c.status = StatusReceiving
	c.bytesReceived = 0
	c.expectedBytes = m.DataLength

	left := int(m.DataLength)
	for left > 0 {
		chunk := left
		if chunk > b.packetSize {
			chunk = b.packetSize
		}

		n, err := b.transport.BulkRead(b.rxBuf[:chunk], true)
		if err != nil || n == 0 {
			pkg.LogWarn(pkg.ComponentConn, "payload drain aborted",
				"localID", c.localID,
				"remaining", left,
				"error", err)
			break
		}
		if n != chunk {
			pkg.LogWarn(pkg.ComponentConn, "short payload read",
				"expected", chunk,
				"read", n,
				"remaining", left)
		}

		c.bytesReceived += uint32(n)
		b.fireEvent(c, EventConnectionReceive, b.rxBuf[:n])
		left -= n
	}

	// Acknowledge with our local id and the peer's id reversed.
	if err := b.writeEmptyMessage(CmdOkay, m.Arg1, m.Arg0); err != nil {
		pkg.LogWarn(pkg.ComponentConn, "receive ack failed",
			"localID", c.localID,
			"error", err)
	}

	c.status = prev
}
