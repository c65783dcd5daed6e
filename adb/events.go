package adb

import "fmt"

// EventType identifies a bridge lifecycle or data event.
type EventType uint8

// Bridge event types.
const (
	EventConnect           EventType = 0 // Link handshake completed (conn is nil)
	EventConnectionOpen    EventType = 1 // Connection accepted by the peer
	EventConnectionClose   EventType = 2 // Connection closed by the peer
	EventConnectionFailed  EventType = 3 // Open attempt rejected by the peer
	EventConnectionReceive EventType = 4 // Payload chunk received from the peer
)

// String returns a human-readable event name.
func (e EventType) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventConnectionOpen:
		return "connection-open"
	case EventConnectionClose:
		return "connection-close"
	case EventConnectionFailed:
		return "connection-failed"
	case EventConnectionReceive:
		return "connection-receive"
	default:
		return fmt.Sprintf("Unknown Event (%d)", e)
	}
}

// EventHandler receives bridge events. For link-level events (EventConnect)
// conn is nil. For EventConnect and EventConnectionReceive, data carries the
// peer banner or the received chunk respectively; it is valid only for the
// duration of the call and must be copied if retained.
//
// Handlers run synchronously inside [Bridge.Poll], in the caller's execution
// context, and must not block indefinitely.
type EventHandler func(conn *Conn, event EventType, data []byte)

// fireEvent delivers an event to the global handler, then to the handler of
// the connection in question, if either is set.
func (b *Bridge) fireEvent(c *Conn, event EventType, data []byte) {
	if b.handler != nil {
		b.handler(c, event, data)
	}
	if c != nil && c.handler != nil {
		c.handler(c, event, data)
	}
}
