// Package adb implements the host side of the Android Debug Bridge wire
// protocol over a single USB bulk transport.
//
// It multiplexes an arbitrary number of independent logical streams (shell
// sessions, TCP forwards) over one physical link, performs the initial
// device handshake, and exposes an event-driven API so that application
// code can open streams, send and receive payloads, and react to lifecycle
// events without managing the wire format itself.
//
// # Architecture
//
// The engine is organized around a few cooperating pieces, all owned by a
// [Bridge]:
//
//   - Message codec: the fixed 24-byte header, payload checksum, and frame
//     building ([Message], [ParseMessage], [Checksum])
//   - Connection table: fixed-capacity slots with stable local ids
//     (slot index + 1, never zero)
//   - Per-connection state machine driven by incoming OKAY/CLSE/WRTE
//     messages and local write requests
//   - Handshake controller: retries the CNXN probe until the device
//     answers, then paces OPEN retries for closed connections
//   - Event dispatch: a global handler plus optional per-connection
//     handlers, invoked synchronously
//
// # Cooperative scheduling
//
// The engine has no goroutines of its own. [Bridge.Poll] is the single
// entry point; the embedding application calls it repeatedly (from a timer,
// a task loop, or explicit test stepping) and every state transition
// happens synchronously inside that call. At most one message is in flight
// on the wire at any instant, which is what makes lock-free multiplexing
// over the single transport sound.
//
// Poll never blocks except while draining a known-length inbound payload.
// A stalled peer leaves a connection in the opening or writing state
// indefinitely; the recovery path is a transport-level detach, which
// force-closes every connection.
//
// # Zero-Allocation Design
//
// The engine is sized at construction and is allocation-free in steady
// state:
//
//   - Fixed-size connection table addressed by local id
//   - Reusable header, packet, and banner buffers
//   - Event payloads passed as slices into engine-owned storage
//
// # Example
//
//	t, err := libusb.Open()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	bridge := adb.New(t)
//	bridge.SetEventHandler(func(c *adb.Conn, e adb.EventType, data []byte) {
//	    if e == adb.EventConnectionReceive {
//	        os.Stdout.Write(data)
//	    }
//	})
//
//	conn, err := bridge.AddConnection("shell:ls", false, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = conn
//
//	for {
//	    if err := bridge.Poll(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// A loopback transport for testing is available in
// [github.com/ardnew/microbridge/adb/hal/fifo].
package adb
