package hal

import "time"

// Transport defines the abstraction layer between the ADB protocol engine
// and the physical USB bulk link.
//
// The engine needs only three capabilities from the transport: bulk write,
// bulk read (polled or blocking), and a device-present predicate. Device
// discovery -- locating the ADB interface (class 0xFF, subclass 0x42,
// protocol 0x01, exactly two bulk endpoints) and claiming it -- is the
// transport's responsibility and surfaces to the engine only through
// [Transport.Attached].
//
// All methods are invoked from a single goroutine (the engine's poll loop);
// implementations do not need to be safe for concurrent use by the engine,
// though they may be driven concurrently by their own machinery.
type Transport interface {
	// Poll services the transport's own housekeeping. It is invoked once
	// per engine poll cycle, before any other transport operation.
	Poll() error

	// Attached reports whether a device is currently present on the link.
	Attached() bool

	// MaxPacketSize returns the maximum bulk packet size in bytes.
	MaxPacketSize() int

	// BulkWrite writes p to the OUT endpoint as a single bulk transfer.
	// Returns the number of bytes written.
	BulkWrite(p []byte) (int, error)

	// BulkRead reads one bulk transfer from the IN endpoint into p,
	// returning the number of bytes received. Transfer boundaries are
	// preserved: one call consumes at most one transfer.
	//
	// With block false the read is a poll: if no transfer is pending it
	// returns [pkg.ErrNoData] immediately. With block true it waits until
	// a transfer arrives or the device detaches. Use block true only when
	// a transfer is known to be in flight (e.g. the payload following a
	// message header).
	BulkRead(p []byte, block bool) (int, error)
}

// Clock provides the engine's notion of time: a monotonic millisecond
// counter for retry pacing and a delay used after the handshake probe.
// Supplying a fake Clock lets tests step the engine deterministically.
type Clock interface {
	// Millis returns a monotonically increasing millisecond counter.
	Millis() int64

	// Sleep pauses the caller for the given duration.
	Sleep(d time.Duration)
}

// SystemClock implements Clock using the system wall clock.
type SystemClock struct{}

// Millis returns the current time in milliseconds since the Unix epoch.
func (SystemClock) Millis() int64 { return time.Now().UnixMilli() }

// Sleep pauses the caller for the given duration.
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
