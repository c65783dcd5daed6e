// Package libusb provides a [hal.Transport] backed by a physical USB
// device through github.com/google/gousb.
//
// A device qualifies when one of its interfaces carries the ADB function
// signature: class 0xFF, subclass 0x42, protocol 0x01, with one bulk
// endpoint in each direction. Open claims that interface and binds the
// transport to its endpoints; List enumerates candidates without
// claiming them.
//
// Non-blocking reads are implemented with a short context deadline on
// the IN endpoint, translated to [pkg.ErrNoData] so the engine's poll
// loop keeps its cooperative cadence against real hardware.
package libusb
