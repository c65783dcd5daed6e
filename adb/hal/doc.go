// Package hal defines the transport abstraction used by the ADB protocol
// engine in github.com/ardnew/microbridge/adb.
//
// The [Transport] interface covers exactly the capabilities the engine
// requires from the USB bulk link: housekeeping, a device-present
// predicate, and bulk read/write with preserved transfer boundaries.
// The [Clock] interface isolates the engine from real time so tests can
// drive retry pacing explicitly.
//
// Two implementations ship with this module:
//
//   - [github.com/ardnew/microbridge/adb/hal/fifo] is an in-memory
//     loopback transport with a scriptable peer side, used by the test
//     suite and useful for embedders' own tests.
//   - [github.com/ardnew/microbridge/adb/hal/libusb] drives a real USB
//     device through github.com/google/gousb.
package hal
