// Package fifo provides an in-memory loopback implementation of
// [github.com/ardnew/microbridge/adb/hal.Transport].
//
// Each link has two ends: the [Transport] given to the engine, and a
// [Peer] representing the device side. Tests script the peer -- attach,
// inject frames, observe what the engine wrote, detach -- to drive the
// engine through protocol scenarios without hardware.
//
//	transport, peer := fifo.New()
//	bridge := adb.New(transport)
//	peer.Attach()
//	// bridge.Poll() now sees an attached device.
package fifo
