package pkg

import "errors"

// Engine and transport errors.
var (
	// ErrNoDevice indicates no transport is attached.
	ErrNoDevice = errors.New("device not present")

	// ErrNotConnected indicates the ADB link handshake has not completed.
	ErrNotConnected = errors.New("link not connected")

	// ErrNotOpen indicates the connection is not open for writing.
	ErrNotOpen = errors.New("connection not open")

	// ErrTableFull indicates all connection slots are in use.
	ErrTableFull = errors.New("connection table full")

	// ErrDestTooLong indicates the destination string exceeds the maximum length.
	ErrDestTooLong = errors.New("destination string too long")

	// ErrNoData indicates a polled read found no pending transfer.
	ErrNoData = errors.New("no data available")

	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")
)
