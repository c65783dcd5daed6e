package adb

import (
	"fmt"
	"time"
)

// Command identifies an ADB protocol message type.
type Command uint32

// ADB command codes as defined by the Android Debug Bridge protocol.
// The values are the ASCII command names packed little-endian, and must
// match exactly for interoperability with real ADB peers.
const (
	CmdSync    Command = 0x434E5953 // "SYNC"
	CmdConnect Command = 0x4E584E43 // "CNXN"
	CmdOpen    Command = 0x4E45504F // "OPEN"
	CmdOkay    Command = 0x59414B4F // "OKAY"
	CmdClose   Command = 0x45534C43 // "CLSE"
	CmdWrite   Command = 0x45545257 // "WRTE"
)

// String returns the four-character command name.
func (c Command) String() string {
	switch c {
	case CmdSync:
		return "SYNC"
	case CmdConnect:
		return "CNXN"
	case CmdOpen:
		return "OPEN"
	case CmdOkay:
		return "OKAY"
	case CmdClose:
		return "CLSE"
	case CmdWrite:
		return "WRTE"
	default:
		return fmt.Sprintf("Unknown Command (0x%08x)", uint32(c))
	}
}

// Protocol parameters advertised in the CNXN handshake.
const (
	// ProtocolVersion is the ADB protocol version sent in CNXN arg0.
	ProtocolVersion = 0x01000000

	// MaxPayload is the maximum payload size in bytes this side accepts,
	// sent in CNXN arg1.
	MaxPayload = 4096

	// DefaultBanner is the identity string sent with the CNXN handshake.
	DefaultBanner = "host::microbridge"
)

// Engine capacity limits.
const (
	// MaxConnections is the number of connection slots in the table.
	MaxConnections = 8

	// MaxDestLength is the capacity reserved for a destination string,
	// including its wire terminator. Destination strings longer than
	// MaxDestLength-1 bytes are rejected.
	MaxDestLength = 64

	// maxPacketBuf bounds the scratch buffer used for bulk reads.
	// The effective chunk size is the transport's maximum packet size,
	// clamped to this value.
	maxPacketBuf = 512

	// maxBannerLength bounds the CNXN banner payload drained on
	// handshake completion.
	maxBannerLength = 256
)

// Timing parameters.
const (
	// RetryInterval is the minimum time between OPEN attempts for a
	// connection in the closed state.
	RetryInterval = 1000 * time.Millisecond

	// connectDelay is the pause after sending a CNXN probe, giving the
	// device time to respond before the next poll cycle.
	connectDelay = 500 * time.Millisecond
)
