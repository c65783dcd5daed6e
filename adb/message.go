package adb

import "encoding/binary"

// MessageSize is the wire size of a message header in bytes.
const MessageSize = 24

// Message is the fixed 24-byte header preceding every ADB frame. Fields are
// 32-bit unsigned, little-endian on the wire.
type Message struct {
	Command    Command // Command code
	Arg0       uint32  // First argument (command dependent)
	Arg1       uint32  // Second argument (command dependent)
	DataLength uint32  // Payload byte count (0 if none)
	DataCheck  uint32  // Sum of payload bytes modulo 2^32
	Magic      uint32  // Command XOR 0xFFFFFFFF, integrity guard
}

// NewMessage builds a message header for the given command, arguments, and
// payload. DataLength and DataCheck are derived from the payload; pass nil
// for an empty frame.
func NewMessage(cmd Command, arg0, arg1 uint32, payload []byte) Message {
	return Message{
		Command:    cmd,
		Arg0:       arg0,
		Arg1:       arg1,
		DataLength: uint32(len(payload)),
		DataCheck:  Checksum(payload),
		Magic:      uint32(cmd) ^ 0xFFFFFFFF,
	}
}

// Checksum returns the sum of the payload bytes modulo 2^32.
func Checksum(payload []byte) uint32 {
	var sum uint32
	for _, b := range payload {
		sum += uint32(b)
	}
	return sum
}

// Valid reports whether the header passes the magic integrity check.
//
// The payload checksum is not verified on receive; only the header magic
// guards frame integrity. This mirrors the ADB reference behavior on
// point-to-point bulk links, where corrupted frames are expected to be
// rare and transient.
func (m *Message) Valid() bool {
	return m.Magic == uint32(m.Command)^0xFFFFFFFF
}

// MarshalTo writes the header to buf.
// Returns the number of bytes written (24), or 0 if buf is too small.
func (m *Message) MarshalTo(buf []byte) int {
	if len(buf) < MessageSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.Command))
	binary.LittleEndian.PutUint32(buf[4:8], m.Arg0)
	binary.LittleEndian.PutUint32(buf[8:12], m.Arg1)
	binary.LittleEndian.PutUint32(buf[12:16], m.DataLength)
	binary.LittleEndian.PutUint32(buf[16:20], m.DataCheck)
	binary.LittleEndian.PutUint32(buf[20:24], m.Magic)
	return MessageSize
}

// ParseMessage parses raw header bytes into out.
// Returns false if data is too short.
func ParseMessage(data []byte, out *Message) bool {
	if len(data) < MessageSize {
		return false
	}
	out.Command = Command(binary.LittleEndian.Uint32(data[0:4]))
	out.Arg0 = binary.LittleEndian.Uint32(data[4:8])
	out.Arg1 = binary.LittleEndian.Uint32(data[8:12])
	out.DataLength = binary.LittleEndian.Uint32(data[12:16])
	out.DataCheck = binary.LittleEndian.Uint32(data[16:20])
	out.Magic = binary.LittleEndian.Uint32(data[20:24])
	return true
}
