package adb

import (
	"bytes"
	"testing"
)

func TestCommand_String(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{CmdSync, "SYNC"},
		{CmdConnect, "CNXN"},
		{CmdOpen, "OPEN"},
		{CmdOkay, "OKAY"},
		{CmdClose, "CLSE"},
		{CmdWrite, "WRTE"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.cmd.String(); got != tt.want {
				t.Errorf("Command.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessage_Roundtrip(t *testing.T) {
	tests := []struct {
		name    string
		cmd     Command
		arg0    uint32
		arg1    uint32
		payload []byte
	}{
		{"empty okay", CmdOkay, 1, 2, nil},
		{"open", CmdOpen, 5, 0, []byte("shell:ls\x00")},
		{"write", CmdWrite, 3, 7, []byte{0x00, 0xFF, 0x10}},
		{"connect", CmdConnect, ProtocolVersion, MaxPayload, []byte(DefaultBanner + "\x00")},
		{"max args", CmdClose, 0xFFFFFFFF, 0xFFFFFFFF, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMessage(tt.cmd, tt.arg0, tt.arg1, tt.payload)

			if m.Magic != uint32(tt.cmd)^0xFFFFFFFF {
				t.Errorf("Magic = 0x%08x, want 0x%08x", m.Magic, uint32(tt.cmd)^0xFFFFFFFF)
			}
			if !m.Valid() {
				t.Error("Valid() = false for freshly built message")
			}
			if m.DataLength != uint32(len(tt.payload)) {
				t.Errorf("DataLength = %d, want %d", m.DataLength, len(tt.payload))
			}

			var buf [MessageSize]byte
			if n := m.MarshalTo(buf[:]); n != MessageSize {
				t.Fatalf("MarshalTo() = %d, want %d", n, MessageSize)
			}

			var out Message
			if !ParseMessage(buf[:], &out) {
				t.Fatal("ParseMessage failed")
			}
			if out != m {
				t.Errorf("roundtrip mismatch: got %+v, want %+v", out, m)
			}
		})
	}
}

func TestMessage_MarshalToShortBuffer(t *testing.T) {
	m := NewMessage(CmdOkay, 1, 2, nil)
	buf := make([]byte, MessageSize-1)
	if n := m.MarshalTo(buf); n != 0 {
		t.Errorf("MarshalTo(short buffer) = %d, want 0", n)
	}
}

func TestParseMessage_Short(t *testing.T) {
	var out Message
	for _, n := range []int{0, 1, MessageSize - 1} {
		if ParseMessage(make([]byte, n), &out) {
			t.Errorf("ParseMessage accepted %d-byte input", n)
		}
	}
}

func TestMessage_Valid(t *testing.T) {
	m := NewMessage(CmdWrite, 1, 2, nil)
	if !m.Valid() {
		t.Fatal("Valid() = false for well-formed message")
	}

	m.Magic ^= 1
	if m.Valid() {
		t.Error("Valid() = true after corrupting magic")
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    uint32
	}{
		{"nil", nil, 0},
		{"empty", []byte{}, 0},
		{"all zero", make([]byte, 64), 0},
		{"single", []byte{0xAB}, 0xAB},
		{"sum", []byte{1, 2, 3, 4, 5}, 15},
		{"max bytes", bytes.Repeat([]byte{0xFF}, 4), 4 * 0xFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.payload); got != tt.want {
				t.Errorf("Checksum() = %d, want %d", got, tt.want)
			}
		})
	}
}
