package ad53xx

import "testing"

func TestWordFields(t *testing.T) {
	w := New(ModeWriteX, ChannelAddr(3), 0x8001)
	if w.Mode() != ModeWriteX {
		t.Error("bad mode")
	}
	if w.Addr() != 0b001011 {
		t.Errorf("bad addr %#b", w.Addr())
	}
	if w.Data() != 0x8001 {
		t.Error("bad data")
	}
	if w.Uint32() != 0xcb8001 {
		t.Errorf("bad frame %#x", w.Uint32())
	}
}

func TestChannelAddr(t *testing.T) {
	// Eight channels to a group, groups start at address 8.
	for _, tc := range []struct {
		ch   int
		addr uint8
	}{
		{0, 0o10}, {7, 0o17}, {8, 0o20}, {31, 0o47},
	} {
		if got := ChannelAddr(tc.ch); got != tc.addr {
			t.Errorf("channel %d: addr %#o, want %#o", tc.ch, got, tc.addr)
		}
	}
}

func TestBytesRoundTrip(t *testing.T) {
	w := Special(SFWriteOFS0, 0x1fff)
	b := w.Bytes()
	if b[0] != 0x02 || b[1] != 0x1f || b[2] != 0xff {
		t.Errorf("bad wire bytes %#x", b)
	}
	if FromBytes(b) != w {
		t.Error("round trip mismatch")
	}
}

func TestCtrlInit(t *testing.T) {
	if CtrlInit.Mode() != ModeSpecial {
		t.Error("init word must be a special function frame")
	}
	if CtrlInit.Addr() != SFWriteControl {
		t.Error("init word must write the control register")
	}
	if CtrlInit.Data()&CtrlSoftPowerDown != 0 {
		t.Error("init word must not power the outputs down")
	}
}
