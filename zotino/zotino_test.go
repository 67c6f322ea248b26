package zotino

import (
	"bytes"
	"testing"

	"github.com/jmatyas/szservo/ad53xx"
)

// busRecorder fakes an SPI bus and records framed transfers.
type busRecorder struct {
	cs     bool
	frames [][]byte
}

func (b *busRecorder) Tx(w, r []byte) error {
	if b.cs {
		panic("transfer with chip select deasserted")
	}
	b.frames = append(b.frames, append([]byte{}, w...))
	return nil
}

func (b *busRecorder) Transfer(c byte) (byte, error) {
	b.Tx([]byte{c}, nil)
	return 0, nil
}

func TestWriteChannels(t *testing.T) {
	bus := &busRecorder{cs: true}
	d := &Driver{
		Bus: bus,
		CS:  func(level bool) { bus.cs = level },
	}
	if err := d.Configure(); err != nil {
		t.Fatal(err)
	}
	vals := []uint16{0x0000, 0x8000, 0xffff}
	if err := d.WriteChannels(vals); err != nil {
		t.Fatal(err)
	}
	if len(bus.frames) != len(vals) {
		t.Fatalf("got %d frames, want %d", len(bus.frames), len(vals))
	}
	if !bus.cs {
		t.Error("chip select left asserted")
	}
	for ch, v := range vals {
		want := ad53xx.New(ad53xx.ModeWriteX, ad53xx.ChannelAddr(ch), v).Bytes()
		if !bytes.Equal(bus.frames[ch], want[:]) {
			t.Errorf("channel %d: frame %#x, want %#x", ch, bus.frames[ch], want)
		}
	}
}

func TestInitFrame(t *testing.T) {
	bus := &busRecorder{}
	d := &Driver{Bus: bus, CS: func(bool) {}}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	want := ad53xx.CtrlInit.Bytes()
	if len(bus.frames) != 1 || !bytes.Equal(bus.frames[0], want[:]) {
		t.Errorf("init frame %#x, want %#x", bus.frames, want)
	}
}

func TestConfigureErrors(t *testing.T) {
	if err := (&Driver{}).Configure(); err != errNoBus {
		t.Error("expected missing bus error")
	}
	if err := (&Driver{Bus: &busRecorder{}}).Configure(); err != errNoChipSel {
		t.Error("expected missing chip select error")
	}
	d := &Driver{Bus: &busRecorder{}, CS: func(bool) {}}
	if err := d.WriteChannels(nil); err != errNoChannels {
		t.Error("expected no channels error")
	}
}
