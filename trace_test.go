package szservo

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
)

// recordTransfer drives a full transfer through the recorder and returns it
// with a few idle cycles of margin on both ends.
func recordTransfer(t *testing.T, p Params, data []uint64, req Pins) *Recorder {
	t.Helper()
	c := mustController(t, p)
	if err := c.SetData(data...); err != nil {
		t.Fatal(err)
	}
	dac := &DACModel{DataWidth: p.DataWidth, BusyCycles: 2}
	rec := &Recorder{SampleRate: 8e6}

	rec.Record(c.Pins(), dac.Busy())
	dac.Observe(c.Pins())
	in := req
	for i := 0; i < 100000; i++ {
		in.Busy = dac.Busy()
		pins := c.Step(in)
		dac.Observe(pins)
		rec.Record(pins, in.Busy)
		if pins.Ready {
			break
		}
		in = Pins{}
	}
	if !c.Ready() {
		t.Fatalf("transfer never finished, state %s", c.State())
	}
	for i := 0; i < 16; i++ {
		pins := c.Step(Pins{Busy: dac.Busy()})
		dac.Observe(pins)
		rec.Record(pins, true)
	}
	return rec
}

func TestSaleaeCaptureRoundTrip(t *testing.T) {
	p := Params{Channels: 4, DataWidth: 24, ClkDiv: 4}
	data := []uint64{0x123456, 0x89abcd, 0x0ff0aa, 0xdead55}
	rec := recordTransfer(t, p, data, Pins{Start: true})

	dir := t.TempDir()
	if err := rec.WriteCaptures(dir); err != nil {
		t.Fatal(err)
	}
	open := func(l Line) *saleae.DigitalFile {
		fp, err := os.Open(filepath.Join(dir, l.FileName()))
		if err != nil {
			t.Fatal(err)
		}
		defer fp.Close()
		df, err := saleae.ReadDigitalFile(fp)
		if err != nil {
			t.Fatal(err)
		}
		return df
	}
	clk := open(LineSclk)
	cs := open(LineSync)
	sd := open(LineSdi)

	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, cs, sd, sd)
	if len(txs) != p.Channels {
		t.Fatalf("analyzer found %d transactions, want %d", len(txs), p.Channels)
	}
	lastStart := -1.0
	for k, tx := range txs {
		if len(tx.SDO) != 3 {
			t.Fatalf("transaction %d: %d bytes, want 3", k, len(tx.SDO))
		}
		got := uint64(tx.SDO[0])<<16 | uint64(tx.SDO[1])<<8 | uint64(tx.SDO[2])
		if want := data[p.Channels-1-k]; got != want {
			t.Errorf("transaction %d: decoded %#x, want %#x", k, got, want)
		}
		if tx.StartTime() <= lastStart {
			t.Errorf("transaction %d: start time not increasing", k)
		}
		lastStart = tx.StartTime()
	}
}

func TestWriteLineFormat(t *testing.T) {
	p := Params{Channels: 2, DataWidth: 8, ClkDiv: 1}
	rec := recordTransfer(t, p, []uint64{0xaa, 0x55}, Pins{Start: true})

	var buf bytes.Buffer
	if err := rec.WriteLine(&buf, LineSclk); err != nil {
		t.Fatal(err)
	}
	var hdr digitalHeader
	if err := binary.Read(&buf, binary.LittleEndian, &hdr); err != nil {
		t.Fatal(err)
	}
	if hdr.Magic != saleaeMagic {
		t.Errorf("bad magic %q", hdr.Magic)
	}
	if hdr.Version != 0 || hdr.Type != 0 {
		t.Error("not a version 0 digital file")
	}
	if hdr.InitialState != 0 {
		t.Error("serial clock must rest low")
	}
	// One rising and one falling edge per transmitted bit, plus the
	// terminating entry at capture end.
	if want := uint64(2*p.Channels*p.DataWidth) + 1; hdr.NumTransitions != want {
		t.Errorf("%d clock transitions, want %d", hdr.NumTransitions, want)
	}
	if got := uint64(buf.Len()); got != 8*hdr.NumTransitions {
		t.Errorf("%d payload bytes, want %d", got, 8*hdr.NumTransitions)
	}
	if hdr.EndTime <= hdr.BeginTime {
		t.Error("empty capture window")
	}
	times := make([]float64, hdr.NumTransitions)
	if err := binary.Read(&buf, binary.LittleEndian, times); err != nil {
		t.Fatal(err)
	}
	last := times[len(times)-1]
	if last != hdr.EndTime {
		t.Errorf("terminating entry at %v, want capture end %v", last, hdr.EndTime)
	}
	if prev := times[len(times)-2]; last <= prev {
		t.Errorf("terminating entry %v not after last edge %v", last, prev)
	}

	var empty Recorder
	if err := empty.WriteLine(&buf, LineSync); err != errNoSamples {
		t.Error("expected errNoSamples for empty recorder")
	}
}
