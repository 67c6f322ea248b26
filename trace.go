package szservo

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Trace line indices. They double as the digital_N.bin capture file numbers
// so exported sessions drop straight into cmd/szanalyze with its default
// flags, which follow the Saleae Logic 2 export naming.
type Line int

const (
	LineSync Line = iota // chip select
	LineSdi              // serial data
	LineSclk             // serial clock
	LineBusy             // DAC busy handshake
	numLines
)

func (l Line) String() (s string) {
	switch l {
	case LineSync:
		s = "cs"
	case LineSdi:
		s = "sd"
	case LineSclk:
		s = "clk"
	case LineBusy:
		s = "busy"
	default:
		s = "unknown"
	}
	return s
}

// FileName returns the capture file name for a line.
func (l Line) FileName() string {
	return "digital_" + strconv.Itoa(int(l)) + ".bin"
}

var errNoSamples = errors.New("szservo: no samples recorded")

// Recorder captures per-cycle signal levels and exports each line as a
// Saleae digital binary file, the format parsed by saleae.ReadDigitalFile.
type Recorder struct {
	// SampleRate is the system clock frequency in Hz used for the exported
	// timebase. Defaults to 1MHz.
	SampleRate float64

	cycles uint64
	lines  [numLines]lineTrace
}

type lineTrace struct {
	level       bool
	initial     bool
	started     bool
	transitions []float64
}

// Record consumes one cycle of controller outputs plus the busy input
// level. Call exactly once per system clock cycle.
func (r *Recorder) Record(p PinState, busy bool) {
	levels := [numLines]bool{p.Sync, p.Sdi, p.Sclk, busy}
	for i := range r.lines {
		lt := &r.lines[i]
		if !lt.started {
			lt.initial, lt.level, lt.started = levels[i], levels[i], true
			continue
		}
		if levels[i] != lt.level {
			lt.level = levels[i]
			t := float64(r.cycles) / r.rate()
			if Line(i) == LineSclk {
				// Clock edges are exported a quarter cycle late so that
				// simultaneous data transitions resolve before the sampling
				// edge, as they do on a capture of a real board.
				t += 0.25 / r.rate()
			}
			lt.transitions = append(lt.transitions, t)
		}
	}
	r.cycles++
}

// Cycles returns the number of recorded cycles.
func (r *Recorder) Cycles() uint64 { return r.cycles }

func (r *Recorder) rate() float64 {
	if r.SampleRate <= 0 {
		return 1e6
	}
	return r.SampleRate
}

// Saleae digital binary file layout, version 0.
type digitalHeader struct {
	Magic          [8]byte
	Version        int32
	Type           int32 // 0: digital, 1: analog
	InitialState   uint32
	BeginTime      float64
	EndTime        float64
	NumTransitions uint64
}

var saleaeMagic = [8]byte{'<', 'S', 'A', 'L', 'E', 'A', 'E', '>'}

// WriteLine writes one line's capture in Saleae digital binary format.
// Every line is terminated with one extra entry at capture end time:
// readers only apply a transition once a later entry exists, so a line must
// not end on a real transition.
func (r *Recorder) WriteLine(w io.Writer, l Line) error {
	lt := &r.lines[l]
	if !lt.started {
		return errNoSamples
	}
	end := float64(r.cycles) / r.rate()
	hdr := digitalHeader{
		Magic:          saleaeMagic,
		Version:        0,
		Type:           0,
		InitialState:   uint32(b2u64(lt.initial)),
		BeginTime:      0,
		EndTime:        end,
		NumTransitions: uint64(len(lt.transitions)) + 1,
	}
	err := binary.Write(w, binary.LittleEndian, hdr)
	if err != nil {
		return err
	}
	err = binary.Write(w, binary.LittleEndian, lt.transitions)
	if err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, end)
}

// WriteCaptures writes all lines to dir as digital_0.bin (chip select),
// digital_1.bin (data), digital_2.bin (clock) and digital_3.bin (busy).
func (r *Recorder) WriteCaptures(dir string) error {
	for l := Line(0); l < numLines; l++ {
		fp, err := os.Create(filepath.Join(dir, l.FileName()))
		if err != nil {
			return err
		}
		err = r.WriteLine(fp, l)
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}
	return nil
}
