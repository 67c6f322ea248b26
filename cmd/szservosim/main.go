package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jmatyas/szservo"
	"github.com/jmatyas/szservo/ad53xx"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "szservosim - Run the szservo SPI DAC controller against a simulated AD537x and export Saleae captures.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	channels := flag.Int("channels", 4, "Number of DAC channels per transfer.")
	width := flag.Int("width", ad53xx.WordBits, "Bits per channel word.")
	div := flag.Int("div", 4, "System clock cycles per serial half period.")
	rate := flag.Float64("rate", 1e6, "System clock frequency in Hz for the exported timebase.")
	dataFlag := flag.String("data", "", "Comma separated hex words, one per channel. Missing channels ramp.")
	doInit := flag.Bool("init", false, "Send the initialization transfer before the data transfer.")
	transfers := flag.Int("transfers", 1, "Number of normal transfers to run.")
	busyCycles := flag.Int("busy-cycles", 2, "Cycles the simulated DAC holds busy low per word.")
	outDir := flag.String("o", ".", "Output directory for digital_*.bin capture files.")
	verbose := flag.Bool("v", false, "Log FSM transitions.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug - 1
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	params := szservo.Params{Channels: *channels, DataWidth: *width, ClkDiv: *div}
	ctl, err := szservo.New(szservo.Config{Params: params, Logger: logger})
	if err != nil {
		log.Fatal(err.Error())
	}
	data, err := parseData(*dataFlag, params)
	if err != nil {
		log.Fatal(err.Error())
	}
	if err := ctl.SetData(data...); err != nil {
		log.Fatal(err.Error())
	}

	dac := &szservo.DACModel{DataWidth: params.DataWidth, BusyCycles: *busyCycles}
	rec := &szservo.Recorder{SampleRate: *rate}

	sim := simulation{ctl: ctl, dac: dac, rec: rec}
	sim.idle(4)
	if *doInit {
		if *dataFlag == "" {
			ctl.SetSegment(0, uint64(ad53xx.CtrlInit.Uint32()))
		}
		sim.transfer(szservo.Pins{Init: true})
		ctl.SetData(data...)
	}
	for i := 0; i < *transfers; i++ {
		sim.transfer(szservo.Pins{Start: true})
	}
	sim.idle(16)

	if err := rec.WriteCaptures(*outDir); err != nil {
		log.Fatal(err.Error())
	}
	logger.Info("session done",
		slog.Uint64("cycles", rec.Cycles()),
		slog.Uint64("ticks", ctl.Ticks()),
		slog.Int("words", len(dac.Words())),
		slog.String("dir", *outDir),
	)
	for i, w := range dac.Words() {
		fmt.Printf("word %2d: %s\n", i, ad53xx.Word(w).String())
	}
}

type simulation struct {
	ctl *szservo.Controller
	dac *szservo.DACModel
	rec *szservo.Recorder
}

func (s *simulation) step(in szservo.Pins) szservo.PinState {
	in.Busy = s.dac.Busy()
	p := s.ctl.Step(in)
	s.dac.Observe(p)
	s.rec.Record(p, in.Busy)
	return p
}

func (s *simulation) idle(cycles int) {
	for i := 0; i < cycles; i++ {
		s.step(szservo.Pins{})
	}
}

// transfer pulses the request lines for one cycle and runs until the
// controller reports ready again.
func (s *simulation) transfer(req szservo.Pins) {
	const maxCycles = 10_000_000
	p := s.step(req)
	for i := 0; !p.Ready; i++ {
		if i >= maxCycles {
			log.Fatal("transfer did not complete, state " + s.ctl.State().String())
		}
		p = s.step(szservo.Pins{})
	}
}

// parseData fills one word per channel from a comma separated hex list,
// ramping any channels left unspecified.
func parseData(s string, p szservo.Params) ([]uint64, error) {
	data := make([]uint64, p.Channels)
	for i := range data {
		data[i] = uint64(0x1000*i+0x8000) & (1<<p.DataWidth - 1)
	}
	if s == "" {
		return data, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > p.Channels {
		return nil, fmt.Errorf("%d data words for %d channels", len(parts), p.Channels)
	}
	for i, part := range parts {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(part), "0x"), 16, 64)
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return data, nil
}
