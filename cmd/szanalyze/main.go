package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jmatyas/szservo/ad53xx"
	"github.com/soypat/saleae"
	"github.com/soypat/saleae/analyzers"
	"golang.org/x/exp/constraints"
)

// Optional flags.
var (
	timingsOutput string
)

type WordCtl struct {
	TrimForce   uint
	OmitNop     bool
	OmitSpecial bool
	OmitData    bool
}

func main() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "szanalyze - Process binary Saleae digital data files corresponding to AD537x DAC transactions.\n\tUsage:\n")
		flag.PrintDefaults()
	}
	sd := flag.String("f-sd", "digital_1.bin", "Input filename: SPI SDI data.")
	enable := flag.String("f-cs", "digital_0.bin", "Input filename: SPI SYNC/CS data.")
	clk := flag.String("f-clk", "digital_2.bin", "Input filename: SPI SCLK data.")
	output := flag.String("o-cmd", "words.txt", "Output filename of decoded DAC word history.")

	flag.StringVar(&timingsOutput, "o-time", "", "Output timing data to a file corresponding to output word history line-by-line.")
	flagTrimForce := flag.Uint("trim-force", 0, "Trims n bytes off the end of every transaction. Use for captures with trailing garbage per frame.")
	omitNop := flag.Bool("omit-nop", false, "Omit NOP frames in output.")
	omitSpecial := flag.Bool("omit-special", false, "Omit special function frames in output.")
	omitData := flag.Bool("omit-data", false, "Omit channel data frames in output.")
	flag.Parse()
	WORDS := WordCtl{
		TrimForce:   *flagTrimForce,
		OmitNop:     *omitNop,
		OmitSpecial: *omitSpecial,
		OmitData:    *omitData,
	}
	if WORDS.OmitSpecial && WORDS.OmitData {
		log.Fatal("cannot omit both special function and data frames")
	}
	start := time.Now()
	if err := WORDS.run(*sd, *enable, *clk, *output); err != nil {
		log.Fatal(err.Error())
	}
	log.Println("finished in", time.Since(start))
}

func (wc *WordCtl) run(sd, enable, clk, output string) error {
	const fmtMsg = "word×%2d %s raw=%#06x"
	words, err := wc.processSpiFiles(sd, clk, enable)
	if err != nil {
		return err
	}
	fp, err := os.Create(output)
	if err != nil {
		return err
	}
	defer fp.Close()

	var timings *os.File
	if timingsOutput != "" {
		log.Println("creating timings file", timingsOutput)
		timings, err = os.Create(timingsOutput)
		if err != nil {
			return err
		}
		defer timings.Close()
	}

	for _, action := range words {
		w := action.Word
		switch {
		case wc.OmitNop && w.Mode() == ad53xx.ModeSpecial && w.Addr() == ad53xx.SFNop:
			continue
		case wc.OmitSpecial && w.Mode() == ad53xx.ModeSpecial:
			continue
		case wc.OmitData && w.Mode() != ad53xx.ModeSpecial:
			continue
		}
		_, err = fmt.Fprintf(fp, fmtMsg, action.Num, w.String(), w.Uint32())
		if err != nil {
			return err
		}
		if action.Short {
			// Fewer than 3 bytes were captured between chip select edges.
			fmt.Fprint(fp, " (short frame)")
		}
		fmt.Fprintln(fp)
		if timings != nil {
			fmt.Fprintf(timings, "t=%f\tword=%#06x\n", action.Start, w.Uint32())
		}
	}
	return nil
}

func (wc *WordCtl) processSpiFiles(fsd, fclk, fenable string) ([]dactx, error) {
	sd, err := opendigital(fsd)
	if err != nil {
		return nil, err
	}
	clk, err := opendigital(fclk)
	if err != nil {
		return nil, err
	}
	enable, err := opendigital(fenable)
	if err != nil {
		return nil, err
	}
	spi := analyzers.SPI{}
	txs, _ := spi.Scan(clk, enable, sd, sd)
	return wc.process(txs), nil
}

func opendigital(filename string) (*saleae.DigitalFile, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	df, err := saleae.ReadDigitalFile(fp)
	if err != nil {
		return nil, err
	}
	return df, nil
}

// dactx is one decoded frame, with identical consecutive frames collapsed
// into a repeat count.
type dactx struct {
	Num   int
	Word  ad53xx.Word
	Short bool
	Start float64
}

func (wc *WordCtl) wordFromBytes(b []byte) (w ad53xx.Word, short bool) {
	b = b[:max(0, len(b)-int(wc.TrimForce))]
	if len(b) < 3 {
		var frame [3]byte
		copy(frame[3-len(b):], b)
		return ad53xx.FromBytes(frame), true
	}
	return ad53xx.FromBytes([3]byte{b[0], b[1], b[2]}), false
}

func (wc *WordCtl) process(txs []analyzers.TxSPI) (dactxs []dactx) {
	var repeats int = 1
	for i := 0; i < len(txs); i++ {
		tx := txs[i]
		w, short := wc.wordFromBytes(tx.SDO)
		for j := i + 1; j < len(txs); j++ {
			nextw, nextshort := wc.wordFromBytes(txs[j].SDO)
			if nextw != w || nextshort != short {
				break
			}
			repeats++
			i = j
		}
		dactxs = append(dactxs, dactx{
			Num:   repeats,
			Word:  w,
			Short: short,
			Start: tx.StartTime(),
		})
		repeats = 1
	}
	return dactxs
}

func max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}
