// package zotino drives a Zotino DAC board (AD5372) over an existing SPI
// peripheral. It produces the same 24-bit MSB-first frames with per-word
// chip select framing as the szservo output controller, for hosts that have
// a hardware SPI bus instead of the gateware serializer.
package zotino

import (
	"errors"

	"github.com/jmatyas/szservo/ad53xx"
	"tinygo.org/x/drivers"
)

// outputPin drives a board output line.
type outputPin func(bool)

var (
	errNoBus      = errors.New("zotino: nil SPI bus")
	errNoChipSel  = errors.New("zotino: nil chip select")
	errNoChannels = errors.New("zotino: no channel values")
)

// Driver writes AD5372 frames over an SPI bus. The bus must be configured
// for mode 1 style timing (data stable on the falling clock edge), which is
// what the DAC samples.
type Driver struct {
	Bus drivers.SPI
	// CS is the SYNC line, active low. Raised between words so the DAC
	// frames each 24-bit transfer separately.
	CS outputPin
	// LDAC is optional. When set it is held low so channel outputs update
	// as soon as input registers are written.
	LDAC outputPin
}

// Configure raises chip select and parks LDAC low.
func (d *Driver) Configure() error {
	if d.Bus == nil {
		return errNoBus
	}
	if d.CS == nil {
		return errNoChipSel
	}
	d.CS(true)
	if d.LDAC != nil {
		d.LDAC(false)
	}
	return nil
}

// WriteWord sends a single frame with its own chip select envelope.
func (d *Driver) WriteWord(w ad53xx.Word) error {
	buf := w.Bytes()
	var rx [3]byte
	d.CS(false)
	err := d.Bus.Tx(buf[:], rx[:])
	d.CS(true)
	return err
}

// WriteChannels writes vals to consecutive DAC input data registers
// starting at channel 0, one framed word per channel.
func (d *Driver) WriteChannels(vals []uint16) error {
	if len(vals) == 0 {
		return errNoChannels
	}
	for ch, v := range vals {
		err := d.WriteWord(ad53xx.New(ad53xx.ModeWriteX, ad53xx.ChannelAddr(ch), v))
		if err != nil {
			return err
		}
	}
	return nil
}

// Init writes the control register word the szservo initialization transfer
// sends.
func (d *Driver) Init() error {
	return d.WriteWord(ad53xx.CtrlInit)
}
