// package ad53xx implements the serial word format of the AD537x family of
// multichannel DACs (AD5370/AD5371/AD5372), the devices driven by the
// szservo output controller. A frame is 24 bits, MSB first: a 2-bit mode,
// a 6-bit address and 16 bits of data.
package ad53xx

import "fmt"

// WordBits is the frame length on the wire.
const WordBits = 24

// Mode selects the register bank a frame writes to.
type Mode uint8

const (
	// ModeSpecial frames carry a special function code in the address field.
	ModeSpecial Mode = 0b00
	// ModeWriteM writes a DAC gain register.
	ModeWriteM Mode = 0b01
	// ModeWriteC writes a DAC offset register.
	ModeWriteC Mode = 0b10
	// ModeWriteX writes a DAC input data register.
	ModeWriteX Mode = 0b11
)

func (m Mode) String() (s string) {
	switch m {
	case ModeSpecial:
		s = "special"
	case ModeWriteM:
		s = "gain"
	case ModeWriteC:
		s = "offset"
	case ModeWriteX:
		s = "data"
	}
	return s
}

// Special function codes, valid in the address field of ModeSpecial frames.
const (
	SFNop          = 0x00
	SFWriteControl = 0x01
	SFWriteOFS0    = 0x02
	SFWriteOFS1    = 0x03
	SFReadback     = 0x05
)

// Control register bits.
const (
	CtrlSoftPowerDown = 1 << 0
	CtrlTSDEnable     = 1 << 1
	CtrlXSelectB      = 1 << 2
)

// AddrAllChannels addresses every channel of the device at once.
const AddrAllChannels = 0

// ChannelAddr returns the address of a single DAC channel. Channels are
// grouped eight to a group; group g is addressed at (g+1)<<3.
func ChannelAddr(ch int) uint8 {
	return uint8((ch/8+1)<<3 | ch%8)
}

// Word is one 24-bit frame in its low bits.
type Word uint32

func New(m Mode, addr uint8, data uint16) Word {
	return Word(m)<<22 | Word(addr&0x3f)<<16 | Word(data)
}

// Special returns a special function frame.
func Special(code uint8, data uint16) Word {
	return New(ModeSpecial, code, data)
}

// CtrlInit is the control register write the szservo initialization
// transfer sends: thermal shutdown enabled, outputs powered.
var CtrlInit = Special(SFWriteControl, CtrlTSDEnable)

func (w Word) Mode() Mode     { return Mode(w >> 22 & 0b11) }
func (w Word) Addr() uint8    { return uint8(w >> 16 & 0x3f) }
func (w Word) Data() uint16   { return uint16(w) }
func (w Word) Uint32() uint32 { return uint32(w) & 0xffffff }

// Bytes returns the frame in wire order, MSB first.
func (w Word) Bytes() [3]byte {
	return [3]byte{byte(w >> 16), byte(w >> 8), byte(w)}
}

// FromBytes assembles a frame from wire-order bytes.
func FromBytes(b [3]byte) Word {
	return Word(b[0])<<16 | Word(b[1])<<8 | Word(b[2])
}

func (w Word) String() string {
	if w.Mode() == ModeSpecial {
		return fmt.Sprintf("mode=%-7s  func=%#04x  data=%#06x", w.Mode().String(), w.Addr(), w.Data())
	}
	return fmt.Sprintf("mode=%-7s  addr=%#04x  data=%#06x", w.Mode().String(), w.Addr(), w.Data())
}
