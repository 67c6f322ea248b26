// package szservo models the SPI output controller of the szservo DAC path:
// a cycle-accurate state machine that serializes a wide multi-channel data
// latch into framed, busy-paced 24-bit-style words for an AD537x class DAC.
package szservo

import (
	"errors"

	"log/slog"
)

// Controller FSM states. Transitions happen only on divider ticks.
type State uint8

const (
	StateIdle State = iota
	StateSetup
	StateHold
	StateDelay
	StateBusyLow
	StateBusyHigh
)

func (s State) String() (str string) {
	switch s {
	case StateIdle:
		str = "IDLE"
	case StateSetup:
		str = "SETUP"
	case StateHold:
		str = "HOLD"
	case StateDelay:
		str = "DELAY"
	case StateBusyLow:
		str = "BUSY_LOW"
	case StateBusyHigh:
		str = "BUSY_HIGH"
	default:
		str = "unknown"
	}
	return str
}

var (
	errNoChannels   = errors.New("szservo: channels must be at least 1")
	errNoDataWidth  = errors.New("szservo: data width must be at least 1")
	errBigDataWidth = errors.New("szservo: data width must not exceed 64")
	errBadClkDiv    = errors.New("szservo: clock divisor must be at least 1")
	errBadSegment   = errors.New("szservo: segment index out of range")
)

// Params configures a Controller. Immutable after New.
type Params struct {
	// Channels is the number of per-channel data segments in a full transfer.
	Channels int
	// DataWidth is the bit width of one channel segment (24 for AD537x).
	DataWidth int
	// ClkDiv is the number of system clock cycles per serial half period.
	ClkDiv int
}

func (p Params) Validate() error {
	switch {
	case p.Channels < 1:
		return errNoChannels
	case p.DataWidth < 1:
		return errNoDataWidth
	case p.DataWidth > 64:
		return errBigDataWidth
	case p.ClkDiv < 1:
		return errBadClkDiv
	}
	return nil
}

// Pins are the input signal levels sampled by the controller on each system
// clock cycle.
type Pins struct {
	// Start requests a normal transfer. Pulse while Ready is high.
	Start bool
	// Init requests the one-shot initialization transfer. Latched on any
	// cycle it is high, independently of the divider.
	Init bool
	// Busy is the DAC handshake line, active high. The device holds it high
	// at rest and pulses it low once a word has been accepted.
	Busy bool
}

// PinState are the output signal levels after a cycle.
type PinState struct {
	// Sclk is the serial clock line, high during SETUP.
	Sclk bool
	// Sync is the chip select line, active low during word transmission.
	Sync bool
	// Sdi is the serial data line: always the shift buffer MSB.
	Sdi bool
	// Ready is high only in IDLE with no request pending.
	Ready bool
	// Initialized is sticky, set once the init transfer completes.
	Initialized bool
}

// Controller is the SPI output state machine. It is advanced one system
// clock cycle at a time by Step; all state for a cycle is computed from the
// pre-cycle snapshot and applied atomically, so the model is deterministic
// and has no hidden intra-cycle ordering.
//
// The zero Controller is not usable, use New.
type Controller struct {
	params Params
	logger *slog.Logger

	state      State
	clkCounter uint32
	bits       uint16
	words      uint16

	// data is the wide input latch, one segment per channel. Read only on
	// the load pulse when a transfer starts; the caller must keep it stable
	// until Ready is observed again.
	data []uint64
	sr   shiftReg

	syncInit    bool
	initialized bool
	ticks       uint64
}

type Config struct {
	Params Params
	Logger *slog.Logger
}

func New(cfg Config) (*Controller, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		params: cfg.Params,
		logger: cfg.Logger,
		state:  StateIdle,
		data:   make([]uint64, cfg.Params.Channels),
		sr:     makeShiftReg(cfg.Params.Channels * cfg.Params.DataWidth),
	}
	return c, nil
}

// SetData writes the input latch. segments[i] holds channel i in its low
// DataWidth bits; the highest channel is transmitted first (it occupies the
// top of the shift buffer, which drains MSB first).
func (c *Controller) SetData(segments ...uint64) error {
	if len(segments) > c.params.Channels {
		return errBadSegment
	}
	mask := segMask(c.params.DataWidth)
	for i, s := range segments {
		c.data[i] = s & mask
	}
	return nil
}

// SetSegment writes a single channel segment of the input latch.
func (c *Controller) SetSegment(i int, v uint64) error {
	if i < 0 || i >= c.params.Channels {
		return errBadSegment
	}
	c.data[i] = v & segMask(c.params.DataWidth)
	return nil
}

func (c *Controller) Params() Params { return c.params }
func (c *Controller) State() State   { return c.state }

// Ticks returns the number of divider ticks observed since construction.
func (c *Controller) Ticks() uint64 { return c.ticks }

func (c *Controller) Initialized() bool { return c.initialized }

// Ready reports whether the controller accepts a Start or Init request on
// the next cycle.
func (c *Controller) Ready() bool {
	return c.state == StateIdle && !(c.syncInit && !c.initialized)
}

// Pins returns the output signal levels for the current cycle.
func (c *Controller) Pins() PinState {
	p := PinState{
		Sdi:         c.sr.msb(),
		Initialized: c.initialized,
	}
	switch c.state {
	case StateIdle:
		p.Sync = true
		p.Ready = c.Ready()
	case StateSetup:
		p.Sclk = true
	case StateHold, StateDelay:
		// chip select stays asserted one tick past the last bit.
	case StateBusyLow, StateBusyHigh:
		p.Sync = true
	}
	return p
}

// Step advances the controller by one system clock cycle and returns the
// resulting output levels. The divider gates all FSM and datapath updates:
// a tick fires on cycles where the down-counter is zero.
func (c *Controller) Step(in Pins) PinState {
	tick := c.clkCounter == 0
	initPending := in.Init || (c.syncInit && !c.initialized)
	cntLoad := false

	if tick {
		c.ticks++
		prev := c.state
		switch prev {
		case StateIdle:
			if initPending && !c.initialized {
				c.words = 1
			} else {
				c.words = uint16(c.params.Channels)
			}
			c.bits = uint16(c.params.DataWidth - 1)
			if in.Start || initPending {
				cntLoad = true
				c.load(initPending)
				c.state = StateSetup
				c.debug("transfer:start",
					slog.Uint64("words", uint64(c.words)),
					slog.Bool("init", initPending))
			}
		case StateSetup:
			cntLoad = true
			if c.bits == 0 {
				c.state = StateDelay
			} else {
				c.state = StateHold
			}
		case StateHold:
			cntLoad = true
			c.bits--
			c.sr.shiftLeft()
			c.state = StateSetup
		case StateDelay:
			// Extra shift keeps the buffer aligned for the next word: the
			// bit clocked out on the final falling edge is consumed here.
			c.words--
			c.sr.shiftLeft()
			c.state = StateBusyLow
		case StateBusyLow:
			if !in.Busy {
				c.state = StateBusyHigh
			}
		case StateBusyHigh:
			if in.Busy {
				c.bits = uint16(c.params.DataWidth - 1)
				if c.words == 0 {
					if initPending {
						c.initialized = true
						c.info("initialized")
					}
					c.state = StateIdle
					c.debug("transfer:done", slog.Uint64("ticks", c.ticks))
				} else {
					cntLoad = true
					c.state = StateSetup
				}
			}
		}
		if prev != c.state {
			c.trace("fsm", slog.String("from", prev.String()), slog.String("to", c.state.String()))
		}
	}

	// Divider. While a state holds the count-load line low the counter
	// freezes at zero and ticks fire every cycle; that is how the busy wait
	// samples the handshake at system clock rate without desynchronizing
	// the serial cadence.
	if tick {
		if cntLoad {
			c.clkCounter = uint32(c.params.ClkDiv - 1)
		}
	} else {
		c.clkCounter--
	}

	if in.Init {
		c.syncInit = true
	}
	return c.Pins()
}

// load latches the input data into the shift buffer. An init transfer loads
// only channel 0, pre-shifted into the topmost word slot.
func (c *Controller) load(initPending bool) {
	w := c.params.DataWidth
	c.sr.clear()
	if initPending {
		c.sr.setBits((c.params.Channels-1)*w, w, c.data[0])
		return
	}
	for i, s := range c.data {
		c.sr.setBits(i*w, w, s)
	}
}

func segMask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}
