package szservo

// DACModel is a behavioral model of the DAC sitting at the far end of the
// serial link. It samples the data line on falling serial clock edges while
// chip select is asserted, reassembles MSB-first words, and paces the
// controller through the busy handshake: after each word (chip select
// rising edge) it pulls the busy line low for BusyCycles system cycles and
// then raises it again, meaning the word was accepted.
//
// Drive it lockstep with the controller:
//
//	in := Pins{Busy: dac.Busy()}
//	pins := ctl.Step(in)
//	dac.Observe(pins)
type DACModel struct {
	// DataWidth is the word size in bits. Must match the controller.
	DataWidth int
	// BusyCycles is how many cycles the busy line stays low per word.
	// Zero behaves as one.
	BusyCycles int

	words    []uint64
	cur      uint64
	bitCount int
	busyLow  int
	prev     PinState
	havePrev bool
}

// Busy returns the level of the busy line for the current cycle. The line
// rests high.
func (m *DACModel) Busy() bool { return m.busyLow == 0 }

// Words returns the words received so far, in transmission order.
func (m *DACModel) Words() []uint64 { return m.words }

// BitCount returns the number of bits captured in the word in progress.
func (m *DACModel) BitCount() int { return m.bitCount }

func (m *DACModel) Reset() {
	m.words = nil
	m.cur = 0
	m.bitCount = 0
	m.busyLow = 0
	m.havePrev = false
}

// Observe consumes the controller output levels for one cycle.
func (m *DACModel) Observe(p PinState) {
	if m.busyLow > 0 {
		m.busyLow--
	}
	if !m.havePrev {
		m.prev, m.havePrev = p, true
		return
	}
	prev := m.prev
	m.prev = p

	// Sample on the falling clock edge with chip select asserted.
	if prev.Sclk && !p.Sclk && !p.Sync {
		m.cur = m.cur<<1 | b2u64(p.Sdi)
		m.bitCount++
		if m.bitCount == m.DataWidth {
			m.words = append(m.words, m.cur)
			m.cur = 0
			m.bitCount = 0
		}
	}
	// Chip select rising edge ends the word frame and triggers the busy
	// response.
	if !prev.Sync && p.Sync {
		n := m.BusyCycles
		if n < 1 {
			n = 1
		}
		m.busyLow = n
	}
}

func b2u64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
