package szservo

// shiftReg is a fixed-width bit vector drained MSB first. Widths above 64
// bits are common (channels × data width), so it is backed by uint64 limbs
// in little endian limb order: bit 0 lives in limbs[0] bit 0 and the MSB in
// the top limb.
type shiftReg struct {
	limbs []uint64
	width int
}

func makeShiftReg(width int) shiftReg {
	return shiftReg{
		limbs: make([]uint64, (width+63)/64),
		width: width,
	}
}

func (s *shiftReg) clear() {
	for i := range s.limbs {
		s.limbs[i] = 0
	}
}

// msb returns the current most significant bit, which is the next bit on
// the serial data line.
func (s *shiftReg) msb() bool {
	top := s.width - 1
	return s.limbs[top/64]&(1<<(top%64)) != 0
}

// shiftLeft shifts the whole register left by one bit, injecting a zero at
// the LSB. The vacated MSB is discarded, never wrapped.
func (s *shiftReg) shiftLeft() {
	var carry uint64
	for i := range s.limbs {
		next := s.limbs[i] >> 63
		s.limbs[i] = s.limbs[i]<<1 | carry
		carry = next
	}
	// Mask off any spill above the register width in the top limb.
	if rem := s.width % 64; rem != 0 {
		s.limbs[len(s.limbs)-1] &= 1<<rem - 1
	}
}

// setBits writes the low width bits of v at the given bit offset.
func (s *shiftReg) setBits(offset, width int, v uint64) {
	v &= segMask(width)
	i, sh := offset/64, offset%64
	s.limbs[i] |= v << sh
	if sh+width > 64 {
		s.limbs[i+1] |= v >> (64 - sh)
	}
}

// bit returns the bit at position n counted from the LSB.
func (s *shiftReg) bit(n int) bool {
	return s.limbs[n/64]&(1<<(n%64)) != 0
}
