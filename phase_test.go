package opn

import "testing"

// --- Phase increment arithmetic ---

func TestPhase_BasicIncrement(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0x400
	s.block = 4
	s.mul2 = 2 // MUL=1

	// ((0x400<<1) << 4) >> 2, detune 0, x1.
	if inc := y.phaseIncrement(s, c); inc != 8192 {
		t.Errorf("increment = %d, want 8192", inc)
	}
}

func TestPhase_BlockShift(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0x269
	s.mul2 = 2

	for b := uint8(0); b < 8; b++ {
		s.block = b
		inc := y.phaseIncrement(s, c)
		want := (uint32(0x269) << 1 << b) >> 2
		if inc != want {
			t.Errorf("block %d: increment = %d, want %d", b, inc, want)
		}
	}
}

func TestPhase_MultiplierHalfAndWhole(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0x400
	s.block = 4

	s.mul2 = 1 // MUL=0: half
	half := y.phaseIncrement(s, c)
	s.mul2 = 2 // MUL=1
	whole := y.phaseIncrement(s, c)
	s.mul2 = 30 // MUL=15
	x15 := y.phaseIncrement(s, c)

	if whole != half*2 {
		t.Errorf("MUL=0 should halve: %d vs %d", half, whole)
	}
	if x15 != whole*15 {
		t.Errorf("MUL=15: got %d, want %d", x15, whole*15)
	}
}

func TestPhase_DetuneShiftsIncrement(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0x269
	s.block = 4
	s.mul2 = 2
	s.keyCode = 0x14

	s.dt = 0
	base := y.phaseIncrement(s, c)
	s.dt = 3
	up := y.phaseIncrement(s, c)
	s.dt = 7
	down := y.phaseIncrement(s, c)

	d := uint32(detuneTable[0x14][3])
	if up != base+d {
		t.Errorf("dt=3: got %d, want %d", up, base+d)
	}
	if down != base-d {
		t.Errorf("dt=7: got %d, want %d", down, base-d)
	}
}

func TestPhase_DetuneUnderflowWraps17Bits(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0
	s.block = 0
	s.mul2 = 2
	s.keyCode = 0x1F
	s.dt = 7 // negative detune from a zero base

	inc := y.phaseIncrement(s, c)
	want := uint32(int32(0)-detuneTable[0x1F][3]) & 0x1FFFF
	if inc != want {
		t.Errorf("underflow increment = 0x%X, want 0x%X", inc, want)
	}
}

func TestPhase_AccumulatorWraps20Bits(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0x7FF
	s.block = 7
	s.mul2 = 30
	s.pgPhase = 0xFFFFF

	y.stepSlotPhase(s, c)
	if s.pgPhase > 0xFFFFF {
		t.Errorf("accumulator overflowed 20 bits: 0x%X", s.pgPhase)
	}
}

func TestPhase_PMTakesEffect(t *testing.T) {
	y := NewYM2612(7670454)
	s := &y.sl[0]
	c := &y.ch[0]
	s.fnum = 0x400
	s.block = 4
	s.mul2 = 2
	c.pms = 7
	y.lfoStep = 16 // PM step 4, peak region of the quarter wave

	inc := y.phaseIncrement(s, c)
	delta := lfoPMTable[(0x400>>4)&0x7F][7][4]
	want := ((uint32(int32(0x400<<1)+delta) & 0xFFF) << 4) >> 2
	if inc != want {
		t.Errorf("PM increment = %d, want %d", inc, want)
	}
	if inc == 8192 {
		t.Error("PM had no effect on the increment")
	}
}

// --- Key code derivation ---

func TestPhase_KeyCode(t *testing.T) {
	tests := []struct {
		fnum  uint16
		block uint8
		want  uint8
	}{
		{0x000, 0, 0x00},
		{0x400, 4, 4<<2 | 2}, // F11 set
		{0x7FF, 7, 7<<2 | 3},
		{0x380, 2, 2<<2 | 1}, // F11 clear, F10..F8 all set
	}
	for _, tt := range tests {
		if got := keyCodeOf(tt.fnum, tt.block); got != tt.want {
			t.Errorf("keyCodeOf(0x%03X, %d) = 0x%02X, want 0x%02X",
				tt.fnum, tt.block, got, tt.want)
		}
	}
}
