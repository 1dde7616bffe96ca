package opn

// Phase generator. The increment is rebuilt from the live register
// state every sample, so frequency, detune and multiplier writes take
// effect on the next sample with no cached increment to invalidate.

// phaseIncrement computes a slot's 20-bit phase increment from its
// shadowed pitch and decoded fields, including the LFO PM contribution.
//
//	12-bit: (fnum << 1) + pmDelta
//	17-bit: (above << block) >> 2, plus detune
//	20-bit: (above * mul2) >> 1
func (o *OPN) phaseIncrement(s *slot, c *channel) uint32 {
	fnum12 := uint32(s.fnum) << 1
	if c.pms != 0 {
		delta := lfoPMTable[(s.fnum>>4)&0x7F][c.pms][o.lfoStep>>2]
		fnum12 = uint32(int32(fnum12)+delta) & 0xFFF
	}

	inc := (fnum12 << s.block) >> 2
	inc = uint32(int32(inc)+detuneTable[s.keyCode&0x1F][s.dt]) & 0x1FFFF

	return (inc * uint32(s.mul2) >> 1) & 0xFFFFF
}

// stepSlotPhase advances the 20-bit phase accumulator.
func (o *OPN) stepSlotPhase(s *slot, c *channel) {
	s.pgPhase = (s.pgPhase + o.phaseIncrement(s, c)) & 0xFFFFF
}
