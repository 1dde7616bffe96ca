package opn

// Operator output and algorithm routing. Each operator turns its phase
// plus a modulation input into a signed 14-bit sample through the
// log-sine / exp table pair; the per-algorithm tables below decide
// where modulation comes from and which slots reach the channel
// accumulator.

// modSourceMask gives, per algorithm and operator position, the set of
// sibling operators whose newest outputs are summed (then halved) into
// the phase modulation input. Position 0 is absent: slot 1 takes its
// self-feedback instead. Combined with the fixed visit order, a source
// visited earlier in the sample contributes its current output and a
// later one its previous output, reproducing the hardware delay lines.
var modSourceMask = [8][4]uint8{
	{0, 1 << 0, 1 << 1, 1 << 2}, // 1->2->3->4
	{0, 0, 1<<0 | 1<<1, 1 << 2}, // (1+2)->3->4
	{0, 0, 1 << 1, 1<<0 | 1<<2}, // 1+(2->3)->4
	{0, 1 << 0, 0, 1<<1 | 1<<2}, // (1->2)+3->4
	{0, 1 << 0, 0, 1 << 2},      // (1->2)+(3->4)
	{0, 1 << 0, 1 << 0, 1 << 0}, // 1->(2+3+4)
	{0, 1 << 0, 0, 0},           // (1->2)+3+4
	{0, 0, 0, 0},                // 1+2+3+4
}

// carrierMask gives the slots summed into the channel output.
var carrierMask = [8]uint8{
	1 << 3,
	1 << 3,
	1 << 3,
	1 << 3,
	1<<1 | 1<<3,
	1<<1 | 1<<2 | 1<<3,
	1<<1 | 1<<2 | 1<<3,
	1<<0 | 1<<1 | 1<<2 | 1<<3,
}

// modInput computes a slot's 10-bit-domain phase modulation input.
// Slot 1 feeds back its own last two outputs shifted by (10 - FB);
// other slots sum their algorithm sources shifted right once.
func (o *OPN) modInput(c *channel, base, opIdx int) int32 {
	if opIdx == 0 {
		if c.feedback == 0 {
			return 0
		}
		s := &o.sl[base]
		return (s.out[0] + s.out[1]) >> (10 - uint(c.feedback))
	}
	srcs := modSourceMask[c.algorithm][opIdx]
	var sum int32
	for j := 0; j < slotsPerChannel; j++ {
		if srcs&(1<<j) != 0 {
			sum += o.sl[base+j].out[0]
		}
	}
	return sum >> 1
}

// stepOperator produces the slot's 14-bit output for this sample and
// shifts the output history.
//
// The top 10 phase bits plus the modulation input index the half-wave
// sine table; the summed log attenuation converts back to linear
// through the exp table, with the integer part as a right shift and
// phase bit 9 as the sign.
func stepOperator(s *slot, mod int32, egOut uint32) {
	p := (int32(s.pgPhase>>10) + mod) & 0x3FF
	lvl := uint32(sinTable[p&0x1FF]) + egOut
	out := int32(expTable[lvl&0xFF] >> (lvl >> 8))
	if p&0x200 != 0 {
		out = -out
	}
	if out > 8191 {
		out = 8191
	} else if out < -8192 {
		out = -8192
	}
	s.out[1] = s.out[0]
	s.out[0] = out
}
