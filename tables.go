package opn

import "math"

// The OPN synthesis path works entirely in the log domain: the sine table
// stores quarter-wave attenuation in 4.8 fixed-point and the exp table
// converts the summed attenuation back to a linear 13-bit magnitude.
// All tables are built once at package init and never written afterwards;
// they are the only state shared between device instances.

// sinTable is the 512-entry log-sine table. Entries 0-255 hold
// -log2(sin((i+0.5)*pi/512)) in 4.8 fixed-point; entries 256-511 mirror
// the first half (index xor 0xFF). Bit 9 of the phase selects the sign
// and is handled by the operator, not the table.
var sinTable [512]uint16

// expTable is the 256-entry power-of-2 table, stored reversed with the
// implicit integer bit set and pre-shifted left 2, giving 13-bit linear
// values. Indexed by the fractional part of the attenuation; the integer
// part becomes a right shift of the result.
var expTable [256]uint32

// noteTable maps the top 4 bits of an 11-bit F-number to the 2-bit note
// code that forms the low bits of the key code.
var noteTable [16]uint8

// detuneTable holds signed phase-increment deltas indexed by 5-bit key
// code and 3-bit detune field. Detune values 0-3 add, 4-7 subtract the
// mirrored magnitude (4 behaves like 0).
var detuneTable [32][8]int32

// detuneBase is the magnitude half of the detune table, from the Yamaha
// OPN application manual / Nemesis hardware research.
var detuneBase = [32][4]int32{
	{0, 0, 1, 2}, {0, 0, 1, 2}, {0, 0, 1, 2}, {0, 0, 1, 2},
	{0, 1, 2, 2}, {0, 1, 2, 3}, {0, 1, 2, 3}, {0, 1, 2, 3},
	{0, 1, 2, 4}, {0, 1, 3, 4}, {0, 1, 3, 4}, {0, 1, 3, 5},
	{0, 2, 4, 5}, {0, 2, 4, 6}, {0, 2, 4, 6}, {0, 2, 5, 7},
	{0, 2, 5, 8}, {0, 3, 6, 8}, {0, 3, 6, 9}, {0, 3, 7, 10},
	{0, 4, 8, 11}, {0, 4, 8, 12}, {0, 4, 9, 13}, {0, 5, 10, 14},
	{0, 5, 11, 16}, {0, 6, 12, 17}, {0, 6, 13, 19}, {0, 7, 14, 20},
	{0, 8, 16, 22}, {0, 8, 16, 22}, {0, 8, 16, 22}, {0, 8, 16, 22},
}

// egShiftTable maps a 6-bit scaled envelope rate to the number of low
// counter bits that must be zero before an increment row is consulted.
var egShiftTable [64]uint8

// egIncTable gives the attenuation increment at each of the 8 sub-cycle
// positions, per scaled rate. Rates below 48 share four base patterns
// selected by rate&3; rates 48-63 run every tick with the base magnitude
// doubling every fourth rate, capped at 8.
var egIncTable [64][8]uint8

// egBasePattern is the sub-cycle selection for rates below 48 (a 1 marks
// a position that increments). The same rows mark the doubled positions
// for rates 48 and above.
var egBasePattern = [4][8]uint8{
	{0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 0, 1, 1, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 1},
}

// egHighDouble marks the sub-cycle positions whose increment is doubled
// for rates 48-63, per rate&3. Values from Nemesis hardware analysis
// (SpritesMind YM2612 research).
var egHighDouble = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 1, 0, 0, 0, 1},
	{0, 1, 0, 1, 0, 1, 0, 1},
	{0, 1, 1, 1, 0, 1, 1, 1},
}

// lfoPeriodTable maps the 3-bit LFO rate to the period in samples
// between LFO steps.
var lfoPeriodTable = [8]uint16{108, 77, 71, 67, 62, 44, 8, 5}

// lfoAMShift maps the 2-bit AMS field to a right shift applied to the
// 7-bit AM triangle. Shift 8 means the channel receives no AM at all.
var lfoAMShift = [4]uint8{8, 3, 1, 0}

// lfoPMBase is the base PM magnitude per (PMS, quarter-wave step),
// corresponding to F-number bit 10 being set. Lower F-number bits
// contribute the base right-shifted by their distance from bit 10.
var lfoPMBase = [8][8]int32{
	{0, 0, 0, 0, 0, 0, 0, 0},
	{0, 0, 0, 0, 4, 4, 4, 4},
	{0, 0, 0, 4, 4, 4, 8, 8},
	{0, 0, 4, 4, 8, 8, 12, 12},
	{0, 0, 4, 8, 8, 8, 12, 16},
	{0, 0, 8, 12, 16, 16, 20, 24},
	{0, 0, 16, 24, 32, 32, 40, 48},
	{0, 0, 32, 48, 64, 64, 80, 96},
}

// lfoPMTable is the fully expanded PM delta table: signed 12-bit
// F-number deltas indexed by the top 7 bits of the F-number, the 3-bit
// PMS field, and the 5-bit PM step (LFO step >> 2).
var lfoPMTable [128][8][32]int32

func init() {
	for i := 0; i < 256; i++ {
		s := math.Sin(float64(2*i+1) / 512.0 * math.Pi / 2.0)
		sinTable[i] = uint16(math.Round(-math.Log2(s) * 256.0))
	}
	for i := 256; i < 512; i++ {
		sinTable[i] = sinTable[(i-256)^0xFF]
	}

	for i := 0; i < 256; i++ {
		frac := math.Pow(2.0, float64(i^0xFF)/256.0) - 1.0
		expTable[i] = (uint32(math.Round(frac*1024.0)) + 1024) << 2
	}

	// noteTable bit 0 = F11&(F10|F9|F8) | !F11&F10&F9&F8, bit 1 = F11,
	// where the index holds F11..F8.
	for i := 0; i < 16; i++ {
		f11 := uint8(i>>3) & 1
		f10 := uint8(i>>2) & 1
		f9 := uint8(i>>1) & 1
		f8 := uint8(i) & 1
		bit0 := (f11 & (f10 | f9 | f8)) | ((1 ^ f11) & f10 & f9 & f8)
		noteTable[i] = f11<<1 | bit0
	}

	for kc := 0; kc < 32; kc++ {
		for dt := 0; dt < 8; dt++ {
			d := detuneBase[kc][dt&3]
			if dt&4 != 0 {
				d = -d
			}
			detuneTable[kc][dt] = d
		}
	}

	for r := 0; r < 64; r++ {
		if r < 48 {
			egShiftTable[r] = uint8(11 - r>>2)
			egIncTable[r] = egBasePattern[r&3]
			continue
		}
		egShiftTable[r] = 0
		mag := uint8(1) << ((r - 48) >> 2)
		for j := 0; j < 8; j++ {
			v := mag << egHighDouble[r&3][j]
			if v > 8 {
				v = 8
			}
			egIncTable[r][j] = v
		}
	}

	// PM deltas: quarter-wave mirrored, sign from PM step bit 4, each of
	// F-number bits 4-10 contributing the base shifted by (10 - bit).
	for fnumHi := 0; fnumHi < 128; fnumHi++ {
		for pms := 0; pms < 8; pms++ {
			for step := 0; step < 32; step++ {
				quarter := step & 0x07
				if step&0x08 != 0 {
					quarter = 7 - quarter
				}
				base := lfoPMBase[pms][quarter]
				var delta int32
				for bit := uint(4); bit <= 10; bit++ {
					if fnumHi&(1<<(bit-4)) != 0 {
						delta += base >> (10 - bit)
					}
				}
				if step&0x10 != 0 {
					delta = -delta
				}
				lfoPMTable[fnumHi][pms][step] = delta
			}
		}
	}
}
