package opn

// YM2612 (OPN2): six FM channels, stereo, and two quirks of its own.
// The EG counter wrap bug is flagged into the core; the 8-bit DAC that
// can replace channel 6 is layered here through the channel override
// hook so the shared pipeline stays family-agnostic.
type YM2612 struct {
	*OPN

	dacEnable bool
	dacSample uint8
}

// NewYM2612 creates a YM2612 running from the given master clock.
func NewYM2612(clockHz int) *YM2612 {
	y := &YM2612{OPN: newOPN(clockHz, 6, true, true, "YM2612")}
	y.dacSample = 0x80 // center, no DC offset
	y.chanOverride = y.dacOverride
	return y
}

// Write snoops the Part I data port for the DAC registers, then
// forwards to the core decoder.
func (y *YM2612) Write(port, data uint8) {
	if port&3 == 1 {
		switch y.addrLatch[0] {
		case 0x2A:
			y.dacSample = data
		case 0x2B:
			y.dacEnable = data&0x80 != 0
		}
	}
	y.OPN.Write(port, data)
}

// dacOverride substitutes the DAC sample for channel 6 while enabled.
// The unsigned 8-bit sample maps onto the 14-bit channel range.
func (y *YM2612) dacOverride(ch int) (int32, bool) {
	if ch != 5 || !y.dacEnable {
		return 0, false
	}
	return (int32(y.dacSample) - 128) << 6, true
}

// Reset clears the DAC state along with the core.
func (y *YM2612) Reset(mode ResetMode) {
	y.OPN.Reset(mode)
	if mode != ResetSoft {
		y.dacEnable = false
		y.dacSample = 0x80
	}
}
