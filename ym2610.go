package opn

// YM2610 (OPNB): six FM channels, stereo, four ports. ADPCM-A/B live
// on external decoders.
type YM2610 struct {
	*OPN
}

// NewYM2610 creates a YM2610 running from the given master clock.
func NewYM2610(clockHz int) *YM2610 {
	return &YM2610{OPN: newOPN(clockHz, 6, true, false, "YM2610")}
}
