package opn

// YM2608 (OPNA): six FM channels, stereo, four ports. The ADPCM and
// rhythm sections are external devices; their status bits read 0.
type YM2608 struct {
	*OPN
}

// NewYM2608 creates a YM2608 running from the given master clock.
func NewYM2608(clockHz int) *YM2608 {
	return &YM2608{OPN: newOPN(clockHz, 6, true, false, "YM2608")}
}
