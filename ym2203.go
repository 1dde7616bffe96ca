package opn

// YM2203 (OPN): three FM channels, mono output, single port pair. The
// on-die SSG is a separate device and its register range is ignored
// here.
type YM2203 struct {
	*OPN
}

// NewYM2203 creates a YM2203 running from the given master clock.
func NewYM2203(clockHz int) *YM2203 {
	return &YM2203{OPN: newOPN(clockHz, 3, false, false, "YM2203")}
}
