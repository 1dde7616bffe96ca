package opn

// Low-frequency oscillator: a 7-bit step counter shared by every
// channel, advanced once per sample when its period elapses. AM reads
// the full step as a triangle; PM reads step>>2 through the PM table.

// stepLFO advances the LFO. Disabling forces the step to zero and
// holds it there.
func (o *OPN) stepLFO() {
	if !o.lfoEnable {
		o.lfoStep = 0
		return
	}
	o.lfoCnt++
	if o.lfoCnt >= lfoPeriodTable[o.lfoFreq] {
		o.lfoCnt = 0
		o.lfoStep = (o.lfoStep + 1) & 0x7F
	}
}

// lfoAM returns the current AM attenuation for a channel's AMS
// setting, in the 10-bit envelope domain.
func (o *OPN) lfoAM(ams uint8) uint32 {
	if !o.lfoEnable {
		return 0
	}
	shift := lfoAMShift[ams&3]
	if shift >= 8 {
		return 0
	}
	// Triangle: 126 down to 0 over the first 64 steps, back up over
	// the rest.
	var tri uint8
	if o.lfoStep < 64 {
		tri = (63 - o.lfoStep) * 2
	} else {
		tri = (o.lfoStep - 64) * 2
	}
	return uint32(tri >> shift)
}
