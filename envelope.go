package opn

// Envelope generator: ADSR with key-scaled rates, plus the SSG-EG
// hold/alternate/invert modes carried over from the SSG family.

const ssgCenter = 0x200 // SSG-EG boundary on the 10-bit scale

// effectiveRate computes the 6-bit scaled rate: 2*rate plus the
// key-scaling term. A zero rate field freezes the envelope.
func effectiveRate(rate, keyCode, ks uint8) uint8 {
	if rate == 0 {
		return 0
	}
	r := int(rate)*2 + int(keyCode>>(3-ks))
	if r > 63 {
		r = 63
	}
	return uint8(r)
}

// keyEvent resolves the latched key state against the current one. The
// CSM latch is one-shot: it is consumed here whether or not it causes
// an edge, so a Timer A key-on falls off on the next pass unless the
// user key is held.
func (o *OPN) keyEvent(s *slot) {
	next := s.keyLatch || s.csmKeyLatch
	s.csmKeyLatch = false
	if next != s.keyOn {
		o.applyKey(s, next)
	}
}

// applyKey performs a key edge. Rising: restart the phase accumulator
// and enter attack, jumping straight to full level when the scaled
// attack rate saturates. Falling: enter release, folding an inverted
// SSG-EG level back to the plain domain first.
func (o *OPN) applyKey(s *slot, on bool) {
	s.keyOn = on
	if on {
		s.egPhase = egAttack
		if effectiveRate(s.rates[egAttack], s.keyCode, s.ks) >= 62 {
			s.egLevel = 0
		}
		s.pgPhase = 0
		s.ssgInvOut = s.ssgEnable && s.ssgInv
		return
	}
	s.egPhase = egRelease
	if s.ssgInvOut {
		s.egLevel = (ssgCenter - s.egLevel) & 0x3FF
		s.ssgInvOut = false
	}
}

// ssgUpdate handles the SSG-EG boundary once the level crosses the
// half-scale point. Keyed on: hold modes freeze the output at the
// configured polarity; repeat modes restart the attack, alternating
// the inversion or resetting the phase. Keyed off: the level snaps to
// silence.
func (o *OPN) ssgUpdate(s *slot) {
	if !s.ssgEnable || s.egLevel < ssgCenter {
		return
	}
	if !s.keyOn {
		s.egLevel = 0x3FF
		return
	}
	if s.ssgHold {
		s.ssgInvOut = s.ssgInv != s.ssgAlt
		return
	}
	if s.egPhase == egDecay || s.egPhase == egSustain {
		s.egPhase = egAttack
	}
	if s.ssgAlt {
		s.ssgInvOut = !s.ssgInvOut
	} else {
		s.pgPhase = 0
	}
}

// stepEnvelope advances one slot's envelope by one EG step. Runs only
// on the third sample sub-clock.
func (o *OPN) stepEnvelope(s *slot) {
	// Phase transition checks come before the rate gate: a completed
	// attack must leave the attack phase even when the next rate would
	// freeze it, and a sustain level of 0 switches phases without
	// overshooting.
	if s.egPhase == egAttack && s.egLevel == 0 {
		s.egPhase = egDecay
	}
	if s.egPhase == egDecay && s.egLevel >= s.sl {
		s.egPhase = egSustain
	}

	rate := effectiveRate(s.rates[s.egPhase], s.keyCode, s.ks)
	if rate == 0 {
		return
	}

	shift := egShiftTable[rate]
	if o.egCounter&((1<<shift)-1) != 0 {
		return
	}
	inc := egIncTable[rate][(o.egCounter>>shift)&7]
	if inc == 0 {
		return
	}

	if s.egPhase == egAttack {
		if rate >= 62 {
			s.egLevel = 0
		} else {
			// Exponential attack: the complement term makes the step
			// negative, shrinking toward full level.
			lvl := int32(s.egLevel)
			lvl += (^lvl * int32(inc)) >> 4
			if lvl < 0 {
				lvl = 0
			}
			s.egLevel = uint16(lvl)
		}
		return
	}

	step := uint16(inc)
	if s.ssgEnable && s.egLevel < ssgCenter {
		// SSG-EG runs the lower half four times as fast, stopping at
		// the boundary (ssgUpdate handles what happens there).
		step <<= 2
	}
	lvl := s.egLevel + step
	if lvl > 0x3FF {
		lvl = 0x3FF
	}
	s.egLevel = lvl
}

// attenuation builds the slot's 4.8 fixed-point output attenuation:
// envelope level (inverted for SSG-EG), total level, LFO AM.
func (o *OPN) attenuation(s *slot, c *channel) uint32 {
	attn := s.egLevel
	if s.ssgInvOut {
		attn = (ssgCenter - attn) & 0x3FF
	}
	total := uint32(attn) + uint32(s.tl)
	if s.am {
		total += o.lfoAM(c.ams)
	}
	if total > 0x3FF {
		total = 0x3FF
	}
	return total << 2
}
