package opn

// Register write decoding. Writes are total: reserved addresses, the
// four invalid slot nibbles and out-of-range channel selects are
// silently ignored. Nothing here crosses into the pipeline directly;
// the sample loop re-reads the decoded state once per sample.

// slotNibble maps the low nibble of a slot-register address ($30-$9F)
// to a channel offset within the bank and an operator position. The
// hardware register order within a bank is slot 1, slot 3, slot 2,
// slot 4; the four entries with ch -1 are gaps.
var slotNibble = [16]struct{ ch, op int8 }{
	{0, 0}, {1, 0}, {2, 0}, {-1, 0},
	{0, 2}, {1, 2}, {2, 2}, {-1, 0},
	{0, 1}, {1, 1}, {2, 1}, {-1, 0},
	{0, 3}, {1, 3}, {2, 3}, {-1, 0},
}

// Write performs a byte write to one of the device ports. Even ports
// latch a register address for their bank; odd ports write the latched
// register. Devices with three channels expose only ports 0 and 1.
func (o *OPN) Write(port, data uint8) {
	port &= 3
	bank := int(port >> 1)
	if bank == 1 && o.numCh <= 3 {
		return
	}
	if port&1 == 0 {
		o.addrLatch[bank] = data
		return
	}
	o.writeRegister(bank, o.addrLatch[bank], data)
}

// Read returns the status register: bit 0 Timer A overflow, bit 1
// Timer B overflow. The busy bit is not modeled and reads as 0.
func (o *OPN) Read(port uint8) uint8 {
	_ = port
	var status uint8
	if o.timerA.over {
		status |= 0x01
	}
	if o.timerB.over {
		status |= 0x02
	}
	return status
}

func (o *OPN) writeRegister(bank int, addr, val uint8) {
	switch {
	case addr < 0x20:
		// SSG register range; the PSG section is a separate device.
	case addr < 0x30:
		if bank == 0 {
			o.writeModeRegister(addr, val)
		}
	case addr < 0xA0:
		o.writeSlotRegister(bank, addr, val)
	case addr <= 0xB6:
		o.writeChannelRegister(bank, addr, val)
	}
}

// writeModeRegister handles $20-$2F: LFO, timers, channel 3 mode and
// the key on/off port.
func (o *OPN) writeModeRegister(addr, val uint8) {
	switch addr {
	case 0x22:
		o.lfoEnable = val&0x08 != 0
		o.lfoFreq = val & 0x07
		if !o.lfoEnable {
			o.lfoStep = 0
			o.lfoCnt = 0
		}
	case 0x24:
		o.timerA.period = (o.timerA.period & 0x003) | uint16(val)<<2
	case 0x25:
		o.timerA.period = (o.timerA.period & 0x3FC) | uint16(val&0x03)
	case 0x26:
		o.timerB.period = uint16(val)
	case 0x27:
		o.ch3Mode = (val >> 6) & 0x03
		loadA := val&0x01 != 0
		loadB := val&0x02 != 0
		if loadA && !o.timerA.load {
			o.timerA.counter = 0
		}
		if loadB && !o.timerB.load {
			o.timerB.counter = 0
			o.timerBSub = 0
		}
		o.timerA.load = loadA
		o.timerB.load = loadB
		o.timerA.enable = val&0x04 != 0
		o.timerB.enable = val&0x08 != 0
		if val&0x10 != 0 {
			o.timerA.over = false
		}
		if val&0x20 != 0 {
			o.timerB.over = false
		}
	case 0x28:
		o.writeKeys(val)
	}
}

// writeKeys latches the per-slot key bits of register $28. The latched
// transition is consumed by the envelope stage, but it is also applied
// here so that an on/off pair arriving between two samples is not lost
// (register logs do this).
func (o *OPN) writeKeys(val uint8) {
	chSel := int(val & 0x07)
	chIdx := chSel & 0x03
	if chIdx == 3 {
		return
	}
	if chSel&0x04 != 0 {
		chIdx += 3
	}
	if chIdx >= o.numCh {
		return
	}

	base := chIdx << 2
	for i := 0; i < slotsPerChannel; i++ {
		s := &o.sl[base+i]
		s.keyLatch = val&(0x10<<uint(i)) != 0
		next := s.keyLatch || s.csmKeyLatch
		if next != s.keyOn {
			o.applyKey(s, next)
		}
	}
}

// writeSlotRegister handles the $30-$9F operator register file.
func (o *OPN) writeSlotRegister(bank int, addr, val uint8) {
	sel := slotNibble[addr&0x0F]
	if sel.ch < 0 {
		return
	}
	chIdx := int(sel.ch) + bank*3
	if chIdx >= o.numCh {
		return
	}
	s := &o.sl[chIdx<<2|int(sel.op)]

	switch addr & 0xF0 {
	case 0x30:
		s.dt = (val >> 4) & 0x07
		// Multiplier 0 means x0.5; stored doubled so it never reaches
		// the phase arithmetic as zero.
		s.mul2 = (val & 0x0F) * 2
		if s.mul2 == 0 {
			s.mul2 = 1
		}
	case 0x40:
		s.tl = uint16(val&0x7F) << 3
	case 0x50:
		s.ks = (val >> 6) & 0x03
		s.rates[egAttack] = val & 0x1F
	case 0x60:
		s.am = val&0x80 != 0
		s.rates[egDecay] = val & 0x1F
	case 0x70:
		s.rates[egSustain] = val & 0x1F
	case 0x80:
		s.sl = sustainLevel(val >> 4)
		s.rates[egRelease] = (val&0x0F)*2 + 1
	case 0x90:
		s.ssgEnable = val&0x08 != 0
		s.ssgInv = val&0x04 != 0
		s.ssgAlt = val&0x02 != 0
		s.ssgHold = val&0x01 != 0
	}
}

// writeChannelRegister handles $A0-$B6. F-number high/block writes only
// latch; the matching low write commits both halves and re-derives the
// key code.
func (o *OPN) writeChannelRegister(bank int, addr, val uint8) {
	chSub := int(addr & 0x03)
	if chSub == 3 {
		return
	}
	chIdx := chSub + bank*3
	if chIdx >= o.numCh {
		return
	}
	c := &o.ch[chIdx]

	switch {
	case addr >= 0xA0 && addr <= 0xA2:
		latch := o.fnumLatch[bank]
		c.fnum = uint16(latch&0x07)<<8 | uint16(val)
		c.block = (latch >> 3) & 0x07
		c.keyCode = keyCodeOf(c.fnum, c.block)
	case addr >= 0xA4 && addr <= 0xA6:
		o.fnumLatch[bank] = val
	case addr >= 0xA8 && addr <= 0xAA:
		if bank == 0 {
			reg := int(addr - 0xA8)
			latch := o.fnumLatch[0]
			o.ch3Fnum[reg] = uint16(latch&0x07)<<8 | uint16(val)
			o.ch3Block[reg] = (latch >> 3) & 0x07
			o.ch3KeyCode[reg] = keyCodeOf(o.ch3Fnum[reg], o.ch3Block[reg])
		}
	case addr >= 0xAC && addr <= 0xAE:
		if bank == 0 {
			o.fnumLatch[0] = val
		}
	case addr >= 0xB0 && addr <= 0xB2:
		c.algorithm = val & 0x07
		c.feedback = (val >> 3) & 0x07
	case addr >= 0xB4 && addr <= 0xB6:
		if o.stereo {
			c.panL = val&0x80 != 0
			c.panR = val&0x40 != 0
		}
		c.ams = (val >> 4) & 0x03
		c.pms = val & 0x07
	}
}

// sustainLevel converts the 4-bit D1L field to the 10-bit attenuation
// domain. The all-ones value jumps to 0x3E0 (93 dB), not 15<<5.
func sustainLevel(d1l uint8) uint16 {
	d1l &= 0x0F
	if d1l == 15 {
		return 0x3E0
	}
	return uint16(d1l) << 5
}
