package opn

// The two countdown timers share the sample clock. Timer A counts a
// 10-bit period once per sample; Timer B counts an 8-bit period every
// 16th sample, so both cover the same time span. A period of 0 runs
// the full count, the hardware wrap.

// stepTimers advances both timers by one sample tick.
func (o *OPN) stepTimers() {
	if o.timerA.load {
		o.timerA.counter++
		if o.timerA.counter >= 1024-o.timerA.period {
			o.timerA.counter = 0
			if o.timerA.enable {
				o.timerA.over = true
			}
			if o.ch3Mode == ch3ModeCSM {
				o.csmKeyOn()
			}
		}
	}

	o.timerBSub++
	if o.timerBSub >= 16 {
		o.timerBSub = 0
		if o.timerB.load {
			o.timerB.counter++
			if o.timerB.counter >= 256-o.timerB.period {
				o.timerB.counter = 0
				if o.timerB.enable {
					o.timerB.over = true
				}
			}
		}
	}
}

// csmKeyOn latches a Timer A key-on for all four channel 3 slots. The
// latches are consumed (and cleared) by the envelope stage, so the key
// falls off on the following pass unless register $28 holds it.
func (o *OPN) csmKeyOn() {
	base := 2 << 2
	for i := 0; i < slotsPerChannel; i++ {
		o.sl[base+i].csmKeyLatch = true
	}
}
