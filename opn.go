// Package opn implements the Yamaha OPN family of FM sound generators
// (YM2203, YM2608, YM2610, YM2612). A device is driven by externally
// counted master-clock cycles and produces one sample every
// prescaler*24 cycles through a caller-supplied sink.
//
// Only the FM synthesis unit is modeled. The SSG, ADPCM and rhythm
// sections of the larger family members live in separate chips/modules;
// writes to their register ranges are ignored.
package opn

// Envelope phases.
const (
	egAttack = iota
	egDecay
	egSustain
	egRelease
)

// Channel 3 mode values (register $27 bits 7-6).
const (
	ch3ModeNormal  = 0 // all operators share the channel frequency
	ch3ModeSpecial = 1 // per-operator frequencies
	ch3ModeCSM     = 2 // per-operator frequencies + Timer A key-on
)

// Slots per channel and the update-pipeline length.
const (
	slotsPerChannel = 4
	pipelineStages  = 24
	maxChannels     = 6
	maxSlots        = maxChannels * slotsPerChannel
)

// ResetMode selects how much state Reset clears.
type ResetMode int

const (
	// ResetPowerOn restores full power-on defaults, including register
	// latches and the leftover cycle accumulator.
	ResetPowerOn ResetMode = iota
	// ResetInitialClear clears synthesis and register state but keeps
	// the clock configuration and any carried cycle remainder.
	ResetInitialClear
	// ResetSoft releases all keys and silences envelopes, clears timers,
	// LFO and status, and preserves the register file.
	ResetSoft
)

// SampleSink receives the device's 16-bit signed PCM output. Stereo
// devices write left then right for each sample period.
type SampleSink interface {
	WriteSampleS16(s int16)
}

// AudioOutput describes one of a device's audio outputs.
type AudioOutput struct {
	SampleRate  int
	Channels    int
	ChannelMask uint32
	Label       string
}

// slot is one FM operator. Slots live in a fixed arena on the device;
// slot i belongs to channel i>>2.
type slot struct {
	// Decoded register fields.
	dt    uint8     // 3-bit detune (bit 2 = sign)
	mul2  uint8     // frequency multiplier in the x2 domain (register 0 stored as 1)
	tl    uint16    // total level pre-shifted to the 10-bit attenuation domain
	ks    uint8     // 2-bit key scale
	rates [4]uint8  // 5-bit rate per envelope phase; release stored as 2*RR+1
	sl    uint16    // sustain level in the 10-bit domain (register 15 stored as 0x3E0)
	am    bool      // AM enable

	// SSG-EG register bits plus the derived inversion state.
	ssgEnable bool
	ssgInv    bool
	ssgAlt    bool
	ssgHold   bool
	ssgInvOut bool

	// Key latches. keyOn itself changes only inside the envelope stage
	// (and through the synchronous $28 fast path).
	keyLatch    bool
	csmKeyLatch bool
	keyOn       bool

	// Per-sample shadow of the owning channel's pitch, swapped for the
	// channel 3 per-operator values when 3CH mode is active.
	fnum    uint16
	block   uint8
	keyCode uint8

	// Phase generator.
	pgPhase uint32 // 20-bit accumulator

	// Envelope generator.
	egPhase uint8
	egLevel uint16 // 10-bit attenuation, 0 = loudest

	// Last two operator outputs, newest first. Feeds self-feedback and
	// algorithm modulation taps.
	out [2]int32
}

// channel groups four slots and the registers shared between them.
type channel struct {
	fnum      uint16 // 11-bit F-number
	block     uint8  // 3-bit octave
	keyCode   uint8  // derived from block and the F-number top bits
	algorithm uint8
	feedback  uint8
	ams       uint8
	pms       uint8
	panL      bool
	panR      bool
}

// timer is one of the two countdown timers. Both tick once per sample;
// timer B advances its counter every 16th tick.
type timer struct {
	period  uint16
	counter uint16
	load    bool
	enable  bool
	over    bool
}

// OPN is a single FM device instance. It owns all of its mutable state;
// only the read-only table bank is shared between instances. An
// instance must not be entered reentrantly.
type OPN struct {
	clockHz   int
	prescaler int
	numCh     int
	stereo    bool
	egQuirk   bool // YM2612 EG counter wrap-to-1 bug
	label     string

	sl [maxSlots]slot
	ch [maxChannels]channel

	// Address latch per port bank, plus the shared F-number high latch
	// committed by the matching low-register write.
	addrLatch [2]uint8
	fnumLatch [2]uint8

	// Channel 3 per-operator pitch (3CH/CSM modes). Indexed by the
	// register slot ($A8+i), not by operator position.
	ch3Mode    uint8
	ch3Fnum    [3]uint16
	ch3Block   [3]uint8
	ch3KeyCode [3]uint8

	timerA    timer
	timerB    timer
	timerBSub uint8

	lfoEnable bool
	lfoFreq   uint8
	lfoCnt    uint16
	lfoStep   uint8

	// Global envelope clocking: egCounter advances once every third
	// sample, tracked by the mod-3 egClock.
	egCounter uint16
	egClock   uint8

	// Master-cycle remainder carried between Update calls.
	cycleAccum int

	// chanOverride, when set, replaces a channel's accumulated output
	// for this sample. Used by the YM2612 DAC layer; the core itself
	// never sets it.
	chanOverride func(ch int) (int32, bool)
}

// visitOrder is the fixed per-sample slot order: every slot 1 across
// channels, then every slot 3, slot 2, slot 4. Algorithms that tap a
// not-yet-visited slot see its previous sample, which is what makes the
// modulation delay lines self-consistent.
var visitOrder [maxSlots]uint8

func init() {
	i := 0
	for _, op := range [4]uint8{0, 2, 1, 3} {
		for c := uint8(0); c < maxChannels; c++ {
			visitOrder[i] = c<<2 | op
			i++
		}
	}
}

// newOPN builds a device core. The variant constructors wrap this.
func newOPN(clockHz, numCh int, stereo, egQuirk bool, label string) *OPN {
	o := &OPN{
		clockHz:   clockHz,
		prescaler: 6,
		numCh:     numCh,
		stereo:    stereo,
		egQuirk:   egQuirk,
		label:     label,
	}
	o.powerOnState()
	return o
}

// powerOnState puts every slot, channel, timer and counter at its
// power-on value.
func (o *OPN) powerOnState() {
	for i := range o.sl {
		o.sl[i] = slot{
			mul2:    1,
			egPhase: egRelease,
			egLevel: 0x3FF,
		}
	}
	for i := range o.ch {
		o.ch[i] = channel{panL: true, panR: true}
	}
	o.addrLatch = [2]uint8{}
	o.fnumLatch = [2]uint8{}
	o.ch3Mode = ch3ModeNormal
	o.ch3Fnum = [3]uint16{}
	o.ch3Block = [3]uint8{}
	o.ch3KeyCode = [3]uint8{}
	o.timerA = timer{}
	o.timerB = timer{}
	o.timerBSub = 0
	o.lfoEnable = false
	o.lfoFreq = 0
	o.lfoCnt = 0
	o.lfoStep = 0
	o.egCounter = 0
	o.egClock = 0
}

// Reset clears device state according to mode. The table bank is
// untouched in every mode.
func (o *OPN) Reset(mode ResetMode) {
	switch mode {
	case ResetPowerOn:
		o.powerOnState()
		o.cycleAccum = 0
	case ResetInitialClear:
		o.powerOnState()
	case ResetSoft:
		for i := range o.sl {
			s := &o.sl[i]
			s.keyLatch = false
			s.csmKeyLatch = false
			s.keyOn = false
			s.ssgInvOut = false
			s.egPhase = egRelease
			s.egLevel = 0x3FF
			s.pgPhase = 0
			s.out = [2]int32{}
		}
		o.timerA = timer{period: o.timerA.period}
		o.timerB = timer{period: o.timerB.period}
		o.timerBSub = 0
		o.lfoCnt = 0
		o.lfoStep = 0
		o.egCounter = 0
		o.egClock = 0
	}
}

// SetClock changes the master clock. Takes effect on the next sample;
// the carried cycle remainder is preserved.
func (o *OPN) SetClock(hz int) {
	o.clockHz = hz
}

// SampleRate returns the current output rate, clock / (prescaler * 24).
func (o *OPN) SampleRate() int {
	return o.clockHz / (o.prescaler * pipelineStages)
}

// EnumAudioOutputs describes output index (0-based). The second return
// is false past the last output.
func (o *OPN) EnumAudioOutputs(index int) (AudioOutput, bool) {
	if index != 0 {
		return AudioOutput{}, false
	}
	out := AudioOutput{
		SampleRate:  o.SampleRate(),
		Channels:    1,
		ChannelMask: 0x4, // front center
		Label:       o.label,
	}
	if o.stereo {
		out.Channels = 2
		out.ChannelMask = 0x3 // front left | front right
	}
	return out, true
}

// Update consumes master-clock cycles and emits one sample to sink for
// every prescaler*24 cycles, carrying any remainder to the next call.
// It runs to completion; register writes made between calls behave as
// writes at the sample boundary.
func (o *OPN) Update(cycles int, sink SampleSink) {
	o.cycleAccum += cycles
	div := o.prescaler * pipelineStages
	for o.cycleAccum >= div {
		o.cycleAccum -= div
		o.stepSample(sink)
	}
}

// stepSample produces one output sample: timers, LFO, envelope clock,
// then the full slot pipeline in visit order, then channel accumulation
// under the pan masks.
func (o *OPN) stepSample(sink SampleSink) {
	o.stepTimers()
	o.stepLFO()

	o.egClock++
	if o.egClock == 3 {
		o.egClock = 0
	}
	cnt := uint32(o.egCounter) + uint32(o.egClock>>1)
	if o.egQuirk {
		// YM2612: bit 12 of the pre-mask sum feeds back into bit 0, so
		// the counter wraps 4095 -> 1, never hitting 0 again.
		cnt += cnt >> 12
	}
	o.egCounter = uint16(cnt & 0xFFF)

	for _, id := range visitOrder {
		if int(id)>>2 >= o.numCh {
			continue
		}
		o.stepSlot(int(id))
	}

	var left, right int32
	for ci := 0; ci < o.numCh; ci++ {
		out := o.channelOutput(ci)
		if o.chanOverride != nil {
			if v, ok := o.chanOverride(ci); ok {
				out = v
			}
		}
		c := &o.ch[ci]
		if !o.stereo {
			left += out
			continue
		}
		if c.panL {
			left += out
		}
		if c.panR {
			right += out
		}
	}

	sink.WriteSampleS16(clampS16(left))
	if o.stereo {
		sink.WriteSampleS16(clampS16(right))
	}
}

// stepSlot runs the four pipeline stages for one slot: shadow refresh,
// phase, envelope, operator.
func (o *OPN) stepSlot(id int) {
	s := &o.sl[id]
	c := &o.ch[id>>2]
	opIdx := id & 3

	o.prepareSlot(s, c, id>>2, opIdx)
	o.stepSlotPhase(s, c)

	// Envelope stage. Key events and SSG-EG boundary handling run every
	// sample; the rate-driven step only on the third sub-clock.
	o.keyEvent(s)
	o.ssgUpdate(s)
	if o.egClock == 2 {
		o.stepEnvelope(s)
	}
	egOut := o.attenuation(s, c)

	mod := o.modInput(c, id&^3, opIdx)
	stepOperator(s, mod, egOut)
}

// prepareSlot copies the owning channel's pitch into the slot shadow.
// Channel 3 in 3CH/CSM mode substitutes the per-operator pitch for
// slots 1-3; slot 4 always keeps the channel's own values.
func (o *OPN) prepareSlot(s *slot, c *channel, chIdx, opIdx int) {
	s.fnum = c.fnum
	s.block = c.block
	s.keyCode = c.keyCode
	if chIdx == 2 && o.ch3Mode != ch3ModeNormal && opIdx != 3 {
		reg := ch3RegOfOp(opIdx)
		s.fnum = o.ch3Fnum[reg]
		s.block = o.ch3Block[reg]
		s.keyCode = o.ch3KeyCode[reg]
	}
}

// channelOutput sums the algorithm's carriers and clips to the 14-bit
// accumulator range.
func (o *OPN) channelOutput(ci int) int32 {
	c := &o.ch[ci]
	base := ci << 2
	mask := carrierMask[c.algorithm]
	var sum int32
	for j := 0; j < slotsPerChannel; j++ {
		if mask&(1<<j) != 0 {
			sum += o.sl[base+j].out[0]
		}
	}
	if sum > 8191 {
		sum = 8191
	} else if sum < -8192 {
		sum = -8192
	}
	return sum
}

func clampS16(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// keyCodeOf derives the 5-bit key code from block and F-number:
// block in the top 3 bits, the note code from the F-number top 4 bits
// below.
func keyCodeOf(fnum uint16, block uint8) uint8 {
	return block<<2 | noteTable[(fnum>>7)&0x0F]
}

// ch3RegOfOp maps an operator position to its $A8-$AA register slot.
// Slot 1 is controlled by $A9/$AD, slot 2 by $AA/$AE, slot 3 by $A8/$AC.
func ch3RegOfOp(opIdx int) int {
	switch opIdx {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 0
	}
}
