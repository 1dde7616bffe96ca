package opn

import (
	"encoding/binary"
	"errors"
)

const (
	serializeVersion = 1
	// Per-slot size:
	// dt(1) + mul2(1) + tl(2) + ks(1) + rates(4) + sl(2) + am(1) +
	// ssgEnable/Inv/Alt/Hold/InvOut(5) + keyLatch/csmKeyLatch/keyOn(3) +
	// fnum(2) + block(1) + keyCode(1) + pgPhase(4) + egPhase(1) +
	// egLevel(2) + out(8) = 39
	slotSerializeSize = 39
	// Per-channel size:
	// fnum(2) + block(1) + keyCode(1) + algorithm(1) + feedback(1) +
	// ams(1) + pms(1) + panL(1) + panR(1) = 10
	channelSerializeSize = 10
	// Global state:
	// addrLatch(2) + fnumLatch(2) + ch3Mode(1) + ch3Fnum(6) +
	// ch3Block(3) + ch3KeyCode(3) + timerA(7) + timerB(7) +
	// timerBSub(1) + lfoEnable(1) + lfoFreq(1) + lfoCnt(2) +
	// lfoStep(1) + egCounter(2) + egClock(1) + cycleAccum(4) = 44
	globalSerializeSize = 44

	// SerializeSize is the byte count Serialize writes:
	// version(1) + 24 slots + 6 channels + global.
	SerializeSize = 1 + maxSlots*slotSerializeSize +
		maxChannels*channelSerializeSize + globalSerializeSize
)

// Serialize writes the full device state to buf, which must hold at
// least SerializeSize bytes. The table bank is not state and is not
// written.
func (o *OPN) Serialize(buf []byte) error {
	if len(buf) < SerializeSize {
		return errors.New("opn: serialize buffer too small")
	}

	off := 0
	buf[off] = serializeVersion
	off++

	for i := range o.sl {
		off = serializeSlot(&o.sl[i], buf, off)
	}
	for i := range o.ch {
		off = serializeChannel(&o.ch[i], buf, off)
	}

	buf[off] = o.addrLatch[0]
	buf[off+1] = o.addrLatch[1]
	buf[off+2] = o.fnumLatch[0]
	buf[off+3] = o.fnumLatch[1]
	buf[off+4] = o.ch3Mode
	off += 5
	for i := 0; i < 3; i++ {
		binary.LittleEndian.PutUint16(buf[off:], o.ch3Fnum[i])
		off += 2
	}
	for i := 0; i < 3; i++ {
		buf[off] = o.ch3Block[i]
		off++
	}
	for i := 0; i < 3; i++ {
		buf[off] = o.ch3KeyCode[i]
		off++
	}
	off = serializeTimer(&o.timerA, buf, off)
	off = serializeTimer(&o.timerB, buf, off)
	buf[off] = o.timerBSub
	buf[off+1] = boolByte(o.lfoEnable)
	buf[off+2] = o.lfoFreq
	off += 3
	binary.LittleEndian.PutUint16(buf[off:], o.lfoCnt)
	off += 2
	buf[off] = o.lfoStep
	off++
	binary.LittleEndian.PutUint16(buf[off:], o.egCounter)
	off += 2
	buf[off] = o.egClock
	off++
	binary.LittleEndian.PutUint32(buf[off:], uint32(o.cycleAccum))
	return nil
}

// Deserialize restores state previously written by Serialize.
func (o *OPN) Deserialize(buf []byte) error {
	if len(buf) < SerializeSize {
		return errors.New("opn: deserialize buffer too small")
	}
	if buf[0] != serializeVersion {
		return errors.New("opn: unsupported serialization version")
	}

	off := 1
	for i := range o.sl {
		off = deserializeSlot(&o.sl[i], buf, off)
	}
	for i := range o.ch {
		off = deserializeChannel(&o.ch[i], buf, off)
	}

	o.addrLatch[0] = buf[off]
	o.addrLatch[1] = buf[off+1]
	o.fnumLatch[0] = buf[off+2]
	o.fnumLatch[1] = buf[off+3]
	o.ch3Mode = buf[off+4]
	off += 5
	for i := 0; i < 3; i++ {
		o.ch3Fnum[i] = binary.LittleEndian.Uint16(buf[off:])
		off += 2
	}
	for i := 0; i < 3; i++ {
		o.ch3Block[i] = buf[off]
		off++
	}
	for i := 0; i < 3; i++ {
		o.ch3KeyCode[i] = buf[off]
		off++
	}
	off = deserializeTimer(&o.timerA, buf, off)
	off = deserializeTimer(&o.timerB, buf, off)
	o.timerBSub = buf[off]
	o.lfoEnable = buf[off+1] != 0
	o.lfoFreq = buf[off+2]
	off += 3
	o.lfoCnt = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	o.lfoStep = buf[off]
	off++
	o.egCounter = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	o.egClock = buf[off]
	off++
	o.cycleAccum = int(int32(binary.LittleEndian.Uint32(buf[off:])))
	return nil
}

func serializeSlot(s *slot, buf []byte, off int) int {
	buf[off] = s.dt
	buf[off+1] = s.mul2
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], s.tl)
	off += 2
	buf[off] = s.ks
	off++
	copy(buf[off:], s.rates[:])
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], s.sl)
	off += 2
	buf[off] = boolByte(s.am)
	buf[off+1] = boolByte(s.ssgEnable)
	buf[off+2] = boolByte(s.ssgInv)
	buf[off+3] = boolByte(s.ssgAlt)
	buf[off+4] = boolByte(s.ssgHold)
	buf[off+5] = boolByte(s.ssgInvOut)
	buf[off+6] = boolByte(s.keyLatch)
	buf[off+7] = boolByte(s.csmKeyLatch)
	buf[off+8] = boolByte(s.keyOn)
	off += 9
	binary.LittleEndian.PutUint16(buf[off:], s.fnum)
	off += 2
	buf[off] = s.block
	buf[off+1] = s.keyCode
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], s.pgPhase)
	off += 4
	buf[off] = s.egPhase
	off++
	binary.LittleEndian.PutUint16(buf[off:], s.egLevel)
	off += 2
	binary.LittleEndian.PutUint32(buf[off:], uint32(s.out[0]))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(s.out[1]))
	return off + 4
}

func deserializeSlot(s *slot, buf []byte, off int) int {
	s.dt = buf[off]
	s.mul2 = buf[off+1]
	off += 2
	s.tl = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	s.ks = buf[off]
	off++
	copy(s.rates[:], buf[off:off+4])
	off += 4
	s.sl = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	s.am = buf[off] != 0
	s.ssgEnable = buf[off+1] != 0
	s.ssgInv = buf[off+2] != 0
	s.ssgAlt = buf[off+3] != 0
	s.ssgHold = buf[off+4] != 0
	s.ssgInvOut = buf[off+5] != 0
	s.keyLatch = buf[off+6] != 0
	s.csmKeyLatch = buf[off+7] != 0
	s.keyOn = buf[off+8] != 0
	off += 9
	s.fnum = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	s.block = buf[off]
	s.keyCode = buf[off+1]
	off += 2
	s.pgPhase = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	s.egPhase = buf[off]
	off++
	s.egLevel = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	s.out[0] = int32(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	s.out[1] = int32(binary.LittleEndian.Uint32(buf[off:]))
	return off + 4
}

func serializeChannel(c *channel, buf []byte, off int) int {
	binary.LittleEndian.PutUint16(buf[off:], c.fnum)
	off += 2
	buf[off] = c.block
	buf[off+1] = c.keyCode
	buf[off+2] = c.algorithm
	buf[off+3] = c.feedback
	buf[off+4] = c.ams
	buf[off+5] = c.pms
	buf[off+6] = boolByte(c.panL)
	buf[off+7] = boolByte(c.panR)
	return off + 8
}

func deserializeChannel(c *channel, buf []byte, off int) int {
	c.fnum = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	c.block = buf[off]
	c.keyCode = buf[off+1]
	c.algorithm = buf[off+2]
	c.feedback = buf[off+3]
	c.ams = buf[off+4]
	c.pms = buf[off+5]
	c.panL = buf[off+6] != 0
	c.panR = buf[off+7] != 0
	return off + 8
}

func serializeTimer(t *timer, buf []byte, off int) int {
	binary.LittleEndian.PutUint16(buf[off:], t.period)
	off += 2
	binary.LittleEndian.PutUint16(buf[off:], t.counter)
	off += 2
	buf[off] = boolByte(t.load)
	buf[off+1] = boolByte(t.enable)
	buf[off+2] = boolByte(t.over)
	return off + 3
}

func deserializeTimer(t *timer, buf []byte, off int) int {
	t.period = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	t.counter = binary.LittleEndian.Uint16(buf[off:])
	off += 2
	t.load = buf[off] != 0
	t.enable = buf[off+1] != 0
	t.over = buf[off+2] != 0
	return off + 3
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// YM2612SerializeSize adds the DAC registers to the core state.
const YM2612SerializeSize = SerializeSize + 2

// Serialize writes the YM2612 state, core first, DAC after.
func (y *YM2612) Serialize(buf []byte) error {
	if len(buf) < YM2612SerializeSize {
		return errors.New("opn: serialize buffer too small")
	}
	if err := y.OPN.Serialize(buf); err != nil {
		return err
	}
	buf[SerializeSize] = boolByte(y.dacEnable)
	buf[SerializeSize+1] = y.dacSample
	return nil
}

// Deserialize restores YM2612 state written by Serialize.
func (y *YM2612) Deserialize(buf []byte) error {
	if len(buf) < YM2612SerializeSize {
		return errors.New("opn: deserialize buffer too small")
	}
	if err := y.OPN.Deserialize(buf); err != nil {
		return err
	}
	y.dacEnable = buf[SerializeSize] != 0
	y.dacSample = buf[SerializeSize+1]
	return nil
}
