package vgm

import (
	"encoding/binary"
	"fmt"

	"github.com/arl/blip"
	"github.com/user-none/go-chip-sn76489"
	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/user-none/go-chip-opn"
)

const (
	// OutputRate is the playback rate. VGM timing is defined in
	// 1/44100 s units, so rendering at this rate keeps waits exact.
	OutputRate = 44100

	psgBufferSize = 4096

	// psgGain scales the SN76489 core's unit-range float samples into
	// the 16-bit PCM domain before the int16 conversion.
	psgGain = 1898.0

	// chunkFrames bounds how many output frames a single chip run may
	// produce, which in turn bounds the resampler buffers.
	chunkFrames = 1024
)

// fmDevice is the slice of the chip interface the player drives.
type fmDevice interface {
	Write(port, data uint8)
	Update(cycles int, sink opn.SampleSink)
	SampleRate() int
}

// Player renders a parsed VGM file to 16-bit stereo PCM at OutputRate.
// The FM chip runs at its native sample rate and is band-limited down
// through a blip buffer per channel; the PSG is synthesized at the
// output rate and mixed in directly.
type Player struct {
	file *File
	cmds []byte
	pos  int

	fm       fmDevice
	fmName   string
	fmClock  int
	fmStereo bool

	psg      *sn76489.SN76489
	psgClock int

	blipL, blipR *blip.Buffer
	prevL, prevR int32
	blipTime     int

	nativeBuf  []int16
	mixBufL    []int16
	mixBufR    []int16
	psgPending []int16

	// PCM bank for the YM2612 DAC stream commands.
	pcm    []byte
	pcmPos int

	// Fractional chip cycles carried between runs, in units of
	// 1/OutputRate of a clock.
	fmCycleRem  int
	psgCycleRem int

	loopsLeft int
	done      bool
}

// NewPlayer builds a player for f. loops is the number of times the
// looped section repeats after the first pass; it is ignored for files
// without a loop point.
func NewPlayer(f *File, loops int) (*Player, error) {
	p := &Player{
		file:      f,
		cmds:      f.Commands(),
		loopsLeft: loops,
	}
	if f.LoopOffset() < 0 {
		p.loopsLeft = 0
	}

	switch {
	case f.Clock2612 != 0:
		p.fm = opn.NewYM2612(int(f.Clock2612))
		p.fmName, p.fmClock, p.fmStereo = "YM2612", int(f.Clock2612), true
	case f.Clock2610 != 0:
		p.fm = opn.NewYM2610(int(f.Clock2610))
		p.fmName, p.fmClock, p.fmStereo = "YM2610", int(f.Clock2610), true
	case f.Clock2608 != 0:
		p.fm = opn.NewYM2608(int(f.Clock2608))
		p.fmName, p.fmClock, p.fmStereo = "YM2608", int(f.Clock2608), true
	case f.Clock2203 != 0:
		p.fm = opn.NewYM2203(int(f.Clock2203))
		p.fmName, p.fmClock, p.fmStereo = "YM2203", int(f.Clock2203), false
	}
	if p.fm == nil && f.ClockSN == 0 {
		return nil, fmt.Errorf("vgm: no playable chip in header")
	}

	if p.fm != nil {
		nativeRate := p.fm.SampleRate()
		p.blipL = blip.NewBuffer(chunkFrames * 2)
		p.blipL.SetRates(float64(nativeRate), OutputRate)
		if p.fmStereo {
			p.blipR = blip.NewBuffer(chunkFrames * 2)
			p.blipR.SetRates(float64(nativeRate), OutputRate)
		}
		logrus.WithFields(logrus.Fields{
			"chip":   p.fmName,
			"clock":  p.fmClock,
			"native": nativeRate,
		}).Debug("vgm: fm chip selected")
	}

	if f.ClockSN != 0 {
		p.psgClock = int(f.ClockSN)
		p.psg = sn76489.New(p.psgClock, OutputRate, psgBufferSize, sn76489.Sega)
		p.psg.SetGain(psgGain)
	}

	p.mixBufL = make([]int16, chunkFrames)
	p.mixBufR = make([]int16, chunkFrames)
	return p, nil
}

// Chip returns the name of the FM chip being played, or "" when the
// file is PSG-only.
func (p *Player) Chip() string {
	return p.fmName
}

// SampleRate returns the playback rate.
func (p *Player) SampleRate() int {
	return OutputRate
}

// TotalFrames returns the length of the rendered stream in output
// frames, including loop repeats.
func (p *Player) TotalFrames() int {
	n := int(p.file.TotalSamples)
	if p.file.LoopOffset() >= 0 {
		n += p.loopsLeft * int(p.file.LoopSamples)
	}
	return n
}

// WriteSampleS16 implements opn.SampleSink, collecting native-rate chip
// output.
func (p *Player) WriteSampleS16(s int16) {
	p.nativeBuf = append(p.nativeBuf, s)
}

// Render fills out with interleaved stereo frames and returns the
// number of frames written. It returns 0 once the stream, including
// loop repeats, is exhausted.
func (p *Player) Render(out []int16) int {
	frames := len(out) / 2
	written := 0
	for written < frames {
		n := p.drain(out[written*2:], frames-written)
		written += n
		if n > 0 {
			continue
		}
		waits := p.step()
		if waits == 0 {
			if p.done {
				break
			}
			continue
		}
		for waits > 0 {
			chunk := waits
			if chunk > chunkFrames {
				chunk = chunkFrames
			}
			p.runChips(chunk)
			waits -= chunk
			if n := p.drain(out[written*2:], frames-written); n > 0 {
				written += n
			}
			if written == frames {
				// Leftover chip time stays buffered for the next call.
				for waits > 0 {
					chunk = waits
					if chunk > chunkFrames {
						chunk = chunkFrames
					}
					p.runChips(chunk)
					waits -= chunk
				}
				break
			}
		}
	}
	return written
}

// step executes commands up to and including the next wait and returns
// the wait length in output frames. A return of 0 with done set means
// end of stream.
func (p *Player) step() int {
	for p.pos < len(p.cmds) {
		cmd := p.cmds[p.pos]
		switch {
		case cmd == 0x66:
			if p.loopsLeft > 0 && p.file.LoopOffset() >= 0 {
				p.loopsLeft--
				p.pos = p.file.LoopOffset()
				continue
			}
			p.done = true
			return 0

		case cmd == 0x61:
			if !p.need(3) {
				return 0
			}
			w := int(binary.LittleEndian.Uint16(p.cmds[p.pos+1:]))
			p.pos += 3
			return w
		case cmd == 0x62:
			p.pos++
			return 735
		case cmd == 0x63:
			p.pos++
			return 882
		case cmd >= 0x70 && cmd <= 0x7F:
			p.pos++
			return int(cmd&0x0F) + 1

		case cmd >= 0x80 && cmd <= 0x8F:
			// DAC sample from the PCM bank plus a short wait.
			p.pos++
			if p.pcmPos < len(p.pcm) {
				p.fmWrite(0, 0x2A, p.pcm[p.pcmPos])
				p.pcmPos++
			}
			if w := int(cmd & 0x0F); w > 0 {
				return w
			}

		case cmd == 0x50:
			if !p.need(2) {
				return 0
			}
			if p.psg != nil {
				p.psg.Write(p.cmds[p.pos+1])
			}
			p.pos += 2

		case cmd == 0x52, cmd == 0x56, cmd == 0x58:
			if !p.need(3) {
				return 0
			}
			p.fmWrite(0, p.cmds[p.pos+1], p.cmds[p.pos+2])
			p.pos += 3
		case cmd == 0x53, cmd == 0x57, cmd == 0x59:
			if !p.need(3) {
				return 0
			}
			p.fmWrite(1, p.cmds[p.pos+1], p.cmds[p.pos+2])
			p.pos += 3
		case cmd == 0x55:
			if !p.need(3) {
				return 0
			}
			p.fmWrite(0, p.cmds[p.pos+1], p.cmds[p.pos+2])
			p.pos += 3

		case cmd == 0x67:
			if !p.dataBlock() {
				return 0
			}
		case cmd == 0xE0:
			if !p.need(5) {
				return 0
			}
			p.pcmPos = int(binary.LittleEndian.Uint32(p.cmds[p.pos+1:]))
			p.pos += 5

		default:
			p.skip(cmd)
		}
	}
	p.done = true
	return 0
}

// fmWrite writes an address/data pair to the FM chip's given port bank.
func (p *Player) fmWrite(bank int, addr, val uint8) {
	if p.fm == nil {
		return
	}
	port := uint8(bank << 1)
	p.fm.Write(port, addr)
	p.fm.Write(port|1, val)
}

// dataBlock consumes a 0x67 block. Type 0 blocks append to the PCM
// bank; everything else is skipped.
func (p *Player) dataBlock() bool {
	if !p.need(7) {
		return false
	}
	typ := p.cmds[p.pos+2]
	size := int(binary.LittleEndian.Uint32(p.cmds[p.pos+3:]) & 0x7FFFFFFF)
	if p.pos+7+size > len(p.cmds) {
		p.done = true
		return false
	}
	if typ == 0x00 {
		p.pcm = append(p.pcm, p.cmds[p.pos+7:p.pos+7+size]...)
	} else {
		logrus.WithFields(logrus.Fields{
			"type": fmt.Sprintf("0x%02X", typ),
			"size": size,
		}).Debug("vgm: skipping data block")
	}
	p.pos += 7 + size
	return true
}

// skip advances past an unhandled command using the fixed operand
// widths of the command ranges.
func (p *Player) skip(cmd uint8) {
	n := 1
	switch {
	case cmd >= 0x30 && cmd <= 0x3F:
		n = 2
	case cmd == 0x4F:
		n = 2
	case cmd >= 0x40 && cmd <= 0x4E:
		n = 3
	case cmd >= 0x51 && cmd <= 0x5F:
		n = 3
	case cmd == 0x68:
		n = 12
	case cmd == 0x90 || cmd == 0x91 || cmd == 0x95:
		n = 5
	case cmd == 0x92:
		n = 6
	case cmd == 0x93:
		n = 11
	case cmd == 0x94:
		n = 2
	case cmd >= 0xA0 && cmd <= 0xBF:
		n = 3
	case cmd >= 0xC0 && cmd <= 0xDF:
		n = 4
	case cmd >= 0xE1:
		n = 5
	default:
		logrus.WithFields(logrus.Fields{
			"cmd": fmt.Sprintf("0x%02X", cmd),
		}).Debug("vgm: unknown command")
	}
	if p.pos+n > len(p.cmds) {
		p.done = true
		p.pos = len(p.cmds)
		return
	}
	p.pos += n
}

// need reports whether n command bytes remain at the cursor, marking
// the stream done when they do not.
func (p *Player) need(n int) bool {
	if p.pos+n > len(p.cmds) {
		p.done = true
		p.pos = len(p.cmds)
		return false
	}
	return true
}

// runChips advances both chips by frames output periods and pushes the
// FM output through the resampler.
func (p *Player) runChips(frames int) {
	if p.fm != nil {
		total := frames*p.fmClock + p.fmCycleRem
		p.fmCycleRem = total % OutputRate
		p.nativeBuf = p.nativeBuf[:0]
		p.fm.Update(total/OutputRate, p)

		step := 1
		if p.fmStereo {
			step = 2
		}
		for i := 0; i+step <= len(p.nativeBuf); i += step {
			l := int32(p.nativeBuf[i])
			p.blipL.AddDelta(uint64(p.blipTime), l-p.prevL)
			p.prevL = l
			if p.fmStereo {
				r := int32(p.nativeBuf[i+1])
				p.blipR.AddDelta(uint64(p.blipTime), r-p.prevR)
				p.prevR = r
			}
			p.blipTime++
		}
		// Close the frame at the clock position matching frames output
		// periods so the resampler stays locked to the wait stream.
		clocks := p.blipL.ClocksNeeded(frames)
		if clocks < p.blipTime {
			clocks = p.blipTime
		}
		p.blipL.EndFrame(clocks)
		if p.fmStereo {
			p.blipR.EndFrame(clocks)
		}
		p.blipTime = 0
	}

	if p.psg != nil {
		total := frames*p.psgClock + p.psgCycleRem
		p.psgCycleRem = total % OutputRate
		p.psg.Run(total / OutputRate)
	}
}

// drain mixes up to max frames of resampled FM and PSG output into out,
// returning the frame count written.
func (p *Player) drain(out []int16, max int) int {
	if max > chunkFrames {
		max = chunkFrames
	}

	if p.psg != nil {
		raw, n := p.psg.GetBuffer()
		for i := 0; i < n; i++ {
			p.psgPending = append(p.psgPending, int16(raw[i]))
		}
		p.psg.ResetBuffer()
	}

	// When both chips run, the blip read is capped by the PSG samples
	// on hand so neither stream slips against the other.
	var count int
	switch {
	case p.fm == nil:
		count = len(p.psgPending)
		if count > max {
			count = max
		}
	case p.psg == nil:
		count = p.blipL.ReadSamples(p.mixBufL, max, blip.Mono)
	default:
		want := max
		if len(p.psgPending) < want {
			want = len(p.psgPending)
		}
		count = p.blipL.ReadSamples(p.mixBufL, want, blip.Mono)
	}
	if p.fm != nil && count > 0 {
		if p.fmStereo {
			p.blipR.ReadSamples(p.mixBufR, count, blip.Mono)
		} else {
			copy(p.mixBufR[:count], p.mixBufL[:count])
		}
	}

	for i := 0; i < count; i++ {
		var l, r int32
		if p.fm != nil {
			l = int32(p.mixBufL[i])
			r = int32(p.mixBufR[i])
		}
		if p.psg != nil {
			l += int32(p.psgPending[i])
			r += int32(p.psgPending[i])
		}
		out[i*2] = clampMix(l)
		out[i*2+1] = clampMix(r)
	}
	if p.psg != nil && count > 0 {
		p.psgPending = p.psgPending[:copy(p.psgPending, p.psgPending[count:])]
	}
	return count
}

func clampMix(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
