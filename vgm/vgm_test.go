package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"
)

// buildImage assembles a minimal version-1.51 VGM image with the given
// chip clocks and command stream. The commands start at 0x40 via a
// relative data offset of 0x0C.
type imageHeader struct {
	snClock      uint32
	ym2203Clock  uint32
	ym2608Clock  uint32
	ym2610Clock  uint32
	ym2612Clock  uint32
	totalSamples uint32
	loopSamples  uint32
	loopCmdOff   int // offset within cmds, -1 for no loop
}

func buildImage(h imageHeader, cmds []byte) []byte {
	buf := make([]byte, 0x40, 0x40+len(cmds))
	copy(buf, "Vgm ")
	le := binary.LittleEndian
	le.PutUint32(buf[0x04:], uint32(0x40+len(cmds)-4)) // EOF offset
	le.PutUint32(buf[0x08:], 0x151)
	le.PutUint32(buf[0x0C:], h.snClock)
	le.PutUint32(buf[0x18:], h.totalSamples)
	if h.loopCmdOff >= 0 {
		le.PutUint32(buf[0x1C:], uint32(0x40+h.loopCmdOff-0x1C))
		le.PutUint32(buf[0x20:], h.loopSamples)
	}
	le.PutUint32(buf[0x2C:], h.ym2612Clock)
	le.PutUint32(buf[0x34:], 0x0C)

	// The 1.51 extended clocks live past 0x40; grow the header and
	// bump the data offset.
	if h.ym2203Clock != 0 || h.ym2608Clock != 0 || h.ym2610Clock != 0 {
		ext := make([]byte, 0x40)
		buf = append(buf, ext...)
		le.PutUint32(buf[0x34:], 0x4C)
		le.PutUint32(buf[0x44:], h.ym2203Clock)
		le.PutUint32(buf[0x48:], h.ym2608Clock)
		le.PutUint32(buf[0x4C:], h.ym2610Clock)
		if h.loopCmdOff >= 0 {
			le.PutUint32(buf[0x1C:], uint32(0x80+h.loopCmdOff-0x1C))
		}
	}
	return append(buf, cmds...)
}

// --- Header parsing ---

func TestParse_BasicHeader(t *testing.T) {
	img := buildImage(imageHeader{
		ym2612Clock:  7670454,
		totalSamples: 44100,
		loopCmdOff:   -1,
	}, []byte{0x62, 0x66})

	f, err := ParseData(img)
	if err != nil {
		t.Fatal(err)
	}
	if f.Version != 0x151 {
		t.Errorf("version = 0x%X, want 0x151", f.Version)
	}
	if f.Clock2612 != 7670454 {
		t.Errorf("YM2612 clock = %d, want 7670454", f.Clock2612)
	}
	if f.TotalSamples != 44100 {
		t.Errorf("total samples = %d, want 44100", f.TotalSamples)
	}
	if got := f.Commands(); len(got) != 2 || got[0] != 0x62 {
		t.Errorf("commands = % X, want 62 66", got)
	}
	if f.LoopOffset() != -1 {
		t.Errorf("loop offset = %d, want -1", f.LoopOffset())
	}
	if !f.HasOPN() {
		t.Error("HasOPN = false with a YM2612 clock present")
	}
}

func TestParse_ExtendedClocks(t *testing.T) {
	img := buildImage(imageHeader{
		ym2203Clock: 3993600,
		ym2608Clock: 8000000,
		ym2610Clock: 8000000,
		loopCmdOff:  -1,
	}, []byte{0x66})

	f, err := ParseData(img)
	if err != nil {
		t.Fatal(err)
	}
	if f.Clock2203 != 3993600 || f.Clock2608 != 8000000 || f.Clock2610 != 8000000 {
		t.Errorf("clocks = %d/%d/%d", f.Clock2203, f.Clock2608, f.Clock2610)
	}
}

func TestParse_DualChipBitMasked(t *testing.T) {
	img := buildImage(imageHeader{
		ym2612Clock: 7670454 | 0x40000000,
		loopCmdOff:  -1,
	}, []byte{0x66})

	f, err := ParseData(img)
	if err != nil {
		t.Fatal(err)
	}
	if f.Clock2612 != 7670454 {
		t.Errorf("clock = %d, dual-chip bit should be stripped", f.Clock2612)
	}
}

func TestParse_LoopOffset(t *testing.T) {
	cmds := []byte{0x52, 0x28, 0xF0, 0x62, 0x66}
	img := buildImage(imageHeader{
		ym2612Clock: 7670454,
		loopSamples: 735,
		loopCmdOff:  3, // loop back to the wait
	}, cmds)

	f, err := ParseData(img)
	if err != nil {
		t.Fatal(err)
	}
	if f.LoopOffset() != 3 {
		t.Errorf("loop offset = %d, want 3", f.LoopOffset())
	}
	if f.LoopSamples != 735 {
		t.Errorf("loop samples = %d, want 735", f.LoopSamples)
	}
}

func TestParse_VGZ(t *testing.T) {
	img := buildImage(imageHeader{
		ym2612Clock: 7670454,
		loopCmdOff:  -1,
	}, []byte{0x62, 0x66})

	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	if _, err := w.Write(img); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := ParseData(gz.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if f.Clock2612 != 7670454 {
		t.Errorf("clock through gzip = %d, want 7670454", f.Clock2612)
	}
	if len(f.Commands()) != 2 {
		t.Errorf("commands = % X", f.Commands())
	}
}

// --- Rejection ---

func TestParse_BadIdent(t *testing.T) {
	img := buildImage(imageHeader{loopCmdOff: -1}, []byte{0x66})
	copy(img, "Vgz!")
	if _, err := ParseData(img); err == nil {
		t.Error("bad ident accepted")
	}
}

func TestParse_TooShort(t *testing.T) {
	if _, err := ParseData([]byte("Vgm ")); err == nil {
		t.Error("truncated file accepted")
	}
}

func TestParse_DataOffsetOutOfRange(t *testing.T) {
	img := buildImage(imageHeader{loopCmdOff: -1}, []byte{0x66})
	binary.LittleEndian.PutUint32(img[0x34:], 0x10000)
	if _, err := ParseData(img); err == nil {
		t.Error("out-of-range data offset accepted")
	}
}

func TestParse_BadLoopOffsetIgnored(t *testing.T) {
	img := buildImage(imageHeader{ym2612Clock: 7670454, loopCmdOff: -1}, []byte{0x66})
	binary.LittleEndian.PutUint32(img[0x1C:], 0x20000)
	f, err := ParseData(img)
	if err != nil {
		t.Fatal(err)
	}
	if f.LoopOffset() != -1 {
		t.Errorf("loop offset = %d, want rejection to -1", f.LoopOffset())
	}
}
