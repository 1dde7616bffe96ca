// Package vgm plays VGM/VGZ register logs through the OPN chip models.
// Parsing keeps the raw command stream; playback walks it, drives the
// chips cycle by cycle and band-limits the native chip rate down to the
// output rate.
package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gopkg.in/Sirupsen/logrus.v0"
)

// clockMask strips the dual-chip and extra-feature flag bits the VGM
// header packs into the top of each clock field.
const clockMask = 0x3FFFFFFF

// File is a parsed VGM file. The command stream is kept verbatim; a
// Player walks it at playback time.
type File struct {
	Version uint32

	// Chip clocks from the header, zero when a chip is absent.
	ClockSN   uint32
	Clock2203 uint32
	Clock2608 uint32
	Clock2610 uint32
	Clock2612 uint32

	TotalSamples uint32
	LoopSamples  uint32

	data      []byte
	dataStart int
	loopStart int // offset into data, 0 when the file does not loop
}

// Commands returns the raw command stream, starting at the first
// command byte.
func (f *File) Commands() []byte {
	return f.data[f.dataStart:]
}

// LoopOffset returns the loop point as an offset into Commands, or -1
// when the file does not loop.
func (f *File) LoopOffset() int {
	if f.loopStart == 0 {
		return -1
	}
	return f.loopStart - f.dataStart
}

// HasOPN reports whether the header names any chip this package can
// play.
func (f *File) HasOPN() bool {
	return f.Clock2612 != 0 || f.Clock2610 != 0 || f.Clock2608 != 0 ||
		f.Clock2203 != 0
}

// ParseFile reads and parses a VGM or gzip-compressed VGZ file.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a VGM or VGZ stream from r.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseData(data)
}

// ParseData parses an in-memory VGM or VGZ image.
func ParseData(data []byte) (*File, error) {
	if len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return nil, err
		}
	}
	if len(data) < 0x40 {
		return nil, fmt.Errorf("vgm: file too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[0:4], []byte("Vgm ")) {
		return nil, fmt.Errorf("vgm: bad ident")
	}

	f := &File{data: data}
	f.Version = binary.LittleEndian.Uint32(data[0x08:])
	f.ClockSN = binary.LittleEndian.Uint32(data[0x0C:]) & clockMask
	f.TotalSamples = binary.LittleEndian.Uint32(data[0x18:])
	f.LoopSamples = binary.LittleEndian.Uint32(data[0x20:])
	f.Clock2612 = binary.LittleEndian.Uint32(data[0x2C:]) & clockMask

	// Pre-1.50 files have no data offset field; commands start at 0x40.
	f.dataStart = 0x40
	if f.Version >= 0x150 {
		rel := binary.LittleEndian.Uint32(data[0x34:])
		if rel != 0 {
			f.dataStart = 0x34 + int(rel)
		}
	}
	if f.dataStart >= len(data) {
		return nil, fmt.Errorf("vgm: data offset 0x%X out of range", f.dataStart)
	}

	// The YM2203/2608/2610 clocks were added in 1.51; they only exist
	// when the header itself extends past them.
	if f.Version >= 0x151 && f.dataStart >= 0x50 {
		f.Clock2203 = binary.LittleEndian.Uint32(data[0x44:]) & clockMask
		f.Clock2608 = binary.LittleEndian.Uint32(data[0x48:]) & clockMask
		f.Clock2610 = binary.LittleEndian.Uint32(data[0x4C:]) & clockMask
	}

	if rel := binary.LittleEndian.Uint32(data[0x1C:]); rel != 0 {
		f.loopStart = 0x1C + int(rel)
		if f.loopStart < f.dataStart || f.loopStart >= len(data) {
			logrus.WithFields(logrus.Fields{
				"offset": fmt.Sprintf("0x%X", f.loopStart),
			}).Warn("vgm: loop offset out of range, ignoring")
			f.loopStart = 0
		}
	}

	logrus.WithFields(logrus.Fields{
		"version": fmt.Sprintf("%x.%02x", f.Version>>8, f.Version&0xFF),
		"sn":      f.ClockSN,
		"ym2203":  f.Clock2203,
		"ym2608":  f.Clock2608,
		"ym2610":  f.Clock2610,
		"ym2612":  f.Clock2612,
		"samples": f.TotalSamples,
	}).Debug("vgm: parsed header")

	return f, nil
}
