// Command vgmrender renders VGM/VGZ register logs through the OPN chip
// models, either to a WAV file or straight to the sound card.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"github.com/ebitengine/oto/v3"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/user-none/go-chip-opn/vgm"
)

type (
	CLI struct {
		Render Render `cmd:"" help:"Render a VGM file to WAV. (default command)" default:"true"`
		Play   Play   `cmd:"" help:"Play a VGM file through the sound card."`
		Info   Info   `cmd:"" help:"Show VGM header information."`

		Config   string `help:"Path to a TOML config file." type:"path"`
		LogLevel string `name:"log-level" help:"Log level: debug, info, warn, error." default:"warn"`
	}

	Render struct {
		VGMPath string `arg:"" name:"/path/to/vgm" help:"VGM or VGZ file to render." type:"existingfile"`
		Out     string `name:"out" short:"o" help:"Output WAV path. Defaults to the input name with a .wav extension."`
		Loops   int    `name:"loops" help:"Times the looped section repeats." default:"2"`
	}

	Play struct {
		VGMPath string `arg:"" name:"/path/to/vgm" help:"VGM or VGZ file to play." type:"existingfile"`
		Loops   int    `name:"loops" help:"Times the looped section repeats." default:"2"`
	}

	Info struct {
		VGMPath string `arg:"" name:"/path/to/vgm" help:"VGM or VGZ file to inspect." type:"existingfile"`
	}
)

// Config holds the optional TOML settings. Command-line flags win over
// file values.
type Config struct {
	Gain  float64 `toml:"gain"`
	Loops int     `toml:"loops"`
}

func defaultConfig() Config {
	return Config{Gain: 1.0, Loops: -1}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	var cli CLI
	ctx, err := kong.New(&cli,
		kong.Name("vgmrender"),
		kong.Description("OPN family VGM renderer. github.com/user-none/go-chip-opn"),
		kong.UsageOnError())
	check(err)
	kctx, err := ctx.Parse(os.Args[1:])
	check(err)

	level, err := logrus.ParseLevel(cli.LogLevel)
	check(err)
	logrus.SetLevel(level)

	cfg, err := loadConfig(cli.Config)
	check(err)

	switch kctx.Command() {
	case "render </path/to/vgm>":
		check(doRender(cli.Render, cfg))
	case "play </path/to/vgm>":
		check(doPlay(cli.Play, cfg))
	case "info </path/to/vgm>":
		check(doInfo(cli.Info))
	}
}

func check(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "vgmrender:", err)
		os.Exit(1)
	}
}

// loops resolves the repeat count, preferring the config file when the
// flag keeps its default.
func loops(flagVal int, cfg Config) int {
	if cfg.Loops >= 0 && flagVal == 2 {
		return cfg.Loops
	}
	return flagVal
}

func doRender(r Render, cfg Config) error {
	f, err := vgm.ParseFile(r.VGMPath)
	if err != nil {
		return err
	}
	p, err := vgm.NewPlayer(f, loops(r.Loops, cfg))
	if err != nil {
		return err
	}

	outPath := r.Out
	if outPath == "" {
		outPath = stripExt(r.VGMPath) + ".wav"
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := wav.NewEncoder(out, p.SampleRate(), 16, 2, 1)
	frames := make([]int16, 4096*2)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: p.SampleRate()},
		SourceBitDepth: 16,
	}
	total := 0
	for {
		n := p.Render(frames)
		if n == 0 {
			break
		}
		buf.Data = buf.Data[:0]
		for _, s := range frames[:n*2] {
			buf.Data = append(buf.Data, int(applyGain(s, cfg.Gain)))
		}
		if err := enc.Write(buf); err != nil {
			return err
		}
		total += n
	}
	if err := enc.Close(); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"frames": total,
		"out":    outPath,
	}).Info("render complete")
	fmt.Printf("%s: %s, %d frames -> %s\n", r.VGMPath, chipLabel(p), total, outPath)
	return nil
}

func doPlay(pl Play, cfg Config) error {
	f, err := vgm.ParseFile(pl.VGMPath)
	if err != nil {
		return err
	}
	p, err := vgm.NewPlayer(f, loops(pl.Loops, cfg))
	if err != nil {
		return err
	}

	op := &oto.NewContextOptions{
		SampleRate:   p.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	src := &pcmStream{p: p, gain: cfg.Gain}
	player := ctx.NewPlayer(src)
	player.Play()

	fmt.Printf("%s: %s, %d frames\n", pl.VGMPath, chipLabel(p), p.TotalFrames())
	for player.IsPlaying() && !src.eof {
		time.Sleep(50 * time.Millisecond)
	}
	// Let the device buffer drain before tearing the player down.
	time.Sleep(100 * time.Millisecond)
	return player.Close()
}

func doInfo(in Info) error {
	f, err := vgm.ParseFile(in.VGMPath)
	if err != nil {
		return err
	}
	fmt.Printf("version:       %x.%02x\n", f.Version>>8, f.Version&0xFF)
	fmt.Printf("total samples: %d (%.1f s)\n", f.TotalSamples,
		float64(f.TotalSamples)/float64(vgm.OutputRate))
	if f.LoopOffset() >= 0 {
		fmt.Printf("loop samples:  %d\n", f.LoopSamples)
	} else {
		fmt.Println("loop:          none")
	}
	printClock := func(name string, hz uint32) {
		if hz != 0 {
			fmt.Printf("%s:        %d Hz\n", name, hz)
		}
	}
	printClock("SN76489", f.ClockSN)
	printClock("YM2203 ", f.Clock2203)
	printClock("YM2608 ", f.Clock2608)
	printClock("YM2610 ", f.Clock2610)
	printClock("YM2612 ", f.Clock2612)
	return nil
}

// pcmStream adapts a Player to the io.Reader oto pulls from, converting
// frames to little-endian bytes on demand.
type pcmStream struct {
	p    *vgm.Player
	gain float64
	buf  []int16
	eof  bool
}

func (s *pcmStream) Read(b []byte) (int, error) {
	frames := len(b) / 4
	if frames == 0 {
		return 0, nil
	}
	if cap(s.buf) < frames*2 {
		s.buf = make([]int16, frames*2)
	}
	s.buf = s.buf[:frames*2]
	n := s.p.Render(s.buf)
	if n == 0 {
		s.eof = true
		// oto keeps pulling from a live player; feed it silence.
		for i := range b {
			b[i] = 0
		}
		return len(b), nil
	}
	for i := 0; i < n*2; i++ {
		v := applyGain(s.buf[i], s.gain)
		b[i*2] = byte(v)
		b[i*2+1] = byte(v >> 8)
	}
	return n * 4, nil
}

func applyGain(s int16, gain float64) int16 {
	if gain == 1.0 {
		return s
	}
	v := int32(float64(s) * gain)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

func chipLabel(p *vgm.Player) string {
	if p.Chip() == "" {
		return "SN76489"
	}
	return p.Chip()
}

func stripExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}

var _ io.Reader = (*pcmStream)(nil)
