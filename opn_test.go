package opn

import "testing"

// --- Variant construction ---

func TestOPN_VariantShapes(t *testing.T) {
	tests := []struct {
		name   string
		numCh  int
		stereo bool
		quirk  bool
	}{
		{"YM2203", 3, false, false},
		{"YM2608", 6, true, false},
		{"YM2610", 6, true, false},
		{"YM2612", 6, true, true},
	}
	devices := []*OPN{
		NewYM2203(3993600).OPN,
		NewYM2608(8000000).OPN,
		NewYM2610(8000000).OPN,
		NewYM2612(7670454).OPN,
	}
	for i, tt := range tests {
		o := devices[i]
		if o.label != tt.name {
			t.Errorf("%s: label = %q", tt.name, o.label)
		}
		if o.numCh != tt.numCh || o.stereo != tt.stereo || o.egQuirk != tt.quirk {
			t.Errorf("%s: numCh/stereo/quirk = %d/%v/%v, want %d/%v/%v",
				tt.name, o.numCh, o.stereo, o.egQuirk, tt.numCh, tt.stereo, tt.quirk)
		}
	}
}

func TestOPN_SampleRate(t *testing.T) {
	y := NewYM2612(7670454)
	if got := y.SampleRate(); got != 7670454/144 {
		t.Errorf("sample rate = %d, want %d", got, 7670454/144)
	}
	y.SetClock(8000000)
	if got := y.SampleRate(); got != 8000000/144 {
		t.Errorf("sample rate after SetClock = %d, want %d", got, 8000000/144)
	}
}

func TestOPN_EnumAudioOutputs(t *testing.T) {
	y := NewYM2612(7670454)
	out, ok := y.EnumAudioOutputs(0)
	if !ok {
		t.Fatal("output 0 missing")
	}
	if out.Channels != 2 || out.ChannelMask != 0x3 || out.Label != "YM2612" {
		t.Errorf("stereo output = %+v", out)
	}
	if out.SampleRate != y.SampleRate() {
		t.Errorf("output rate = %d, want %d", out.SampleRate, y.SampleRate())
	}
	if _, ok := y.EnumAudioOutputs(1); ok {
		t.Error("only one output exists")
	}

	m := NewYM2203(3993600)
	out, _ = m.EnumAudioOutputs(0)
	if out.Channels != 1 || out.ChannelMask != 0x4 {
		t.Errorf("mono output = %+v", out)
	}
}

// --- Reset modes ---

func TestOPN_PowerOnDefaults(t *testing.T) {
	y := NewYM2612(7670454)
	for i := range y.sl {
		s := &y.sl[i]
		if s.egPhase != egRelease || s.egLevel != 0x3FF {
			t.Fatalf("slot %d envelope = %d/0x%03X, want release/silent", i, s.egPhase, s.egLevel)
		}
		if s.mul2 != 1 {
			t.Fatalf("slot %d mul2 = %d, want 1 (MUL=0)", i, s.mul2)
		}
	}
	for i := range y.ch {
		if !y.ch[i].panL || !y.ch[i].panR {
			t.Fatalf("channel %d pan defaults should be open both sides", i)
		}
	}
}

func TestOPN_ResetPowerOnClearsEverything(t *testing.T) {
	y := NewYM2612(7670454)
	setupTone(y.Write)
	var sink captureSink
	y.Update(144*10+7, &sink)

	y.Reset(ResetPowerOn)
	if y.cycleAccum != 0 {
		t.Errorf("cycle remainder = %d, want 0", y.cycleAccum)
	}
	if y.sl[0].keyOn || y.sl[0].rates[egAttack] != 0 {
		t.Error("register state survived a power-on reset")
	}
	if y.ch[0].fnum != 0 {
		t.Errorf("fnum = 0x%03X, want 0", y.ch[0].fnum)
	}
}

func TestOPN_ResetInitialClearKeepsRemainder(t *testing.T) {
	y := NewYM2612(7670454)
	var sink captureSink
	y.Update(144+7, &sink)

	y.Reset(ResetInitialClear)
	if y.cycleAccum != 7 {
		t.Errorf("cycle remainder = %d, want the carried 7", y.cycleAccum)
	}
	if y.ch[0].fnum != 0 || y.sl[0].egLevel != 0x3FF {
		t.Error("synthesis state survived an initial clear")
	}
}

func TestOPN_ResetSoftKeepsRegisters(t *testing.T) {
	y := NewYM2612(7670454)
	setupTone(y.Write)
	var sink captureSink
	y.Update(144*50, &sink)

	y.Reset(ResetSoft)
	if y.ch[0].fnum != 0x400 || y.ch[0].block != 4 {
		t.Error("soft reset wiped the register file")
	}
	if y.sl[0].tl != 0 || y.sl[0].rates[egAttack] != 31 {
		t.Error("soft reset wiped the slot registers")
	}
	if y.sl[0].keyOn || y.sl[0].egPhase != egRelease || y.sl[0].egLevel != 0x3FF {
		t.Error("soft reset left a voice sounding")
	}

	sink.samples = sink.samples[:0]
	y.Update(144*16, &sink)
	for i, s := range sink.samples {
		if s != 0 {
			t.Fatalf("sample %d = %d after soft reset, want silence", i, s)
		}
	}
}

// --- YM2612 DAC ---

func TestOPN_DACReplacesChannel6(t *testing.T) {
	y := NewYM2612(7670454)
	y.Write(0, 0x2B)
	y.Write(1, 0x80) // DAC enable
	y.Write(0, 0x2A)
	y.Write(1, 0xFF)

	var sink captureSink
	y.Update(144, &sink)
	want := int16((int32(0xFF) - 128) << 6)
	if sink.samples[0] != want || sink.samples[1] != want {
		t.Errorf("DAC sample = %d/%d, want %d", sink.samples[0], sink.samples[1], want)
	}
}

func TestOPN_DACDisabledLeavesFMChannel(t *testing.T) {
	y := NewYM2612(7670454)
	y.Write(0, 0x2A)
	y.Write(1, 0xFF) // value latched but DAC off

	var sink captureSink
	y.Update(144, &sink)
	if sink.samples[0] != 0 {
		t.Errorf("sample = %d, want 0 with the DAC disabled", sink.samples[0])
	}
}

func TestOPN_DACCenterIsSilent(t *testing.T) {
	y := NewYM2612(7670454)
	y.Write(0, 0x2B)
	y.Write(1, 0x80)
	y.Write(0, 0x2A)
	y.Write(1, 0x80) // center

	var sink captureSink
	y.Update(144*4, &sink)
	for i, s := range sink.samples {
		if s != 0 {
			t.Fatalf("sample %d = %d, want 0 at the DAC center value", i, s)
		}
	}
}

func TestOPN_DACResetModes(t *testing.T) {
	y := NewYM2612(7670454)
	y.Write(0, 0x2B)
	y.Write(1, 0x80)
	y.Write(0, 0x2A)
	y.Write(1, 0x40)

	y.Reset(ResetSoft)
	if !y.dacEnable || y.dacSample != 0x40 {
		t.Error("soft reset should keep the DAC registers")
	}
	y.Reset(ResetPowerOn)
	if y.dacEnable || y.dacSample != 0x80 {
		t.Error("power-on reset should clear the DAC registers")
	}
}
