package st7032i

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/softi2c/lines/fake"
	"go.viam.com/softi2c/logging"
	"go.viam.com/softi2c/softi2c"
)

// flaky NACKs the payload byte of its first fails writes and records the writes it accepts.
type flaky struct {
	fails    int
	attempts int
	frame    []byte
	accepted [][]byte
}

func (f *flaky) Start(read bool) {
	f.frame = nil
}

func (f *flaky) Write(b byte) bool {
	f.frame = append(f.frame, b)
	if len(f.frame) < 2 {
		return true
	}
	f.attempts++
	if f.fails > 0 {
		f.fails--
		return false
	}
	f.accepted = append(f.accepted, f.frame)
	return true
}

func (f *flaky) Read() byte { return 0xFF }

func (f *flaky) Stop() {}

type rig struct {
	display *Display
	regs    *fake.Registers
	clk     *fake.Clock
}

func newRig(t *testing.T, conf Config, dev fake.Device) *rig {
	t.Helper()
	logger := logging.NewTestLogger(t)
	wires := fake.NewWires()
	var regs *fake.Registers
	if dev == nil {
		regs = fake.NewRegisters(256)
		dev = regs
	}
	wires.Attach(DefaultAddress, dev)

	clk := fake.NewClock(time.Unix(0, 0))
	m, err := softi2c.NewMaster(wires, clk, softi2c.Config{}, logger)
	test.That(t, err, test.ShouldBeNil)
	display, err := New(softi2c.NewBus("lcd-test", m, logger), conf, clk, logger)
	test.That(t, err, test.ShouldBeNil)
	return &rig{display: display, regs: regs, clk: clk}
}

func commands(data ...byte) []fake.RegisterWrite {
	writes := make([]fake.RegisterWrite, len(data))
	for i, b := range data {
		writes[i] = fake.RegisterWrite{Register: modeCommand, Value: b}
	}
	return writes
}

func chars(s string) []fake.RegisterWrite {
	writes := make([]fake.RegisterWrite, len(s))
	for i := 0; i < len(s); i++ {
		writes[i] = fake.RegisterWrite{Register: modeData, Value: s[i]}
	}
	return writes
}

func TestInit(t *testing.T) {
	r := newRig(t, Config{}, nil)
	test.That(t, r.display.Init(context.Background()), test.ShouldBeNil)
	test.That(t, r.regs.Writes(), test.ShouldResemble,
		commands(0x38, 0x39, 0x14, 0x7D, 0x5E, 0x6C, 0x38, 0x0C, 0x06))
	test.That(t, r.clk.Slept(), test.ShouldBeGreaterThanOrEqualTo, 480*time.Millisecond)

	t.Run("single line, custom contrast", func(t *testing.T) {
		r := newRig(t, Config{Lines: 1, Contrast: 0x3A}, nil)
		test.That(t, r.display.Init(context.Background()), test.ShouldBeNil)
		test.That(t, r.regs.Writes(), test.ShouldResemble,
			commands(0x30, 0x31, 0x14, 0x7A, 0x5F, 0x6C, 0x30, 0x0C, 0x06))
	})
}

func TestDisplayControl(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, Config{}, nil)
	test.That(t, r.display.Init(ctx), test.ShouldBeNil)
	r.regs.ResetWrites()

	test.That(t, r.display.Cursor(ctx), test.ShouldBeNil)
	test.That(t, r.display.Blink(ctx), test.ShouldBeNil)
	test.That(t, r.display.NoCursor(ctx), test.ShouldBeNil)
	test.That(t, r.display.NoDisplay(ctx), test.ShouldBeNil)
	test.That(t, r.display.Display(ctx), test.ShouldBeNil)
	test.That(t, r.display.NoBlink(ctx), test.ShouldBeNil)
	test.That(t, r.regs.Writes(), test.ShouldResemble, commands(0x0E, 0x0F, 0x0D, 0x09, 0x0D, 0x0C))
}

func TestEntryMode(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, Config{}, nil)
	test.That(t, r.display.Init(ctx), test.ShouldBeNil)
	r.regs.ResetWrites()

	test.That(t, r.display.Autoscroll(ctx), test.ShouldBeNil)
	test.That(t, r.display.RightToLeft(ctx), test.ShouldBeNil)
	test.That(t, r.display.LeftToRight(ctx), test.ShouldBeNil)
	test.That(t, r.display.NoAutoscroll(ctx), test.ShouldBeNil)
	test.That(t, r.display.ScrollLeft(ctx), test.ShouldBeNil)
	test.That(t, r.display.ScrollRight(ctx), test.ShouldBeNil)
	test.That(t, r.regs.Writes(), test.ShouldResemble, commands(0x07, 0x05, 0x07, 0x06, 0x38, 0x18, 0x38, 0x1C))
}

func TestCursorAndText(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, Config{}, nil)

	test.That(t, r.display.Clear(ctx), test.ShouldBeNil)
	test.That(t, r.display.Home(ctx), test.ShouldBeNil)
	test.That(t, r.display.SetCursor(ctx, 3, 1), test.ShouldBeNil)
	// Rows past the last one clamp to it.
	test.That(t, r.display.SetCursor(ctx, 0, 3), test.ShouldBeNil)
	test.That(t, r.display.Print(ctx, "Hi!"), test.ShouldBeNil)

	expected := commands(0x01, 0x02, 0xC3, 0xC0)
	expected = append(expected, chars("Hi!")...)
	test.That(t, r.regs.Writes(), test.ShouldResemble, expected)

	t.Run("four lines", func(t *testing.T) {
		r := newRig(t, Config{Lines: 4}, nil)
		test.That(t, r.display.SetCursor(ctx, 1, 2), test.ShouldBeNil)
		test.That(t, r.display.SetCursor(ctx, 1, 3), test.ShouldBeNil)
		test.That(t, r.regs.Writes(), test.ShouldResemble, commands(0x95, 0xD5))
	})
}

func TestCreateCharAndContrast(t *testing.T) {
	ctx := context.Background()
	r := newRig(t, Config{}, nil)

	glyph := [8]byte{0x00, 0x0A, 0x1F, 0x1F, 0x0E, 0x04, 0x00, 0x00}
	test.That(t, r.display.CreateChar(ctx, 9, glyph), test.ShouldBeNil)
	expected := commands(0x48)
	for _, row := range glyph {
		expected = append(expected, fake.RegisterWrite{Register: modeData, Value: row})
	}
	test.That(t, r.regs.Writes(), test.ShouldResemble, expected)

	r.regs.ResetWrites()
	test.That(t, r.display.SetContrast(ctx, 0x25), test.ShouldBeNil)
	test.That(t, r.regs.Writes(), test.ShouldResemble, commands(0x39, 0x5E, 0x75))
	test.That(t, r.display.SetContrast(ctx, 64), test.ShouldNotBeNil)
}

func TestIcons(t *testing.T) {
	ctx := context.Background()

	r := newRig(t, Config{}, nil)
	test.That(t, r.display.Icon(ctx, 0, true), test.ShouldNotBeNil)
	test.That(t, r.regs.Writes(), test.ShouldBeEmpty)

	r = newRig(t, Config{Icons: true}, nil)
	test.That(t, r.display.Icon(ctx, 5, true), test.ShouldBeNil)
	test.That(t, r.display.PowerIcon(ctx, 2, true), test.ShouldBeNil)
	test.That(t, r.display.PowerIcon(ctx, 2, false), test.ShouldBeNil)
	test.That(t, r.regs.Writes(), test.ShouldResemble, []fake.RegisterWrite{
		{Register: modeCommand, Value: 0x39},
		{Register: modeCommand, Value: 0x47},
		{Register: modeData, Value: 0x08},
		{Register: modeCommand, Value: 0x38},
		{Register: modeCommand, Value: 0x39},
		{Register: modeCommand, Value: 0x4D},
		{Register: modeData, Value: 0x1A},
		{Register: modeCommand, Value: 0x38},
		{Register: modeCommand, Value: 0x39},
		{Register: modeCommand, Value: 0x4D},
		{Register: modeData, Value: 0x00},
		{Register: modeCommand, Value: 0x38},
	})

	test.That(t, r.display.Icon(ctx, 9, true), test.ShouldNotBeNil)
	test.That(t, r.display.PowerIcon(ctx, 4, true), test.ShouldNotBeNil)
}

func TestWriteRetries(t *testing.T) {
	ctx := context.Background()

	dev := &flaky{fails: writeAttempts - 1}
	r := newRig(t, Config{}, dev)
	test.That(t, r.display.Clear(ctx), test.ShouldBeNil)
	test.That(t, dev.attempts, test.ShouldEqual, writeAttempts)
	test.That(t, dev.accepted, test.ShouldResemble, [][]byte{{modeCommand, cmdClearDisplay}})

	dev = &flaky{fails: writeAttempts}
	r = newRig(t, Config{}, dev)
	err := r.display.Print(ctx, "ab")
	test.That(t, err, test.ShouldNotBeNil)
	status, ok := softi2c.StatusOf(err)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, status, test.ShouldEqual, softi2c.SlaveNack)
	// The first failed character stops the rest.
	test.That(t, dev.attempts, test.ShouldEqual, writeAttempts)
	test.That(t, dev.accepted, test.ShouldBeEmpty)
}

func TestConfigValidate(t *testing.T) {
	for _, conf := range []Config{
		{Address: 0x80},
		{Contrast: 64},
		{Lines: 5},
	} {
		test.That(t, conf.Validate("display"), test.ShouldNotBeNil)
	}
	conf := Config{Address: 0x3E, Contrast: 20, Lines: 4, Icons: true}
	test.That(t, conf.Validate("display"), test.ShouldBeNil)
}
