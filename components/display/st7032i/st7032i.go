// Package st7032i implements a driver for character displays built on the Sitronix ST7032i
// controller, such as the common 16x2 and 8x2 I2C modules.
package st7032i

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/softi2c/buses"
	"go.viam.com/softi2c/logging"
)

// DefaultAddress is the fixed bus address of the controller.
const DefaultAddress = 0x3E

// DefaultContrast is the contrast set by Init when none is configured.
const DefaultContrast = 45

// writeAttempts bounds the tries of a single two byte write.
const writeAttempts = 3

// Control bytes preceding every payload byte.
const (
	modeCommand = 0x00
	modeData    = 0x40
)

// HD44780 compatible instructions.
const (
	cmdClearDisplay   = 0x01
	cmdReturnHome     = 0x02
	cmdEntryModeSet   = 0x04
	cmdDisplayControl = 0x08
	cmdCursorShift    = 0x10
	cmdFunctionSet    = 0x20
	cmdSetCGRAMAddr   = 0x40
	cmdSetDDRAMAddr   = 0x80

	entryShiftIncrement = 0x01
	entryLeft           = 0x02

	displayOn = 0x04
	cursorOn  = 0x02
	blinkOn   = 0x01

	displayMove = 0x08
	moveRight   = 0x04
	moveLeft    = 0x00

	function8Bit     = 0x10
	function2Line    = 0x08
	functionExtended = 0x01
)

// ST7032 extended instructions.
const (
	cmdBiasOscControl   = 0x10
	cmdIconAddress      = 0x40
	cmdIconContrastHigh = 0x50
	cmdFollowerControl  = 0x60
	cmdContrastLow      = 0x70

	bias1of5   = 0x00
	osc192kHz  = 0x04
	iconOn     = 0x08
	boosterOn  = 0x04
	followerOn = 0x08
	rab2x      = 0x04

	contrastHighMask = 0x03
	contrastLowMask  = 0x0F
)

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// iconTable maps icon numbers to their icon RAM address and bit, for the panel variant with an
// icon row.
var iconTable = [...][2]byte{
	{0x00, 0x10}, // antenna
	{0x02, 0x10}, // telephone
	{0x04, 0x10}, // radio
	{0x06, 0x10}, // external power
	{0x07, 0x10}, // up
	{0x07, 0x08}, // down
	{0x09, 0x10}, // key lock
	{0x0B, 0x10}, // mute
	{0x0F, 0x10}, // coin
}

const powerIconAddress = 0x0D

// Config is used for converting config attributes.
type Config struct {
	Address int `json:"address,omitempty"`
	// Contrast is the initial contrast, 1 through 63. Zero selects DefaultContrast.
	Contrast int `json:"contrast,omitempty"`
	// Lines is the number of display rows, 1 through 4. Zero means 2.
	Lines int `json:"lines,omitempty"`
	// Icons enables the icon row of panels that have one.
	Icons bool `json:"icons,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Address < 0 || conf.Address > 0x7f {
		return goutils.NewConfigValidationError(path, errors.Errorf("address %#x is not 7-bit", conf.Address))
	}
	if conf.Contrast < 0 || conf.Contrast > 63 {
		return goutils.NewConfigValidationError(path, errors.Errorf("contrast %d is outside 0-63", conf.Contrast))
	}
	if conf.Lines < 0 || conf.Lines > len(rowOffsets) {
		return goutils.NewConfigValidationError(path, errors.Errorf("lines %d is outside 1-%d", conf.Lines, len(rowOffsets)))
	}
	return nil
}

// Display is an ST7032i driven over a shared bus.
type Display struct {
	bus      buses.I2C
	addr     byte
	clk      clock.Clock
	logger   logging.Logger
	lines    int
	contrast byte
	icons    bool

	basic, extended byte

	mu             sync.Mutex
	displayControl byte
	entryMode      byte
}

// New returns a driver for the display on bus. Call Init before anything else. A nil clk uses
// the wall clock.
func New(bus buses.I2C, conf Config, clk clock.Clock, logger logging.Logger) (*Display, error) {
	if err := conf.Validate("display"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	d := &Display{
		bus:      bus,
		addr:     DefaultAddress,
		clk:      clk,
		logger:   logger,
		lines:    2,
		contrast: DefaultContrast,
		icons:    conf.Icons,
	}
	if conf.Address != 0 {
		d.addr = byte(conf.Address)
	}
	if conf.Lines != 0 {
		d.lines = conf.Lines
	}
	if conf.Contrast != 0 {
		d.contrast = byte(conf.Contrast)
	}
	d.basic = function8Bit
	if d.lines > 1 {
		d.basic |= function2Line
	}
	d.extended = d.basic | functionExtended
	return d, nil
}

// write sends one control byte and payload byte, retrying a failed write.
func (d *Display) write(ctx context.Context, mode, data byte) error {
	var err error
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if err = d.tryWrite(ctx, mode, data); err == nil {
			return nil
		}
		d.logger.CDebugw(ctx, "st7032i write failed", "mode", mode, "data", data, "attempt", attempt, "error", err)
	}
	return errors.Wrapf(err, "st7032i write 0x%02x 0x%02x", mode, data)
}

func (d *Display) tryWrite(ctx context.Context, mode, data byte) error {
	handle, err := d.bus.OpenHandle(d.addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			d.logger.Error(err)
		}
	}()
	return handle.Write(ctx, []byte{mode, data})
}

type step struct {
	mode, data byte
	wait       time.Duration
}

func command(data byte, wait time.Duration) step {
	return step{mode: modeCommand, data: data, wait: wait}
}

// run sends steps in order, stopping at the first failure.
func (d *Display) run(ctx context.Context, steps ...step) error {
	for _, s := range steps {
		if err := d.write(ctx, s.mode, s.data); err != nil {
			return err
		}
		if s.wait > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			d.clk.Sleep(s.wait)
		}
	}
	return nil
}

// Init runs the power on sequence: internal oscillator, contrast, booster and follower, then
// display on with the cursor hidden and left to right entry.
func (d *Display) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.displayControl = displayOn
	d.entryMode = entryLeft

	d.clk.Sleep(40 * time.Millisecond)
	return d.run(ctx,
		command(cmdFunctionSet|d.basic, 30*time.Millisecond),
		command(cmdFunctionSet|d.extended, 30*time.Millisecond),
		command(cmdBiasOscControl|bias1of5|osc192kHz, 30*time.Millisecond),
		command(cmdContrastLow|d.contrast&contrastLowMask, 30*time.Millisecond),
		command(cmdIconContrastHigh|iconOn|boosterOn|d.contrast>>4&contrastHighMask, 30*time.Millisecond),
		command(cmdFollowerControl|followerOn|rab2x, 200*time.Millisecond),
		command(cmdFunctionSet|d.basic, 30*time.Millisecond),
		command(cmdDisplayControl|d.displayControl, 30*time.Millisecond),
		command(cmdEntryModeSet|d.entryMode, 30*time.Millisecond),
	)
}

// Clear blanks the display and homes the cursor.
func (d *Display) Clear(ctx context.Context) error {
	return d.run(ctx, command(cmdClearDisplay, 2*time.Millisecond))
}

// Home moves the cursor and any display shift back to the origin.
func (d *Display) Home(ctx context.Context) error {
	return d.run(ctx, command(cmdReturnHome, 2*time.Millisecond))
}

// SetCursor moves the cursor. Rows past the last one select the last one.
func (d *Display) SetCursor(ctx context.Context, col, row int) error {
	if row < 0 {
		row = 0
	}
	if row >= d.lines {
		row = d.lines - 1
	}
	return d.run(ctx, command(cmdSetDDRAMAddr|(byte(col)+rowOffsets[row]), 30*time.Millisecond))
}

func (d *Display) setControl(ctx context.Context, bit byte, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.displayControl |= bit
	} else {
		d.displayControl &^= bit
	}
	return d.run(ctx, command(cmdDisplayControl|d.displayControl, 30*time.Millisecond))
}

// Display turns the display on.
func (d *Display) Display(ctx context.Context) error { return d.setControl(ctx, displayOn, true) }

// NoDisplay turns the display off without losing its contents.
func (d *Display) NoDisplay(ctx context.Context) error { return d.setControl(ctx, displayOn, false) }

// Cursor shows the underline cursor.
func (d *Display) Cursor(ctx context.Context) error { return d.setControl(ctx, cursorOn, true) }

// NoCursor hides the underline cursor.
func (d *Display) NoCursor(ctx context.Context) error { return d.setControl(ctx, cursorOn, false) }

// Blink turns on the blinking block cursor.
func (d *Display) Blink(ctx context.Context) error { return d.setControl(ctx, blinkOn, true) }

// NoBlink turns off the blinking block cursor.
func (d *Display) NoBlink(ctx context.Context) error { return d.setControl(ctx, blinkOn, false) }

func (d *Display) scroll(ctx context.Context, direction byte) error {
	return d.run(ctx,
		command(cmdFunctionSet|d.basic, 30*time.Millisecond),
		command(cmdCursorShift|displayMove|direction, 30*time.Millisecond),
	)
}

// ScrollLeft shifts the whole display one column left.
func (d *Display) ScrollLeft(ctx context.Context) error { return d.scroll(ctx, moveLeft) }

// ScrollRight shifts the whole display one column right.
func (d *Display) ScrollRight(ctx context.Context) error { return d.scroll(ctx, moveRight) }

func (d *Display) setEntry(ctx context.Context, bit byte, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if on {
		d.entryMode |= bit
	} else {
		d.entryMode &^= bit
	}
	return d.run(ctx, command(cmdEntryModeSet|d.entryMode, 30*time.Millisecond))
}

// LeftToRight makes text flow left to right.
func (d *Display) LeftToRight(ctx context.Context) error { return d.setEntry(ctx, entryLeft, true) }

// RightToLeft makes text flow right to left.
func (d *Display) RightToLeft(ctx context.Context) error { return d.setEntry(ctx, entryLeft, false) }

// Autoscroll shifts the display on every character instead of moving the cursor.
func (d *Display) Autoscroll(ctx context.Context) error {
	return d.setEntry(ctx, entryShiftIncrement, true)
}

// NoAutoscroll turns off Autoscroll.
func (d *Display) NoAutoscroll(ctx context.Context) error {
	return d.setEntry(ctx, entryShiftIncrement, false)
}

// CreateChar defines one of the eight custom 5x8 characters. Only the low three bits of
// location are used.
func (d *Display) CreateChar(ctx context.Context, location byte, charmap [8]byte) error {
	steps := []step{command(cmdSetCGRAMAddr|(location&0x7)<<3, 30*time.Millisecond)}
	for _, row := range charmap {
		steps = append(steps, step{mode: modeData, data: row, wait: 30 * time.Millisecond})
	}
	return d.run(ctx, steps...)
}

// SetContrast sets the contrast, 0 through 63.
func (d *Display) SetContrast(ctx context.Context, contrast byte) error {
	if contrast > 63 {
		return errors.Errorf("contrast %d is outside 0-63", contrast)
	}
	d.mu.Lock()
	d.contrast = contrast
	d.mu.Unlock()
	return d.run(ctx,
		command(cmdFunctionSet|d.extended, 30*time.Millisecond),
		command(cmdIconContrastHigh|iconOn|boosterOn|contrast>>4&contrastHighMask, 30*time.Millisecond),
		command(cmdContrastLow|contrast&contrastLowMask, 30*time.Millisecond),
	)
}

// Print writes the bytes of s at the cursor. Characters come from the controller's ROM, which
// matches ASCII in the printable range.
func (d *Display) Print(ctx context.Context, s string) error {
	steps := make([]step, 0, len(s))
	for i := 0; i < len(s); i++ {
		steps = append(steps, step{mode: modeData, data: s[i]})
	}
	return d.run(ctx, steps...)
}

func (d *Display) setIcon(ctx context.Context, address, data byte) error {
	if !d.icons {
		return errors.New("st7032i has no icon row configured")
	}
	return d.run(ctx,
		command(cmdFunctionSet|d.extended, 0),
		command(cmdIconAddress|address, 0),
		step{mode: modeData, data: data},
		command(cmdFunctionSet|d.basic, 0),
	)
}

// Icon turns an icon of the icon row on or off. Icons are numbered 0 through 8: antenna,
// telephone, radio, external power, up, down, key lock, mute and coin.
func (d *Display) Icon(ctx context.Context, number int, on bool) error {
	if number < 0 || number >= len(iconTable) {
		return errors.Errorf("no icon %d", number)
	}
	var data byte
	if on {
		data = iconTable[number][1]
	}
	return d.setIcon(ctx, iconTable[number][0], data)
}

// PowerIcon shows the battery icon with level bars, 0 through 3, or hides it.
func (d *Display) PowerIcon(ctx context.Context, level int, on bool) error {
	if level < 0 || level > 3 {
		return errors.Errorf("battery level %d is outside 0-3", level)
	}
	var data byte
	if on {
		data = 0x02 | []byte{0x00, 0x10, 0x18, 0x1C}[level]
	}
	return d.setIcon(ctx, powerIconAddress, data)
}
