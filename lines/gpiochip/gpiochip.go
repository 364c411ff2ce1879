//go:build linux

package gpiochip

import (
	"sync"

	"github.com/mkch/gpio"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/logging"
	"go.viam.com/softi2c/utils"
)

// Model is the registered model name.
const Model = "gpiochip"

const consumer = "softi2c"

// Config describes which chip and line offsets carry the bus.
type Config struct {
	Chip string `json:"chip"`
	SCL  *int   `json:"scl"`
	SDA  *int   `json:"sda"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Chip == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "chip")
	}
	if conf.SCL == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "scl")
	}
	if conf.SDA == nil {
		return goutils.NewConfigValidationFieldRequiredError(path, "sda")
	}
	if *conf.SCL < 0 || *conf.SDA < 0 {
		return goutils.NewConfigValidationError(path, errors.New("line offsets must be non-negative"))
	}
	if *conf.SCL == *conf.SDA {
		return goutils.NewConfigValidationError(path, errors.Errorf("scl and sda share offset %d", *conf.SCL))
	}
	return nil
}

func init() {
	lines.Register(Model, lines.Registration{
		Attributes: func() lines.Validator { return &Config{} },
		Constructor: func(attrs interface{}, logger logging.Logger) (lines.Lines, error) {
			conf, ok := attrs.(*Config)
			if !ok {
				return nil, utils.NewUnexpectedTypeError((*Config)(nil), attrs)
			}
			return Open(*conf, logger)
		},
	})
}

type line struct {
	offset uint32
	dir    lines.Direction
	latch  bool
	// pulled mirrors the current kernel request: an output driving low.
	pulled bool
	handle *gpio.Line
}

// Lines is an open pair of chardev lines.
type Lines struct {
	mu     sync.Mutex
	chip   *gpio.Chip
	lines  [2]*line
	logger logging.Logger
}

// Open requests both lines from the chip, released.
func Open(conf Config, logger logging.Logger) (*Lines, error) {
	chip, err := gpio.OpenChip(conf.Chip)
	if err != nil {
		return nil, errors.Wrapf(err, "opening gpio chip %s", conf.Chip)
	}
	l := &Lines{
		chip: chip,
		lines: [2]*line{
			lines.SCL: {offset: uint32(*conf.SCL), latch: true},
			lines.SDA: {offset: uint32(*conf.SDA), latch: true},
		},
		logger: logger,
	}
	for id := range l.lines {
		if err := l.request(lines.ID(id)); err != nil {
			return nil, multierr.Combine(err, l.Close())
		}
	}
	logger.Debugw("opened gpio lines", "chip", conf.Chip, "scl", *conf.SCL, "sda", *conf.SDA)
	return l, nil
}

// request (re)opens the kernel line to match the wanted open-drain state. Lock the mutex first.
func (l *Lines) request(id lines.ID) error {
	ln := l.lines[id]
	pull := lines.Pulls(ln.dir, ln.latch)
	if ln.handle != nil && pull == ln.pulled {
		return nil
	}
	if ln.handle != nil {
		if err := ln.handle.Close(); err != nil {
			return errors.Wrapf(err, "releasing %s", id)
		}
		ln.handle = nil
	}
	flags := gpio.Input
	if pull {
		flags = gpio.Output
	}
	handle, err := l.chip.OpenLine(ln.offset, 0, flags, consumer)
	if err != nil {
		return errors.Wrapf(err, "requesting %s at offset %d", id, ln.offset)
	}
	ln.handle = handle
	ln.pulled = pull
	return nil
}

// SetDirection implements lines.Lines.
func (l *Lines) SetDirection(id lines.ID, dir lines.Direction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[id].dir = dir
	return l.request(id)
}

// Drive implements lines.Lines.
func (l *Lines) Drive(id lines.ID, high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[id].latch = high
	return l.request(id)
}

// Level implements lines.Lines.
func (l *Lines) Level(id lines.ID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln := l.lines[id]
	if ln.handle == nil {
		return false, errors.Errorf("%s is closed", id)
	}
	if ln.pulled {
		return false, nil
	}
	value, err := ln.handle.Value()
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", id)
	}
	return value != 0, nil
}

// Close releases both lines and the chip.
func (l *Lines) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs error
	for _, ln := range l.lines {
		if ln.handle != nil {
			errs = multierr.Append(errs, ln.handle.Close())
			ln.handle = nil
		}
	}
	if l.chip != nil {
		errs = multierr.Append(errs, l.chip.Close())
		l.chip = nil
	}
	return errs
}
