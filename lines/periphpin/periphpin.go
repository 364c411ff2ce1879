// Package periphpin drives the bus lines through periph.io GPIO pins. A released line is an input
// with the pull-up enabled, a pulled line is an output driving low.
package periphpin

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/logging"
	"go.viam.com/softi2c/utils"
)

// Model is the registered model name.
const Model = "periph"

// Config names the pins by their gpioreg names, e.g. "GPIO23".
type Config struct {
	SCL string `json:"scl"`
	SDA string `json:"sda"`
	// NoPullUp skips enabling the internal pull-ups, for boards with external resistors.
	NoPullUp bool `json:"no_pull_up,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.SCL == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "scl")
	}
	if conf.SDA == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "sda")
	}
	if conf.SCL == conf.SDA {
		return goutils.NewConfigValidationError(path, errors.Errorf("scl and sda are both %q", conf.SCL))
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

type pin struct {
	gpio.PinIO
	dir   lines.Direction
	latch bool
}

// Lines is a pair of periph pins.
type Lines struct {
	mu   sync.Mutex
	pins [2]*pin
	pull gpio.Pull
}

// Open initializes the periph host drivers and looks up both pins.
func Open(conf Config, logger logging.Logger) (*Lines, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing periph host")
	}
	l := &Lines{pull: gpio.PullUp}
	if conf.NoPullUp {
		l.pull = gpio.Float
	}
	for id, name := range map[lines.ID]string{lines.SCL: conf.SCL, lines.SDA: conf.SDA} {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, errors.Errorf("no gpio pin named %q for %s", name, id)
		}
		l.pins[id] = &pin{PinIO: p, latch: true}
		if err := l.apply(id); err != nil {
			return nil, err
		}
	}
	logger.Debugw("opened periph pins", "scl", conf.SCL, "sda", conf.SDA)
	return l, nil
}

// apply pushes the open-drain state of a line to its pin. Lock the mutex first.
func (l *Lines) apply(id lines.ID) error {
	p := l.pins[id]
	var err error
	if lines.Pulls(p.dir, p.latch) {
		err = p.Out(gpio.Low)
	} else {
		err = p.In(l.pull, gpio.NoEdge)
	}
	return errors.Wrapf(err, "setting %s", id)
}

// SetDirection implements lines.Lines.
func (l *Lines) SetDirection(id lines.ID, dir lines.Direction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pins[id].dir = dir
	return l.apply(id)
}

// Drive implements lines.Lines.
func (l *Lines) Drive(id lines.ID, high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pins[id].latch = high
	return l.apply(id)
}

// Level implements lines.Lines.
func (l *Lines) Level(id lines.ID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pins[id].Read() == gpio.High, nil
}

// Close releases both lines and halts the pins.
func (l *Lines) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs error
	for id, p := range l.pins {
		if p == nil {
			continue
		}
		errs = multierr.Combine(errs,
			errors.Wrapf(p.In(gpio.Float, gpio.NoEdge), "releasing %s", lines.ID(id)),
			p.Halt())
	}
	return errs
}
