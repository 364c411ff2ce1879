// Package softi2c is a bit-banged two-wire (I2C) bus master. It emulates the status register of a
// hardware shift unit in software: start, stop and collision detection plus a 4-bit edge counter
// that paces the clock/shift primitive shared by byte and acknowledgement phases.
//
// A Master is single-owner and synchronous. Share a bus between goroutines through Bus, whose
// handles hold the bus lock until closed.
package softi2c

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/logging"
)

// RetryLimit bounds the start attempts of one transaction. Only transient statuses are retried.
const RetryLimit = 3

// flags is the emulated status register.
type flags struct {
	start, stop, overflow bool
}

// Master drives the bus lines.
type Master struct {
	lines  lines.Lines
	clk    clock.Clock
	timing timing
	logger logging.Logger
	stats  *Stats

	shift   byte
	counter uint8
	flags   flags
	sdaOut  bool
	sdaPort bool
	sclPort bool
	// Last sampled levels, the baseline for edge detection.
	scl, sda bool
	lineErr  error
}

// NewMaster returns a master over l. A nil clk uses the wall clock. Call Init before use.
func NewMaster(l lines.Lines, clk clock.Clock, conf Config, logger logging.Logger) (*Master, error) {
	if l == nil {
		return nil, errors.New("no lines given")
	}
	if err := conf.Validate("bus"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Master{
		lines:  l,
		clk:    clk,
		timing: conf.timing(),
		logger: logger,
		stats:  &Stats{},
		shift:  0xFF,
	}, nil
}

// Stats returns the live counters of the master.
func (m *Master) Stats() *Stats {
	return m.stats
}

// LineError returns the line adapter error latched since the last Init, if any.
func (m *Master) LineError() error {
	return m.lineErr
}

// Close releases the lines.
func (m *Master) Close() error {
	return m.lines.Close()
}
