// Package config defines the configuration file of the bus tool: which lines to drive, the bus
// timing, the devices on the bus and logging.
package config

import (
	"go.viam.com/softi2c/components/display/st7032i"
	"go.viam.com/softi2c/components/rtc/rtc8564"
	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/logging"
	"go.viam.com/softi2c/softi2c"
)

// Config is the whole configuration file.
type Config struct {
	Lines   lines.Config    `json:"lines"`
	Bus     softi2c.Config  `json:"bus,omitempty"`
	RTC     *rtc8564.Config `json:"rtc,omitempty"`
	Display *st7032i.Config `json:"display,omitempty"`
	Log     logging.Config  `json:"log,omitempty"`

	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Lines.Validate("lines"); err != nil {
		return err
	}
	if err := c.Bus.Validate("bus"); err != nil {
		return err
	}
	if c.RTC != nil {
		if err := c.RTC.Validate("rtc"); err != nil {
			return err
		}
	}
	if c.Display != nil {
		if err := c.Display.Validate("display"); err != nil {
			return err
		}
	}
	return c.Log.Validate("log")
}
