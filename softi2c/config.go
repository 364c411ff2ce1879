package softi2c

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// Bus timing defaults, in the units of Config.
const (
	DefaultSetupUS          = 5
	DefaultHoldUS           = 4
	DefaultPollUS           = 1
	DefaultStretchTimeoutMS = 25
)

// Config holds the bus timing and the optional condition checks. The zero value selects the
// defaults.
type Config struct {
	// SetupUS is the delay before each rising clock edge and before a start or stop edge.
	SetupUS int `json:"setup_us,omitempty"`
	// HoldUS is the delay after each rising clock edge and after a start or stop edge.
	HoldUS int `json:"hold_us,omitempty"`
	// PollUS is the interval between clock line samples while a peer stretches the clock.
	PollUS int `json:"poll_us,omitempty"`
	// StretchTimeoutMS bounds every wait for the clock line to rise.
	StretchTimeoutMS int `json:"stretch_timeout_ms,omitempty"`

	// CheckPending makes Start refuse to run while a foreign start, stop or collision is pending.
	CheckPending *bool `json:"check_pending,omitempty"`
	// VerifyConditions makes Start and Stop confirm their condition was seen on the lines.
	VerifyConditions *bool `json:"verify_conditions,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	for _, field := range []struct {
		name string
		val  int
	}{
		{"setup_us", conf.SetupUS},
		{"hold_us", conf.HoldUS},
		{"poll_us", conf.PollUS},
		{"stretch_timeout_ms", conf.StretchTimeoutMS},
	} {
		if field.val < 0 {
			return goutils.NewConfigValidationError(fmt.Sprintf("%s.%s", path, field.name),
				errors.Errorf("must be non-negative, got %d", field.val))
		}
	}
	if conf.PollUS > 0 && conf.StretchTimeoutMS > 0 && conf.PollUS > conf.StretchTimeoutMS*1000 {
		return goutils.NewConfigValidationError(path, errors.New("poll_us exceeds stretch_timeout_ms"))
	}
	return nil
}

type timing struct {
	setup, hold, poll, stretch time.Duration

	checkPending, verify bool
}

func orDefault(val, def int) int {
	if val == 0 {
		return def
	}
	return val
}

func (conf *Config) timing() timing {
	t := timing{
		setup:        time.Duration(orDefault(conf.SetupUS, DefaultSetupUS)) * time.Microsecond,
		hold:         time.Duration(orDefault(conf.HoldUS, DefaultHoldUS)) * time.Microsecond,
		poll:         time.Duration(orDefault(conf.PollUS, DefaultPollUS)) * time.Microsecond,
		stretch:      time.Duration(orDefault(conf.StretchTimeoutMS, DefaultStretchTimeoutMS)) * time.Millisecond,
		checkPending: true,
		verify:       true,
	}
	if conf.CheckPending != nil {
		t.checkPending = *conf.CheckPending
	}
	if conf.VerifyConditions != nil {
		t.verify = *conf.VerifyConditions
	}
	return t
}
