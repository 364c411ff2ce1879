package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/softi2c/components/display/st7032i"
	"go.viam.com/softi2c/components/rtc/rtc8564"
	"go.viam.com/softi2c/config"
	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/lines/fake"
	// register every line model.
	_ "go.viam.com/softi2c/lines/register"
	"go.viam.com/softi2c/logging"
	"go.viam.com/softi2c/softi2c"
)

const (
	busName = "softi2c"

	simEchoAddress = 0x42
)

// state is shared by the hooks and actions of one run of the app.
type state struct {
	logger    logging.Logger
	logCloser io.Closer
	conf      *config.Config
	sim       bool
	periph    int

	clk    clock.Clock
	bus    *softi2c.Bus
	master *softi2c.Master
}

func (st *state) before(c *cli.Context) error {
	st.sim = c.Bool(flagSim)
	st.periph = c.Int(flagPeriph)

	conf := &config.Config{}
	if path := c.String(flagConfig); path != "" {
		var err error
		if conf, err = config.Read(path); err != nil {
			return err
		}
	}
	if st.sim {
		conf.Lines = simLines()
	}
	st.conf = conf

	if c.Bool(flagDebug) {
		c.Context = logging.EnableDebugMode(c.Context, busName)
	}
	if st.logger != nil {
		return nil
	}
	if c.Bool(flagDebug) {
		st.logger = logging.NewDebugLogger(busName)
		return nil
	}
	logger, closer, err := logging.NewLoggerFromConfig(busName, conf.Log)
	if err != nil {
		return err
	}
	st.logger = logger
	st.logCloser = closer
	return nil
}

func (st *state) after(c *cli.Context) error {
	var err error
	if st.bus != nil {
		if st.periph >= 0 {
			err = multierr.Combine(err, softi2c.UnregisterPeriph(st.bus))
		}
		err = multierr.Combine(err, st.bus.Close())
		st.bus = nil
	}
	if st.logCloser != nil {
		err = multierr.Combine(err, st.logCloser.Close())
	}
	return err
}

// simLines describes the simulated bus: register files where the RTC and the display live and an
// echo device.
func simLines() lines.Config {
	return lines.Config{
		Model: fake.Model,
		Attributes: lines.AttributeMap{
			"devices": []interface{}{
				map[string]interface{}{"kind": fake.KindEcho, "address": simEchoAddress},
				map[string]interface{}{"kind": fake.KindRegisters, "address": rtc8564.DefaultAddress, "size": 16},
				map[string]interface{}{"kind": fake.KindRegisters, "address": st7032i.DefaultAddress},
			},
		},
	}
}

// openBus opens the configured lines once per run.
func (st *state) openBus() (*softi2c.Bus, error) {
	if st.bus != nil {
		return st.bus, nil
	}
	if st.conf.Lines.Model == "" {
		return nil, errors.Errorf("no lines configured, use --%s or --%s", flagConfig, flagSim)
	}
	l, err := lines.New(st.conf.Lines, st.logger)
	if err != nil {
		return nil, err
	}
	if st.sim {
		st.clk = fake.NewClock(time.Now())
	}
	m, err := softi2c.NewMaster(l, st.clk, st.conf.Bus, st.logger.Sublogger("master"))
	if err != nil {
		return nil, multierr.Combine(err, l.Close())
	}
	bus := softi2c.NewBus(busName, m, st.logger.Sublogger("bus"))
	if st.periph >= 0 {
		if err := softi2c.RegisterPeriph(bus, st.periph); err != nil {
			return nil, multierr.Combine(err, bus.Close())
		}
	}
	st.master = m
	st.bus = bus
	return bus, nil
}

func (st *state) openRTC() (rtc8564.Clock, error) {
	bus, err := st.openBus()
	if err != nil {
		return nil, err
	}
	conf := rtc8564.Config{}
	if st.conf.RTC != nil {
		conf = *st.conf.RTC
	}
	return rtc8564.New(bus, conf, st.clk, st.logger.Sublogger("rtc"))
}

func (st *state) openDisplay() (*st7032i.Display, error) {
	bus, err := st.openBus()
	if err != nil {
		return nil, err
	}
	conf := st7032i.Config{}
	if st.conf.Display != nil {
		conf = *st.conf.Display
	}
	return st7032i.New(bus, conf, st.clk, st.logger.Sublogger("display"))
}

func printf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, format+"\n", a...)
}
