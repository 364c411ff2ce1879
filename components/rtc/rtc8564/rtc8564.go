// Package rtc8564 implements a driver for the Seiko Epson RTC-8564 real time clock.
// datasheet can be found at: https://support.epson.biz/td/api/doc_check.php?dl=app_RTC-8564NB
package rtc8564

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/softi2c/buses"
	"go.viam.com/softi2c/logging"
)

// DefaultAddress is the fixed bus address of the chip.
const DefaultAddress = 0x51

// Register map.
const (
	regControl1 byte = iota
	regControl2
	regSeconds
	regMinutes
	regHours
	regDays
	regWeekdays
	regMonths
	regYears
	regMinuteAlarm
	regHourAlarm
	regDayAlarm
	regWeekdayAlarm
	regClkOut
	regTimerControl
	regTimer
)

// Control bits.
const (
	control1Test = 0x88
	control1Stop = 0x20

	control2TimerIntEnable = 0x01
	control2AlarmIntEnable = 0x02
	control2TimerFlag      = 0x04
	control2AlarmFlag      = 0x08
	control2TimerPulse     = 0x10

	timerEnable   = 0x80
	timerClockSrc = 0x03

	clkOutEnable = 0x80
	clkOutFreq   = 0x03

	voltageLow  = 0x80
	centuryFlag = 0x80
	alarmOff    = 0x80
)

// ClkOutFreq selects the frequency of the CLKOUT pin.
type ClkOutFreq uint8

// CLKOUT frequencies. Freq0 disables the output.
const (
	Freq32768 ClkOutFreq = iota
	Freq1024
	Freq32
	Freq1
	Freq0
)

// TimerSource is the countdown timer source clock.
type TimerSource uint8

// Countdown timer source clocks.
const (
	Timer4096Hz TimerSource = iota
	Timer64Hz
	TimerSecond
	TimerMinute
)

// Config is used for converting config attributes.
type Config struct {
	Address int `json:"address,omitempty"`
	// Alarms enables the alarm and countdown timer API.
	Alarms bool `json:"alarms,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	if conf.Address < 0 || conf.Address > 0x7f {
		return goutils.NewConfigValidationError(path, errors.Errorf("address %#x is not 7-bit", conf.Address))
	}
	return nil
}

// Clock is the calendar part of the chip.
type Clock interface {
	// Init loads every register with its reset value and starts the clock.
	Init(ctx context.Context) error
	// PowerOn waits for the oscillator to stabilize after power up, then runs Init.
	PowerOn(ctx context.Context) error
	// BackupReturn checks the voltage low flag after running on backup power and runs PowerOn if
	// the time was lost. It reports whether it did.
	BackupReturn(ctx context.Context) (bool, error)
	// Adjust sets the clock to t in UTC. Years from 2000 through 2199 are supported.
	Adjust(ctx context.Context, t time.Time) error
	// Now reads the clock, in UTC.
	Now(ctx context.Context) (time.Time, error)
	SetClkOut(ctx context.Context, freq ClkOutFreq) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// AlarmField is one compared field of an alarm. Any makes the field match every value.
type AlarmField struct {
	Value uint8
	Any   bool
}

// Alarm fires when every field not marked Any matches the clock.
type Alarm struct {
	Minute  AlarmField
	Hour    AlarmField
	Day     AlarmField
	Weekday AlarmField
}

// Alarms is implemented by clocks configured with alarm support.
type Alarms interface {
	// SetTimer starts the countdown timer. With repeat the timer reloads and pulses /INT, otherwise
	// it fires once. interruptOut enables the /INT output.
	SetTimer(ctx context.Context, src TimerSource, count uint8, repeat, interruptOut bool) error
	StopTimer(ctx context.Context) error
	// ClearTimer clears the timer flag.
	ClearTimer(ctx context.Context) error
	SetAlarm(ctx context.Context, alarm Alarm) error
	Alarm(ctx context.Context) (Alarm, error)
	// StopAlarm disables every alarm field and the alarm interrupt, keeping the values.
	StopAlarm(ctx context.Context) error
	// ClearAlarm clears the alarm flag.
	ClearAlarm(ctx context.Context) error
	// Flags reports the timer and alarm flags.
	Flags(ctx context.Context) (timer, alarm bool, err error)
}

// rtc8564 is the driver without the alarm API.
type rtc8564 struct {
	bus    buses.I2C
	addr   byte
	clk    clock.Clock
	logger logging.Logger
}

type rtc8564WithAlarms struct {
	*rtc8564
}

var (
	_ Clock  = (*rtc8564)(nil)
	_ Alarms = rtc8564WithAlarms{}
)

// New returns a driver for the chip on bus. The result implements Alarms when conf.Alarms is set.
// A nil clk uses the wall clock.
func New(bus buses.I2C, conf Config, clk clock.Clock, logger logging.Logger) (Clock, error) {
	if err := conf.Validate("rtc"); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	addr := conf.Address
	if addr == 0 {
		addr = DefaultAddress
	}
	r := &rtc8564{bus: bus, addr: byte(addr), clk: clk, logger: logger}
	if conf.Alarms {
		return rtc8564WithAlarms{r}, nil
	}
	return r, nil
}

// withHandle runs fn with the bus held. Every step of fn must succeed for the next to run.
func (r *rtc8564) withHandle(op string, fn func(h buses.I2CHandle) error) error {
	handle, err := r.bus.OpenHandle(r.addr)
	if err != nil {
		return err
	}
	defer func() {
		if err := handle.Close(); err != nil {
			r.logger.Error(err)
		}
	}()
	if err := fn(handle); err != nil {
		return errors.Wrapf(err, "rtc8564 %s", op)
	}
	return nil
}

func (r *rtc8564) register(h buses.I2CHandle, reg byte) *buses.I2CRegister {
	return &buses.I2CRegister{Handle: h, Register: reg}
}

func (r *rtc8564) Init(ctx context.Context) error {
	return r.withHandle("init", func(h buses.I2CHandle) error {
		return h.Write(ctx, []byte{
			regControl1,
			control1Stop, // control 1
			0x00,         // control 2
			0x00,         // seconds
			0x00,         // minutes
			0x00,         // hours
			0x01,         // days
			0x01,         // weekdays
			0x01,         // months
			0x01,         // years
			alarmOff,     // minute alarm
			alarmOff,     // hour alarm
			alarmOff,     // day alarm
			alarmOff,     // weekday alarm
			0x00,         // clkout
			0x00,         // timer control
			0x00,         // timer
			0x00,         // control 1 again after the pointer wraps: start
		})
	})
}

func (r *rtc8564) PowerOn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.clk.Sleep(time.Second)
	return r.Init(ctx)
}

func (r *rtc8564) BackupReturn(ctx context.Context) (bool, error) {
	var seconds byte
	err := r.withHandle("backup return", func(h buses.I2CHandle) error {
		var err error
		seconds, err = h.ReadByteData(ctx, regSeconds)
		return err
	})
	if err != nil {
		return false, err
	}
	if seconds&voltageLow == 0 {
		return false, nil
	}
	r.logger.Warn("rtc8564 lost its time on backup power, reinitializing")
	return true, r.PowerOn(ctx)
}

func (r *rtc8564) Adjust(ctx context.Context, t time.Time) error {
	t = t.UTC()
	year := t.Year()
	if year < 2000 || year > 2199 {
		return errors.Errorf("rtc8564 cannot hold year %d", year)
	}
	month := toBCD(uint8(t.Month()))
	if year >= 2100 {
		month |= centuryFlag
	}
	return r.withHandle("adjust", func(h buses.I2CHandle) error {
		if err := r.register(h, regControl1).MaskedSet(ctx, control1Test|control1Stop, control1Stop); err != nil {
			return err
		}
		err := h.WriteBlockData(ctx, regSeconds, []byte{
			toBCD(uint8(t.Second())),
			toBCD(uint8(t.Minute())),
			toBCD(uint8(t.Hour())),
			toBCD(uint8(t.Day())),
			toBCD(uint8(t.Weekday())),
			month,
			toBCD(uint8(year % 100)),
		})
		if err != nil {
			return err
		}
		return r.register(h, regControl1).ClearBits(ctx, control1Test|control1Stop)
	})
}

func (r *rtc8564) Now(ctx context.Context) (time.Time, error) {
	var data []byte
	err := r.withHandle("now", func(h buses.I2CHandle) error {
		var err error
		data, err = h.ReadBlockData(ctx, regSeconds, 7)
		return err
	})
	if err != nil {
		return time.Time{}, err
	}
	year := 2000 + int(fromBCD(data[6]))
	if data[5]&centuryFlag != 0 {
		year += 100
	}
	return time.Date(
		year,
		time.Month(fromBCD(data[5]&0x1F)),
		int(fromBCD(data[3]&0x3F)),
		int(fromBCD(data[2]&0x3F)),
		int(fromBCD(data[1]&0x7F)),
		int(fromBCD(data[0]&0x7F)),
		0, time.UTC), nil
}

func (r *rtc8564) SetClkOut(ctx context.Context, freq ClkOutFreq) error {
	if freq > Freq0 {
		return errors.Errorf("invalid clkout frequency %d", freq)
	}
	return r.withHandle("set clkout", func(h buses.I2CHandle) error {
		reg := r.register(h, regClkOut)
		if freq == Freq0 {
			return reg.ClearBits(ctx, clkOutEnable)
		}
		return reg.MaskedSet(ctx, clkOutEnable|clkOutFreq, clkOutEnable|byte(freq))
	})
}

func (r *rtc8564) Start(ctx context.Context) error {
	return r.withHandle("start", func(h buses.I2CHandle) error {
		return r.register(h, regControl1).ClearBits(ctx, control1Test|control1Stop)
	})
}

func (r *rtc8564) Stop(ctx context.Context) error {
	return r.withHandle("stop", func(h buses.I2CHandle) error {
		return r.register(h, regControl1).MaskedSet(ctx, control1Test|control1Stop, control1Stop)
	})
}

func (r rtc8564WithAlarms) SetTimer(ctx context.Context, src TimerSource, count uint8, repeat, interruptOut bool) error {
	if src > TimerMinute {
		return errors.Errorf("invalid timer source %d", src)
	}
	return r.withHandle("set timer", func(h buses.I2CHandle) error {
		timerCtl, control2 := r.register(h, regTimerControl), r.register(h, regControl2)
		if err := timerCtl.ClearBits(ctx, timerEnable); err != nil {
			return err
		}
		if err := control2.ClearBits(ctx, control2TimerFlag|control2TimerIntEnable); err != nil {
			return err
		}
		var bits byte
		if repeat {
			bits |= control2TimerPulse
		}
		if interruptOut {
			bits |= control2TimerIntEnable
		}
		if err := control2.MaskedSet(ctx, control2TimerPulse|control2TimerIntEnable, bits); err != nil {
			return err
		}
		if err := timerCtl.MaskedSet(ctx, timerClockSrc, byte(src)); err != nil {
			return err
		}
		if err := h.WriteByteData(ctx, regTimer, count); err != nil {
			return err
		}
		return timerCtl.SetBits(ctx, timerEnable)
	})
}

func (r rtc8564WithAlarms) StopTimer(ctx context.Context) error {
	return r.withHandle("stop timer", func(h buses.I2CHandle) error {
		if err := r.register(h, regTimerControl).ClearBits(ctx, timerEnable); err != nil {
			return err
		}
		return r.register(h, regControl2).ClearBits(ctx, control2TimerFlag|control2TimerIntEnable)
	})
}

func (r rtc8564WithAlarms) ClearTimer(ctx context.Context) error {
	return r.withHandle("clear timer", func(h buses.I2CHandle) error {
		return r.register(h, regControl2).ClearBits(ctx, control2TimerFlag)
	})
}

func (r rtc8564WithAlarms) SetAlarm(ctx context.Context, alarm Alarm) error {
	fields := []AlarmField{alarm.Minute, alarm.Hour, alarm.Day, alarm.Weekday}
	data := make([]byte, len(fields))
	for i, field := range fields {
		data[i] = field.encode()
	}
	return r.withHandle("set alarm", func(h buses.I2CHandle) error {
		if err := h.WriteBlockData(ctx, regMinuteAlarm, []byte{alarmOff, alarmOff, alarmOff, alarmOff}); err != nil {
			return err
		}
		control2 := r.register(h, regControl2)
		if err := control2.ClearBits(ctx, control2AlarmFlag|control2AlarmIntEnable); err != nil {
			return err
		}
		if err := h.WriteBlockData(ctx, regMinuteAlarm, data); err != nil {
			return err
		}
		return control2.SetBits(ctx, control2AlarmIntEnable)
	})
}

func (r rtc8564WithAlarms) Alarm(ctx context.Context) (Alarm, error) {
	var alarm Alarm
	err := r.withHandle("read alarm", func(h buses.I2CHandle) error {
		var err error
		alarm, err = readAlarm(ctx, h)
		return err
	})
	return alarm, err
}

func readAlarm(ctx context.Context, h buses.I2CHandle) (Alarm, error) {
	data, err := h.ReadBlockData(ctx, regMinuteAlarm, 4)
	if err != nil {
		return Alarm{}, err
	}
	return Alarm{
		Minute:  decodeAlarmField(data[0], 0x7F),
		Hour:    decodeAlarmField(data[1], 0x3F),
		Day:     decodeAlarmField(data[2], 0x3F),
		Weekday: decodeAlarmField(data[3], 0x07),
	}, nil
}

func (r rtc8564WithAlarms) StopAlarm(ctx context.Context) error {
	return r.withHandle("stop alarm", func(h buses.I2CHandle) error {
		if err := r.register(h, regControl2).ClearBits(ctx, control2AlarmFlag|control2AlarmIntEnable); err != nil {
			return err
		}
		alarm, err := readAlarm(ctx, h)
		if err != nil {
			return err
		}
		data := make([]byte, 4)
		for i, field := range []AlarmField{alarm.Minute, alarm.Hour, alarm.Day, alarm.Weekday} {
			field.Any = true
			data[i] = field.encode()
		}
		return h.WriteBlockData(ctx, regMinuteAlarm, data)
	})
}

func (r rtc8564WithAlarms) ClearAlarm(ctx context.Context) error {
	return r.withHandle("clear alarm", func(h buses.I2CHandle) error {
		return r.register(h, regControl2).ClearBits(ctx, control2AlarmFlag)
	})
}

func (r rtc8564WithAlarms) Flags(ctx context.Context) (bool, bool, error) {
	var control2 byte
	err := r.withHandle("read flags", func(h buses.I2CHandle) error {
		var err error
		control2, err = h.ReadByteData(ctx, regControl2)
		return err
	})
	if err != nil {
		return false, false, err
	}
	return control2&control2TimerFlag != 0, control2&control2AlarmFlag != 0, nil
}

func (f AlarmField) encode() byte {
	b := toBCD(f.Value & 0x7F)
	if f.Any {
		b |= alarmOff
	}
	return b
}

func decodeAlarmField(b, mask byte) AlarmField {
	return AlarmField{Value: fromBCD(b & mask), Any: b&alarmOff != 0}
}

func (f AlarmField) String() string {
	if f.Any {
		return "*"
	}
	return fmt.Sprintf("%02d", f.Value)
}

func toBCD(d uint8) byte {
	return d/10<<4 | d%10
}

func fromBCD(b byte) uint8 {
	return b>>4*10 + b&0x0F
}

// Weekday returns the day of the week of a Gregorian date without going through time.Time.
// It matches the encoding of the weekday register, Sunday being 0.
func Weekday(year, month, day int) time.Weekday {
	if month == 1 || month == 2 {
		year--
		month += 12
	}
	century := year / 100
	return time.Weekday((year + year/4 - century + century/4 + (13*month+8)/5 + day) % 7)
}
