package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/softi2c/config"
	"go.viam.com/softi2c/lines/fake"
)

const sampleConfig = `{
	// simulated bus with a clock chip and a display
	"lines": {
		"model": "fake",
		"attributes": {
			"devices": [
				{"kind": "registers", "address": ${RTC_ADDR}, "size": 16},
				{"kind": "registers", "address": 62},
			],
		},
	},
	"bus": {"setup_us": 10, "stretch_timeout_ms": 50, "check_pending": false},
	"rtc": {"alarms": true},
	"display": {"contrast": 30, "lines": 2},
	"log": {"level": "debug"},
}`

func TestRead(t *testing.T) {
	t.Setenv("RTC_ADDR", "81")
	path := filepath.Join(t.TempDir(), "softi2c.json")
	test.That(t, os.WriteFile(path, []byte(sampleConfig), 0o600), test.ShouldBeNil)

	cfg, err := config.Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Lines.Model, test.ShouldEqual, fake.Model)
	test.That(t, cfg.Bus.SetupUS, test.ShouldEqual, 10)
	test.That(t, cfg.Bus.StretchTimeoutMS, test.ShouldEqual, 50)
	test.That(t, cfg.Bus.CheckPending, test.ShouldNotBeNil)
	test.That(t, *cfg.Bus.CheckPending, test.ShouldBeFalse)
	test.That(t, cfg.Bus.VerifyConditions, test.ShouldBeNil)
	test.That(t, cfg.RTC, test.ShouldNotBeNil)
	test.That(t, cfg.RTC.Alarms, test.ShouldBeTrue)
	test.That(t, cfg.Display.Contrast, test.ShouldEqual, 30)
	test.That(t, cfg.Log.Level, test.ShouldEqual, "debug")

	test.That(t, cfg.Lines.Validate("lines"), test.ShouldBeNil)
	devices, ok := cfg.Lines.Attributes["devices"].([]interface{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, devices, test.ShouldHaveLength, 2)

	_, err = config.Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromReaderInvalid(t *testing.T) {
	for _, tc := range []struct {
		name     string
		json     string
		contains string
	}{
		{"malformed", `{"lines": `, "failed to decode"},
		{"no lines", `{}`, `"model" is required`},
		{"bad bus", `{"lines": {"model": "fake"}, "bus": {"hold_us": -1}}`, "bus.hold_us"},
		{"bad rtc", `{"lines": {"model": "fake"}, "rtc": {"address": 300}}`, "rtc"},
		{"bad display", `{"lines": {"model": "fake"}, "display": {"lines": 9}}`, "display"},
		{"bad log", `{"lines": {"model": "fake"}, "log": {"level": "chatty"}}`, "log.level"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.FromReader("", strings.NewReader(tc.json))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestSchema(t *testing.T) {
	out, err := json.Marshal(config.Schema())
	test.That(t, err, test.ShouldBeNil)
	for _, field := range []string{"lines", "stretch_timeout_ms", "alarms", "contrast", "level"} {
		test.That(t, string(out), test.ShouldContainSubstring, field)
	}

	schemas := config.LineModelSchemas()
	test.That(t, schemas, test.ShouldContainKey, fake.Model)
	out, err = json.Marshal(schemas[fake.Model])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, "devices")
}
