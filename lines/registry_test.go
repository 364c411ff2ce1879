package lines_test

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/lines/fake"
	"go.viam.com/softi2c/logging"
)

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		cfg      lines.Config
		contains string
	}{
		{
			name:     "missing model",
			cfg:      lines.Config{},
			contains: `"model" is required`,
		},
		{
			name:     "unknown model",
			cfg:      lines.Config{Model: "parport"},
			contains: "unknown line model",
		},
		{
			name: "unknown attribute",
			cfg: lines.Config{Model: fake.Model, Attributes: lines.AttributeMap{
				"wires": 2,
			}},
			contains: "lines.attributes",
		},
		{
			name: "bad device",
			cfg: lines.Config{Model: fake.Model, Attributes: lines.AttributeMap{
				"devices": []interface{}{map[string]interface{}{"kind": "echo", "address": 0x90}},
			}},
			contains: "lines.attributes.devices.0",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate("lines")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestNew(t *testing.T) {
	test.That(t, lines.Models(), test.ShouldContain, fake.Model)

	cfg := lines.Config{Model: fake.Model, Attributes: lines.AttributeMap{
		"devices": []interface{}{
			map[string]interface{}{"kind": "registers", "address": "0x51", "size": 16, "init": []interface{}{1, 2}},
		},
	}}
	test.That(t, cfg.Validate("lines"), test.ShouldBeNil)

	l, err := lines.New(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	wires, ok := l.(*fake.Wires)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, wires.Idle(), test.ShouldBeTrue)
	test.That(t, l.Close(), test.ShouldBeNil)
}

func TestTransformAttributeMapToStruct(t *testing.T) {
	var conf fake.Config
	err := lines.TransformAttributeMapToStruct(&conf, lines.AttributeMap{
		"devices": []interface{}{map[string]interface{}{"kind": "echo", "address": 62}},
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Devices, test.ShouldResemble, []fake.DeviceConfig{{Kind: "echo", Address: 62}})
}

func TestPulls(t *testing.T) {
	test.That(t, lines.Pulls(lines.Output, false), test.ShouldBeTrue)
	test.That(t, lines.Pulls(lines.Output, true), test.ShouldBeFalse)
	test.That(t, lines.Pulls(lines.Input, false), test.ShouldBeFalse)
	test.That(t, lines.SDA.String(), test.ShouldEqual, "SDA")
}
