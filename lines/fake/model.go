package fake

import (
	"fmt"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/logging"
	"go.viam.com/softi2c/utils"
)

// Model is the registered model name of the simulated bus.
const Model = "fake"

// Device kinds accepted in DeviceConfig.
const (
	KindEcho      = "echo"
	KindRegisters = "registers"
)

// DeviceConfig describes one simulated device.
type DeviceConfig struct {
	Kind    string `json:"kind"`
	Address int    `json:"address"`
	// Size of a register file, 256 when unset.
	Size int `json:"size,omitempty"`
	// Init preloads a register file from register 0.
	Init []byte `json:"init,omitempty"`
}

// Config lists the devices on the simulated bus.
type Config struct {
	Devices []DeviceConfig `json:"devices,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (conf *Config) Validate(path string) error {
	seen := map[int]bool{}
	for idx, dev := range conf.Devices {
		devPath := fmt.Sprintf("%s.%s.%d", path, "devices", idx)
		switch dev.Kind {
		case KindEcho, KindRegisters:
		case "":
			return goutils.NewConfigValidationFieldRequiredError(devPath, "kind")
		default:
			return goutils.NewConfigValidationError(devPath, errors.Errorf("unknown device kind %q", dev.Kind))
		}
		if dev.Address < 0 || dev.Address > 0x7f {
			return goutils.NewConfigValidationError(devPath, errors.Errorf("address %#x is not 7-bit", dev.Address))
		}
		if seen[dev.Address] {
			return goutils.NewConfigValidationError(devPath, errors.Errorf("address %#x used twice", dev.Address))
		}
		seen[dev.Address] = true
		if dev.Size < 0 || dev.Size > 256 || len(dev.Init) > 256 {
			return goutils.NewConfigValidationError(devPath, errors.New("register file is limited to 256 bytes"))
		}
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
			return NewFromConfig(*conf, logger), nil
		},
	})
}

// NewFromConfig builds a simulated bus with the configured devices attached.
func NewFromConfig(conf Config, logger logging.Logger) *Wires {
	w := NewWires()
	for _, dev := range conf.Devices {
		addr := byte(dev.Address)
		switch dev.Kind {
		case KindEcho:
			w.Attach(addr, &Echo{})
		case KindRegisters:
			regs := NewRegisters(dev.Size)
			for i, b := range dev.Init {
				regs.Set(byte(i), b)
			}
			w.Attach(addr, regs)
		}
		logger.Debugw("simulated device attached", "kind", dev.Kind, "addr", fmt.Sprintf("0x%02x", addr))
	}
	return w
}
