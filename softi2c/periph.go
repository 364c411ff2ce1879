package softi2c

import (
	"context"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

var _ i2c.BusCloser = (*Bus)(nil)

// Tx implements i2c.Bus: write w, then read into r after a repeated start. Only 7-bit addresses
// are supported.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return errors.Wrapf(ErrInvalidAddress, "0x%x", addr)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tx(context.Background(), "tx", byte(addr), w, r)
}

// SetSpeed implements i2c.Bus. Half of the clock period goes to each of the setup and hold
// delays; line access overhead makes the real clock slower.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f <= 0 {
		return errors.Errorf("invalid bus speed %s", f)
	}
	half := f.Period() / 2
	if half <= 0 {
		return errors.Errorf("bus speed %s is too fast", f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.master.timing.setup = half
	b.master.timing.hold = half
	b.logger.Debugw("bus speed set", "speed", f.String(), "half_period", half)
	return nil
}

// String implements i2c.Bus.
func (b *Bus) String() string {
	return b.name
}

// periphView lets periph users open the bus without owning it.
type periphView struct {
	*Bus
}

func (periphView) Close() error {
	return nil
}

// RegisterPeriph publishes the bus in the periph i2creg registry under its name, so that periph
// device drivers can open it with i2creg.Open. Closing such an opened bus does not close b.
func RegisterPeriph(b *Bus, number int) error {
	return i2creg.Register(b.name, nil, number, func() (i2c.BusCloser, error) {
		return periphView{b}, nil
	})
}

// UnregisterPeriph removes the bus from the periph registry.
func UnregisterPeriph(b *Bus) error {
	return i2creg.Unregister(b.name)
}
