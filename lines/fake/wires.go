// Package fake simulates a two-wire bus: open-drain wired-AND lines, bit-level target devices,
// a passive sniffer and a stepping clock. It implements lines.Lines for the master side.
package fake

import (
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/softi2c/lines"
)

// listener observes every settled transition of the bus. sclBefore/sdaBefore are the levels
// before the transition. Targets answer through pulls; the sniffer never pulls.
type listener interface {
	edge(sclBefore, sdaBefore, scl, sda bool)
	pulls(id lines.ID) bool
}

// Wires is a simulated bus. The zero value is not usable, call NewWires.
type Wires struct {
	mu sync.Mutex

	dir   [2]lines.Direction
	latch [2]bool
	hold  [2]bool

	scl, sda bool

	listeners []listener
	targets   map[byte]*Target
	rises     int
	closed    bool
}

// NewWires returns an idle bus with both master lines released.
func NewWires() *Wires {
	return &Wires{
		latch:   [2]bool{true, true},
		scl:     true,
		sda:     true,
		targets: map[byte]*Target{},
	}
}

// Attach connects a device at a 7-bit address and returns its bus-facing target.
func (w *Wires) Attach(addr byte, dev Device) *Target {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := newTarget(addr&0x7f, dev)
	w.targets[addr&0x7f] = t
	w.listeners = append(w.listeners, t)
	return t
}

// Sniff connects a passive sniffer.
func (w *Wires) Sniff() *Sniffer {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := &Sniffer{}
	w.listeners = append(w.listeners, s)
	return s
}

// Hold pulls a line low from outside the master, like a stuck or stretching peer. Releasing it
// lets the line rise again.
func (w *Wires) Hold(id lines.ID, low bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hold[id] = low
	w.settle()
}

// Idle reports whether both lines read high.
func (w *Wires) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scl && w.sda
}

// ClockRises counts the rising edges of SCL so far.
func (w *Wires) ClockRises() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rises
}

// SetDirection implements lines.Lines.
func (w *Wires) SetDirection(id lines.ID, dir lines.Direction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("wires closed")
	}
	w.dir[id] = dir
	w.settle()
	return nil
}

// Drive implements lines.Lines.
func (w *Wires) Drive(id lines.ID, high bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("wires closed")
	}
	w.latch[id] = high
	w.settle()
	return nil
}

// Level implements lines.Lines.
func (w *Wires) Level(id lines.ID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false, errors.New("wires closed")
	}
	if id == lines.SCL {
		return w.scl, nil
	}
	return w.sda, nil
}

// Close implements lines.Lines.
func (w *Wires) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *Wires) resolve(id lines.ID) bool {
	if w.hold[id] || lines.Pulls(w.dir[id], w.latch[id]) {
		return false
	}
	for _, l := range w.listeners {
		if l.pulls(id) {
			return false
		}
	}
	return true
}

// settle applies level changes one line at a time, SCL first, notifying listeners of each, until
// no listener reacts any further.
func (w *Wires) settle() {
	const maxRounds = 16
	for range maxRounds {
		scl, sda := w.resolve(lines.SCL), w.resolve(lines.SDA)
		switch {
		case scl != w.scl:
			sclBefore := w.scl
			w.scl = scl
			if scl {
				w.rises++
			}
			w.notify(sclBefore, w.sda)
		case sda != w.sda:
			sdaBefore := w.sda
			w.sda = sda
			w.notify(w.scl, sdaBefore)
		default:
			return
		}
	}
	panic(errors.New("simulated bus did not settle"))
}

func (w *Wires) notify(sclBefore, sdaBefore bool) {
	for _, l := range w.listeners {
		l.edge(sclBefore, sdaBefore, w.scl, w.sda)
	}
}
