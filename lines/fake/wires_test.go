package fake

import (
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/softi2c/lines"
	"go.viam.com/softi2c/logging"
)

// bitBanger drives the wires the simplest possible way, without any of the master's checks.
type bitBanger struct {
	t *testing.T
	w *Wires
}

func newBitBanger(t *testing.T, w *Wires) *bitBanger {
	test.That(t, w.SetDirection(lines.SCL, lines.Output), test.ShouldBeNil)
	test.That(t, w.SetDirection(lines.SDA, lines.Output), test.ShouldBeNil)
	return &bitBanger{t: t, w: w}
}

func (bb *bitBanger) set(id lines.ID, high bool) {
	test.That(bb.t, bb.w.Drive(id, high), test.ShouldBeNil)
}

func (bb *bitBanger) start() {
	bb.set(lines.SDA, true)
	bb.set(lines.SCL, true)
	bb.set(lines.SDA, false)
	bb.set(lines.SCL, false)
}

func (bb *bitBanger) stop() {
	bb.set(lines.SDA, false)
	bb.set(lines.SCL, true)
	bb.set(lines.SDA, true)
}

// clock sends one bit and returns the level of SDA while SCL was high.
func (bb *bitBanger) clock(high bool) bool {
	bb.set(lines.SDA, high)
	bb.set(lines.SCL, true)
	level, err := bb.w.Level(lines.SDA)
	test.That(bb.t, err, test.ShouldBeNil)
	bb.set(lines.SCL, false)
	return level
}

// xfer sends b, or reads a byte when b is 0xFF, and returns the received bits and the ack bit.
func (bb *bitBanger) xfer(b byte, ack bool) (byte, bool) {
	var in byte
	for i := 7; i >= 0; i-- {
		in <<= 1
		if bb.clock(b>>i&1 == 1) {
			in |= 1
		}
	}
	return in, !bb.clock(!ack)
}

func TestEchoDevice(t *testing.T) {
	w := NewWires()
	w.Attach(0x42, &Echo{Capacity: 2})
	sniffer := w.Sniff()
	bb := newBitBanger(t, w)

	bb.start()
	_, acked := bb.xfer(0x84, false)
	test.That(t, acked, test.ShouldBeTrue)
	for _, b := range []byte{0xA5, 0x0F} {
		_, acked = bb.xfer(b, false)
		test.That(t, acked, test.ShouldBeTrue)
	}
	_, acked = bb.xfer(0x77, false)
	test.That(t, acked, test.ShouldBeFalse)
	bb.stop()

	bb.start()
	_, acked = bb.xfer(0x85, false)
	test.That(t, acked, test.ShouldBeTrue)
	first, _ := bb.xfer(0xFF, true)
	second, _ := bb.xfer(0xFF, false)
	bb.stop()

	test.That(t, first, test.ShouldEqual, byte(0xA5))
	test.That(t, second, test.ShouldEqual, byte(0x0F))
	test.That(t, Transcript(sniffer.Events()), test.ShouldEqual,
		"S 0x84+ 0xa5+ 0x0f+ 0x77- P S 0x85+ 0xa5+ 0x0f- P")
	test.That(t, w.Idle(), test.ShouldBeTrue)
}

func TestRegisterDevice(t *testing.T) {
	w := NewWires()
	regs := NewRegisters(4)
	regs.ReadOnly(0x00)
	target := w.Attach(0x51, regs)
	bb := newBitBanger(t, w)

	bb.start()
	bb.xfer(0xA2, false)
	_, acked := bb.xfer(0x03, false)
	test.That(t, acked, test.ShouldBeTrue)
	bb.xfer(0x11, false)
	bb.xfer(0x22, false)
	bb.stop()

	// The pointer wraps, and stores to the read-only register are dropped.
	test.That(t, regs.Get(0x03), test.ShouldEqual, byte(0x11))
	test.That(t, regs.Get(0x00), test.ShouldEqual, byte(0x00))
	test.That(t, regs.Writes(), test.ShouldResemble, []RegisterWrite{{0x03, 0x11}, {0x00, 0x22}})

	bb.start()
	bb.xfer(0xA2, false)
	_, acked = bb.xfer(0x04, false)
	test.That(t, acked, test.ShouldBeFalse)
	bb.stop()

	bb.start()
	bb.xfer(0xA3, false)
	v, _ := bb.xfer(0xFF, false)
	bb.stop()
	test.That(t, v, test.ShouldEqual, byte(0x00))
	test.That(t, target.MasterAcks(), test.ShouldResemble, []bool{false})
	test.That(t, regs.Transactions(), test.ShouldEqual, 3)
}

func TestUnaddressedTargetStaysQuiet(t *testing.T) {
	w := NewWires()
	w.Attach(0x10, &Echo{})
	bb := newBitBanger(t, w)

	bb.start()
	_, acked := bb.xfer(0x22, false)
	test.That(t, acked, test.ShouldBeFalse)
	bb.xfer(0x00, false)
	bb.stop()
	test.That(t, w.Idle(), test.ShouldBeTrue)
}

func TestHoldAndClose(t *testing.T) {
	w := NewWires()
	w.Hold(lines.SCL, true)
	level, err := w.Level(lines.SCL)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, level, test.ShouldBeFalse)
	w.Hold(lines.SCL, false)
	test.That(t, w.Idle(), test.ShouldBeTrue)

	test.That(t, w.Close(), test.ShouldBeNil)
	_, err = w.Level(lines.SDA)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, w.Drive(lines.SDA, false), test.ShouldNotBeNil)
}

func TestClock(t *testing.T) {
	start := time.Unix(100, 0)
	clk := NewClock(start)
	clk.Sleep(3 * time.Millisecond)
	clk.Sleep(-time.Second)
	test.That(t, clk.Since(start), test.ShouldEqual, 3*time.Millisecond)
	test.That(t, clk.Slept(), test.ShouldEqual, 3*time.Millisecond)
}

func TestConfig(t *testing.T) {
	conf := Config{Devices: []DeviceConfig{
		{Kind: KindRegisters, Address: 0x51, Size: 16, Init: []byte{0x08}},
		{Kind: KindEcho, Address: 0x3E},
	}}
	test.That(t, conf.Validate("lines.attributes"), test.ShouldBeNil)

	w := NewFromConfig(conf, logging.NewTestLogger(t))
	bb := newBitBanger(t, w)
	bb.start()
	bb.xfer(0xA3, false)
	v, _ := bb.xfer(0xFF, false)
	bb.stop()
	test.That(t, v, test.ShouldEqual, byte(0x08))

	conf.Devices = append(conf.Devices, DeviceConfig{Kind: KindEcho, Address: 0x3E})
	err := conf.Validate("lines.attributes")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "used twice")

	conf.Devices = []DeviceConfig{{Address: 0x10}}
	test.That(t, conf.Validate("lines.attributes"), test.ShouldNotBeNil)
}
