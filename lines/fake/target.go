package fake

import (
	"sync"

	"go.viam.com/softi2c/lines"
)

// Device is the byte-level behavior behind a simulated target address.
type Device interface {
	// Start is called when the target is addressed, including on a repeated start.
	Start(read bool)
	// Write receives a byte from the master and returns whether to acknowledge it.
	Write(b byte) bool
	// Read supplies the next byte for the master.
	Read() byte
	// Stop is called on a stop condition after the target was addressed.
	Stop()
}

type targetState int

const (
	stateIdle targetState = iota
	stateAddrBits
	stateAddrAck
	stateRxBits
	stateRxAck
	stateTxBits
	stateTxAck
	stateIgnore
)

// Target is the bit-level bus interface of a simulated device. It samples SDA on rising SCL and
// changes SDA only while SCL is low.
type Target struct {
	addr byte
	dev  Device

	state     targetState
	shift     byte
	bits      int
	read      bool
	addressed bool
	sdaLow    bool
	masterAck bool

	mu   sync.Mutex
	acks []bool
}

func newTarget(addr byte, dev Device) *Target {
	return &Target{addr: addr, dev: dev}
}

// Address returns the 7-bit address of the target.
func (t *Target) Address() byte {
	return t.addr
}

// MasterAcks returns the acknowledgement the master sent after each byte it read, in order.
func (t *Target) MasterAcks() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]bool(nil), t.acks...)
}

// ResetAcks forgets the recorded acknowledgements.
func (t *Target) ResetAcks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acks = nil
}

func (t *Target) pulls(id lines.ID) bool {
	return id == lines.SDA && t.sdaLow
}

func (t *Target) edge(sclBefore, sdaBefore, scl, sda bool) {
	switch {
	case sclBefore && scl && sdaBefore && !sda:
		t.sdaLow = false
		t.state = stateAddrBits
		t.shift, t.bits = 0, 0
	case sclBefore && scl && !sdaBefore && sda:
		if t.addressed {
			t.dev.Stop()
		}
		t.addressed = false
		t.sdaLow = false
		t.state = stateIdle
	case !sclBefore && scl:
		t.rise(sda)
	case sclBefore && !scl:
		t.fall()
	}
}

func (t *Target) rise(sda bool) {
	switch t.state {
	case stateAddrBits, stateRxBits:
		if t.bits < 8 {
			t.shift <<= 1
			if sda {
				t.shift |= 1
			}
			t.bits++
		}
	case stateTxAck:
		t.masterAck = !sda
		t.mu.Lock()
		t.acks = append(t.acks, t.masterAck)
		t.mu.Unlock()
	default:
	}
}

func (t *Target) fall() {
	switch t.state {
	case stateAddrBits:
		if t.bits < 8 {
			return
		}
		if t.shift>>1 != t.addr {
			t.state = stateIgnore
			return
		}
		t.read = t.shift&1 == 1
		t.addressed = true
		t.dev.Start(t.read)
		t.sdaLow = true
		t.state = stateAddrAck
	case stateAddrAck:
		t.sdaLow = false
		if t.read {
			t.load()
			return
		}
		t.state = stateRxBits
		t.shift, t.bits = 0, 0
	case stateRxBits:
		if t.bits < 8 {
			return
		}
		t.sdaLow = t.dev.Write(t.shift)
		t.state = stateRxAck
	case stateRxAck:
		if !t.sdaLow {
			t.state = stateIgnore
			return
		}
		t.sdaLow = false
		t.state = stateRxBits
		t.shift, t.bits = 0, 0
	case stateTxBits:
		t.bits++
		if t.bits < 8 {
			t.sdaLow = t.shift&(0x80>>t.bits) == 0
			return
		}
		t.sdaLow = false
		t.state = stateTxAck
	case stateTxAck:
		if t.masterAck {
			t.load()
			return
		}
		t.state = stateIgnore
	default:
	}
}

func (t *Target) load() {
	t.shift = t.dev.Read()
	t.bits = 0
	t.sdaLow = t.shift&0x80 == 0
	t.state = stateTxBits
}
