package softi2c

import (
	"go.viam.com/softi2c/lines"
)

// fail latches the first line adapter error. Every later wait reports LineFault until Init.
func (m *Master) fail(err error) {
	if err != nil && m.lineErr == nil {
		m.lineErr = err
		m.logger.Errorw("line adapter failed", "error", err)
	}
}

func (m *Master) sample() (scl, sda bool) {
	var err error
	scl, err = m.lines.Level(lines.SCL)
	m.fail(err)
	sda, err = m.lines.Level(lines.SDA)
	m.fail(err)
	return scl, sda
}

// observe samples both lines and latches a start flag for SDA falling while SCL stays high, or a
// stop flag for SDA rising while SCL stays high.
func (m *Master) observe() {
	scl, sda := m.sample()
	if m.scl && scl && sda != m.sda {
		if sda {
			m.flags.stop = true
		} else {
			m.flags.start = true
		}
	}
	m.scl, m.sda = scl, sda
}

func (m *Master) setSCL(high bool) {
	m.sclPort = high
	m.fail(m.lines.Drive(lines.SCL, high))
	m.observe()
}

// sdaHigh is the output level of SDA: the port latch ANDed with the shift register MSB.
func (m *Master) sdaHigh() bool {
	return m.sdaPort && m.shift&0x80 != 0
}

// applySDA pushes the output level to SDA when it is an output.
func (m *Master) applySDA() {
	if !m.sdaOut {
		return
	}
	m.fail(m.lines.Drive(lines.SDA, m.sdaHigh()))
	m.observe()
}

func (m *Master) setSDAOutput(out bool) {
	m.sdaOut = out
	if out {
		m.fail(m.lines.Drive(lines.SDA, m.sdaHigh()))
		m.fail(m.lines.SetDirection(lines.SDA, lines.Output))
	} else {
		m.fail(m.lines.SetDirection(lines.SDA, lines.Input))
	}
	m.observe()
}

// collision is live: the shift register MSB disagrees with SDA.
func (m *Master) collision() bool {
	return (m.shift&0x80 != 0) != m.sda
}

// tick advances the edge counter, raising overflow when it wraps.
func (m *Master) tick() {
	m.counter = (m.counter + 1) & 0x0f
	if m.counter == 0 {
		m.flags.overflow = true
	}
}

// shiftIn samples SDA into the shift register.
func (m *Master) shiftIn() {
	m.shift <<= 1
	if m.sda {
		m.shift |= 1
	}
}
