package softi2c

import (
	"context"

	"go.viam.com/softi2c/lines"
)

// Init releases both lines as outputs, releases the shift register and clears every pending flag
// and any latched line error. The current line levels become the edge detection baseline.
func (m *Master) Init() {
	m.lineErr = nil
	m.shift = 0xFF
	m.sclPort, m.sdaPort, m.sdaOut = true, true, true
	m.fail(m.lines.Drive(lines.SCL, true))
	m.fail(m.lines.SetDirection(lines.SCL, lines.Output))
	m.fail(m.lines.Drive(lines.SDA, true))
	m.fail(m.lines.SetDirection(lines.SDA, lines.Output))
	m.flags = flags{}
	m.counter = 0
	m.scl, m.sda = m.sample()
	m.logger.Debugw("bus initialized", "scl", m.scl, "sda", m.sda)
}

// Start generates a start condition, or a repeated start when called mid-transaction. With
// pending checks on, a start, stop or collision seen since the last transfer is reported instead.
func (m *Master) Start(ctx context.Context) Status {
	m.observe()
	if m.lineErr != nil {
		return LineFault
	}
	if m.timing.checkPending {
		switch {
		case m.flags.start:
			return UnknownStart
		case m.flags.stop:
			return UnknownStop
		case m.collision():
			return DataCollision
		}
	}

	m.setSCL(true)
	if status := m.waitSCL(ctx); status != Ok {
		return status
	}
	if status := m.delay(ctx, m.timing.setup); status != Ok {
		return status
	}
	m.sdaPort = false
	m.applySDA()
	if status := m.delay(ctx, m.timing.hold); status != Ok {
		return status
	}
	m.setSCL(false)
	m.sdaPort = true
	m.applySDA()

	if m.lineErr != nil {
		return LineFault
	}
	if m.timing.verify && !m.flags.start {
		return MissingStartCondition
	}
	return Ok
}

// Stop generates a stop condition. Clearing the stop flag clears every latched flag with it,
// including a start edge left by the stop itself.
func (m *Master) Stop(ctx context.Context) Status {
	defer func() { m.flags = flags{} }()

	m.sdaPort = false
	m.applySDA()
	m.setSCL(true)
	if status := m.waitSCL(ctx); status != Ok {
		return status
	}
	if status := m.delay(ctx, m.timing.setup); status != Ok {
		return status
	}
	m.sdaPort = true
	m.applySDA()
	if status := m.delay(ctx, m.timing.hold); status != Ok {
		return status
	}

	if m.timing.verify && !m.flags.stop {
		return MissingStopCondition
	}
	return Ok
}

// transfer clocks bitCount bits through the shift register: the MSB is presented on SDA while SCL
// is low and SDA is sampled into the LSB once SCL is high. The edge counter is preset so that it
// overflows after bitCount clocks. SDA is left a released output.
func (m *Master) transfer(ctx context.Context, bitCount int) (byte, Status) {
	m.flags = flags{}
	m.counter = uint8(16-2*bitCount) & 0x0f
	m.applySDA()
	for !m.flags.overflow {
		if status := m.delay(ctx, m.timing.setup); status != Ok {
			return 0, status
		}
		m.setSCL(true)
		m.tick()
		if status := m.waitSCL(ctx); status != Ok {
			return 0, status
		}
		m.shiftIn()
		if status := m.delay(ctx, m.timing.hold); status != Ok {
			return 0, status
		}
		m.setSCL(false)
		m.tick()
		m.applySDA()
	}
	if status := m.delay(ctx, m.timing.setup); status != Ok {
		return 0, status
	}

	data := m.shift
	m.shift = 0xFF
	m.setSDAOutput(true)
	return data, Ok
}
