package softi2c

import (
	"context"
)

// ReadByte shifts in a byte with SDA released, then drives the acknowledgement: ACK when more
// bytes follow, NACK on the last byte. The status is Ok unless the bus timed out or faulted.
func (m *Master) ReadByte(ctx context.Context, more bool) (byte, Status) {
	m.setSDAOutput(false)
	data, status := m.transfer(ctx, 8)
	if status != Ok {
		return 0, status
	}
	if more {
		m.shift = 0x00
	} else {
		m.shift = 0xFF
	}
	if _, status := m.transfer(ctx, 1); status != Ok {
		return data, status
	}
	return data, Ok
}

// WriteByte shifts out value and samples the acknowledgement bit of the target.
func (m *Master) WriteByte(ctx context.Context, value byte) Status {
	m.setSCL(false)
	m.shift = value
	if _, status := m.transfer(ctx, 8); status != Ok {
		return status
	}
	m.setSDAOutput(false)
	ack, status := m.transfer(ctx, 1)
	if status != Ok {
		return status
	}
	if ack&0x01 != 0 {
		return SlaveNack
	}
	return Ok
}
