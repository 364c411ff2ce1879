package softi2c

import (
	"context"
)

const (
	writeBit = 0x00
	readBit  = 0x01
)

// WriteTransaction addresses addr for writing and sends data. Start is attempted up to RetryLimit
// times while it reports a transient status; any other failure ends the transaction. When
// sendStop is set a stop condition always follows, and its status is returned in place of
// whatever happened before.
func (m *Master) WriteTransaction(ctx context.Context, addr byte, data []byte, sendStop bool) Status {
	status := m.addressed(ctx, addr, writeBit, func() Status {
		for _, b := range data {
			if status := m.WriteByte(ctx, b); status != Ok {
				return status
			}
		}
		return Ok
	})
	return m.finish(ctx, addr, status, sendStop)
}

// ReadTransaction addresses addr for reading and reads count bytes, acknowledging all but the
// last. Retries and the stop condition behave as in WriteTransaction. The returned slice is nil
// unless every byte was read. A count below 1 does nothing.
func (m *Master) ReadTransaction(ctx context.Context, addr byte, count int, sendStop bool) ([]byte, Status) {
	if count < 1 {
		return nil, Ok
	}
	var out []byte
	status := m.addressed(ctx, addr, readBit, func() Status {
		buf := make([]byte, count)
		for i := range buf {
			b, status := m.ReadByte(ctx, i < count-1)
			if status != Ok {
				return status
			}
			buf[i] = b
		}
		out = buf
		return Ok
	})
	return out, m.finish(ctx, addr, status, sendStop)
}

// addressed runs the retry loop: start, address byte, then payload.
func (m *Master) addressed(ctx context.Context, addr, dirBit byte, payload func() Status) Status {
	m.stats.Transactions.Inc()
	var status Status
	for attempt := 0; attempt < RetryLimit; attempt++ {
		m.stats.StartAttempts.Inc()
		if attempt > 0 {
			m.stats.Retries.Inc()
		}
		status = m.Start(ctx)
		if status.Transient() {
			m.logger.CDebugw(ctx, "start refused, retrying", "addr", addr, "status", status, "attempt", attempt+1)
			continue
		}
		if status != Ok {
			break
		}
		if status = m.WriteByte(ctx, (addr&0x7f)<<1|dirBit); status != Ok {
			break
		}
		status = payload()
		break
	}
	if status == SlaveNack {
		m.stats.Nacks.Inc()
	}
	return status
}

func (m *Master) finish(ctx context.Context, addr byte, status Status, sendStop bool) Status {
	if !sendStop {
		return status
	}
	stopStatus := m.Stop(ctx)
	if status != Ok && status != stopStatus {
		m.stats.MaskedFailures.Inc()
		m.logger.Warnw("stop status replaces transaction failure",
			"addr", addr, "failure", status, "stop", stopStatus)
	}
	return stopStatus
}
