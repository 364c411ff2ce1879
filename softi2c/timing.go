package softi2c

import (
	"context"
	"time"
)

func (m *Master) delay(ctx context.Context, d time.Duration) Status {
	if m.lineErr != nil {
		return LineFault
	}
	if ctx.Err() != nil {
		return BusTimeout
	}
	m.clk.Sleep(d)
	return Ok
}

// waitSCL polls until SCL reads high, for at most the stretch timeout.
func (m *Master) waitSCL(ctx context.Context) Status {
	deadline := m.clk.Now().Add(m.timing.stretch)
	for {
		m.observe()
		if m.lineErr != nil {
			return LineFault
		}
		if m.scl {
			return Ok
		}
		if err := ctx.Err(); err != nil || !m.clk.Now().Before(deadline) {
			m.stats.Timeouts.Inc()
			m.logger.CDebugw(ctx, "clock line held low", "timeout", m.timing.stretch, "ctx_err", err)
			return BusTimeout
		}
		m.clk.Sleep(m.timing.poll)
	}
}
