package softi2c

import (
	"go.uber.org/atomic"
)

// Stats counts bus activity. Counters only grow.
type Stats struct {
	Transactions  atomic.Uint64
	StartAttempts atomic.Uint64
	Retries       atomic.Uint64
	Nacks         atomic.Uint64
	Timeouts      atomic.Uint64

	// MaskedFailures counts transactions whose failure was replaced by the stop status.
	MaskedFailures atomic.Uint64
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	Transactions   uint64 `json:"transactions"`
	StartAttempts  uint64 `json:"start_attempts"`
	Retries        uint64 `json:"retries"`
	Nacks          uint64 `json:"nacks"`
	Timeouts       uint64 `json:"timeouts"`
	MaskedFailures uint64 `json:"masked_failures"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Transactions:   s.Transactions.Load(),
		StartAttempts:  s.StartAttempts.Load(),
		Retries:        s.Retries.Load(),
		Nacks:          s.Nacks.Load(),
		Timeouts:       s.Timeouts.Load(),
		MaskedFailures: s.MaskedFailures.Load(),
	}
}
