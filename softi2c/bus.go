package softi2c

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/softi2c/buses"
	"go.viam.com/softi2c/logging"
)

// Bus shares a Master between goroutines. It implements buses.I2C: a handle holds the bus until it
// is closed. Bus operations report the first failure of a transaction; unlike the status API of
// Master, a stop condition never hides an earlier NACK.
type Bus struct {
	name   string
	mu     sync.Mutex
	master *Master
	logger logging.Logger
}

var _ buses.I2C = (*Bus)(nil)

// NewBus initializes master and wraps it.
func NewBus(name string, master *Master, logger logging.Logger) *Bus {
	master.Init()
	return &Bus{name: name, master: master, logger: logger}
}

// OpenHandle locks the bus for addr. The handle MUST be closed.
func (b *Bus) OpenHandle(addr byte) (buses.I2CHandle, error) {
	if addr > 0x7f {
		return nil, errors.Wrapf(ErrInvalidAddress, "0x%02x", addr)
	}
	b.mu.Lock()
	return &i2cHandle{bus: b, addr: addr}, nil
}

// Stats returns the counters of the underlying master.
func (b *Bus) Stats() StatsSnapshot {
	return b.master.Stats().Snapshot()
}

// Scan probes every non-reserved address, 0x03 through 0x77, with an empty write and returns the
// ones that acknowledged.
func (b *Bus) Scan(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var found []byte
	for addr := byte(0x03); addr <= 0x77; addr++ {
		err := b.tx(ctx, "probe", addr, nil, nil)
		if err == nil {
			found = append(found, addr)
			continue
		}
		if status, _ := StatusOf(err); status != SlaveNack {
			return found, err
		}
	}
	return found, nil
}

// Close closes the lines. Open handles must be closed first.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.master.Close()
}

// tx writes w, then reads len(r) bytes after a repeated start, then stops. An empty w with an
// empty r is an address-only probe. Lock the mutex first.
func (b *Bus) tx(ctx context.Context, op string, addr byte, w, r []byte) error {
	m := b.master
	status := Ok
	if len(w) > 0 || len(r) == 0 {
		status = m.WriteTransaction(ctx, addr, w, false)
	}
	if status == Ok && len(r) > 0 {
		var data []byte
		data, status = m.ReadTransaction(ctx, addr, len(r), false)
		copy(r, data)
	}
	if stopStatus := m.Stop(ctx); status == Ok {
		status = stopStatus
	}
	if status == Ok {
		return nil
	}

	err := &StatusError{Op: op, Addr: addr, Status: status, Cause: m.LineError()}
	if status != SlaveNack {
		b.logger.CDebugw(ctx, "reinitializing bus after failure", "op", op, "addr", addr, "status", status)
		m.Init()
	}
	return err
}

type i2cHandle struct {
	bus    *Bus
	addr   byte
	closed bool
}

func (h *i2cHandle) do(ctx context.Context, op string, w, r []byte) error {
	if h.closed {
		return errors.Errorf("%s on closed handle for 0x%02x", op, h.addr)
	}
	return h.bus.tx(ctx, op, h.addr, w, r)
}

func (h *i2cHandle) Write(ctx context.Context, tx []byte) error {
	return h.do(ctx, "write", tx, nil)
}

func (h *i2cHandle) Read(ctx context.Context, count int) ([]byte, error) {
	if count < 1 {
		return nil, errors.Errorf("cannot read %d bytes", count)
	}
	r := make([]byte, count)
	if err := h.do(ctx, "read", nil, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *i2cHandle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	r := make([]byte, 1)
	if err := h.do(ctx, "read register", []byte{register}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (h *i2cHandle) WriteByteData(ctx context.Context, register, data byte) error {
	return h.do(ctx, "write register", []byte{register, data}, nil)
}

func (h *i2cHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if numBytes == 0 {
		return nil, errors.New("cannot read an empty block")
	}
	r := make([]byte, numBytes)
	if err := h.do(ctx, "read block", []byte{register}, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *i2cHandle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	return h.do(ctx, "write block", append([]byte{register}, data...), nil)
}

func (h *i2cHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.bus.mu.Unlock()
	return nil
}
