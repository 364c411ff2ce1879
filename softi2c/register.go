package softi2c

import (
	"context"
)

// ReadRegister writes the register address without a stop, then reads one byte after a repeated
// start. A failure of the first phase skips the second.
func (m *Master) ReadRegister(ctx context.Context, addr, reg byte) (byte, Status) {
	if status := m.WriteTransaction(ctx, addr, []byte{reg}, false); status != Ok {
		return 0, status
	}
	data, status := m.ReadTransaction(ctx, addr, 1, true)
	if len(data) == 0 {
		return 0, status
	}
	return data[0], status
}

// SetBits sets the bits of mask in a register.
func (m *Master) SetBits(ctx context.Context, addr, reg, mask byte) Status {
	return m.modifyRegister(ctx, addr, reg, func(v byte) byte { return v | mask })
}

// ClearBits clears the bits of mask in a register.
func (m *Master) ClearBits(ctx context.Context, addr, reg, mask byte) Status {
	return m.modifyRegister(ctx, addr, reg, func(v byte) byte { return v &^ mask })
}

// MaskedSet clears the bits of mask in a register, then sets bits.
func (m *Master) MaskedSet(ctx context.Context, addr, reg, mask, bits byte) Status {
	return m.modifyRegister(ctx, addr, reg, func(v byte) byte { return v&^mask | bits })
}

// modifyRegister is a read then a separate two byte write; the pair is not atomic on the bus.
func (m *Master) modifyRegister(ctx context.Context, addr, reg byte, fn func(byte) byte) Status {
	value, status := m.ReadRegister(ctx, addr, reg)
	if status != Ok {
		return status
	}
	return m.WriteTransaction(ctx, addr, []byte{reg, fn(value)}, true)
}
