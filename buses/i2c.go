// Package buses defines the shareable I2C bus interfaces that drivers are written against.
package buses

import (
	"context"
)

// I2C represents a shareable I2C bus.
type I2C interface {
	// OpenHandle locks the bus and returns a handle that MUST be closed when done.
	// Only one handle can be open at a time.
	OpenHandle(addr byte) (I2CHandle, error)
}

// I2CHandle is similar to an io handle. It MUST be closed to release the bus.
type I2CHandle interface {
	Write(ctx context.Context, tx []byte) error
	Read(ctx context.Context, count int) ([]byte, error)

	ReadByteData(ctx context.Context, register byte) (byte, error)
	WriteByteData(ctx context.Context, register, data byte) error

	ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error)
	WriteBlockData(ctx context.Context, register byte, data []byte) error

	// Close closes the handle and releases the lock on the bus.
	Close() error
}

// An I2CRegister is a lightweight wrapper around a handle for a particular register.
type I2CRegister struct {
	Handle   I2CHandle
	Register byte
}

// ReadByteData reads a byte from the I2C channel register.
func (reg *I2CRegister) ReadByteData(ctx context.Context) (byte, error) {
	return reg.Handle.ReadByteData(ctx, reg.Register)
}

// WriteByteData writes a byte to the I2C channel register.
func (reg *I2CRegister) WriteByteData(ctx context.Context, data byte) error {
	return reg.Handle.WriteByteData(ctx, reg.Register, data)
}

// SetBits sets the bits of mask in the register.
func (reg *I2CRegister) SetBits(ctx context.Context, mask byte) error {
	return reg.modify(ctx, func(v byte) byte { return v | mask })
}

// ClearBits clears the bits of mask in the register.
func (reg *I2CRegister) ClearBits(ctx context.Context, mask byte) error {
	return reg.modify(ctx, func(v byte) byte { return v &^ mask })
}

// MaskedSet replaces the bits of mask in the register with bits. Bits outside mask are ORed in
// as given.
func (reg *I2CRegister) MaskedSet(ctx context.Context, mask, bits byte) error {
	return reg.modify(ctx, func(v byte) byte { return v&^mask | bits })
}

func (reg *I2CRegister) modify(ctx context.Context, fn func(byte) byte) error {
	v, err := reg.ReadByteData(ctx)
	if err != nil {
		return err
	}
	return reg.WriteByteData(ctx, fn(v))
}
