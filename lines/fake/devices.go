package fake

import (
	"sync"
)

// Echo stores written bytes and plays them back in order on reads. Reads past the stored bytes
// return 0xFF. A non-zero Capacity makes it NACK writes once full.
type Echo struct {
	Capacity int

	mu  sync.Mutex
	buf []byte
}

// Start implements Device.
func (e *Echo) Start(read bool) {}

// Write implements Device.
func (e *Echo) Write(b byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Capacity > 0 && len(e.buf) >= e.Capacity {
		return false
	}
	e.buf = append(e.buf, b)
	return true
}

// Read implements Device.
func (e *Echo) Read() byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buf) == 0 {
		return 0xFF
	}
	b := e.buf[0]
	e.buf = e.buf[1:]
	return b
}

// Stop implements Device.
func (e *Echo) Stop() {}

// Pending returns the bytes not yet read back.
func (e *Echo) Pending() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.buf...)
}

// RegisterWrite is one register store seen by Registers.
type RegisterWrite struct {
	Register byte
	Value    byte
}

// Registers is a register file with an auto-incrementing pointer, the common layout of I2C
// peripherals. The first byte of a write transaction sets the pointer. Reads and writes wrap at the
// end of the file. A pointer outside the file is NACKed.
type Registers struct {
	mu        sync.Mutex
	mem       []byte
	ptr       int
	expectPtr bool
	writes    []RegisterWrite
	transfers int
	readOnly  map[byte]bool
}

// NewRegisters returns a zeroed register file of the given size, at most 256.
func NewRegisters(size int) *Registers {
	if size <= 0 || size > 256 {
		size = 256
	}
	return &Registers{mem: make([]byte, size), readOnly: map[byte]bool{}}
}

// Start implements Device.
func (r *Registers) Start(read bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expectPtr = !read
	r.transfers++
}

// Write implements Device.
func (r *Registers) Write(b byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.expectPtr {
		if int(b) >= len(r.mem) {
			return false
		}
		r.ptr = int(b)
		r.expectPtr = false
		return true
	}
	reg := byte(r.ptr)
	if !r.readOnly[reg] {
		r.mem[r.ptr] = b
	}
	r.writes = append(r.writes, RegisterWrite{Register: reg, Value: b})
	r.ptr = (r.ptr + 1) % len(r.mem)
	return true
}

// Read implements Device.
func (r *Registers) Read() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.mem[r.ptr]
	r.ptr = (r.ptr + 1) % len(r.mem)
	return b
}

// Stop implements Device.
func (r *Registers) Stop() {}

// Get returns a register value.
func (r *Registers) Get(reg byte) byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mem[int(reg)%len(r.mem)]
}

// Set stores a register value without recording a write.
func (r *Registers) Set(reg, value byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mem[int(reg)%len(r.mem)] = value
}

// ReadOnly makes the master's stores to reg be acknowledged but dropped.
func (r *Registers) ReadOnly(reg byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readOnly[reg] = true
}

// Writes returns every store made by the master, in order.
func (r *Registers) Writes() []RegisterWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RegisterWrite(nil), r.writes...)
}

// Transactions counts how many times the device was addressed.
func (r *Registers) Transactions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transfers
}

// ResetWrites forgets the recorded stores.
func (r *Registers) ResetWrites() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
}
