package softi2c

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is the outcome of a bus operation. Values 0 through 6 are stable and match the codes used
// by existing callers of the firmware master.
type Status uint8

// Status values.
const (
	Ok Status = iota
	UnknownStart
	UnknownStop
	DataCollision
	MissingStartCondition
	MissingStopCondition
	SlaveNack
	// BusTimeout means the clock line did not rise within the stretch timeout, or the context was
	// done while waiting.
	BusTimeout
	// LineFault means the line adapter returned an error. It stays latched until Init.
	LineFault
)

var statusNames = [...]string{
	Ok:                    "Ok",
	UnknownStart:          "UnknownStart",
	UnknownStop:           "UnknownStop",
	DataCollision:         "DataCollision",
	MissingStartCondition: "MissingStartCondition",
	MissingStopCondition:  "MissingStopCondition",
	SlaveNack:             "SlaveNack",
	BusTimeout:            "BusTimeout",
	LineFault:             "LineFault",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Transient reports whether the status is a bus sequencing fault that a transaction retries.
func (s Status) Transient() bool {
	return s == UnknownStart || s == UnknownStop || s == DataCollision
}

// Err returns nil for Ok and a *StatusError otherwise.
func (s Status) Err() error {
	if s == Ok {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError is a non-Ok status as an error.
type StatusError struct {
	Op     string
	Addr   byte
	Status Status
	// Cause is the line adapter error behind a LineFault, if known.
	Cause error
}

func (e *StatusError) Error() string {
	msg := e.Status.String()
	if e.Op != "" {
		msg = fmt.Sprintf("%s 0x%02x: %s", e.Op, e.Addr, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the line adapter error, if any.
func (e *StatusError) Unwrap() error {
	return e.Cause
}

// StatusOf extracts the status from an error returned by this package. It returns Ok for nil and
// false for errors that carry no status.
func StatusOf(err error) (Status, bool) {
	if err == nil {
		return Ok, true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status, true
	}
	return Ok, false
}

// ErrInvalidAddress is returned for addresses that do not fit in 7 bits.
var ErrInvalidAddress = errors.New("address is not a 7-bit address")
