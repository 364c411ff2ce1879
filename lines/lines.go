// Package lines defines the line-level adapter the bus master drives: two open-drain lines, clock
// and data, each with a direction and an output latch.
package lines

import (
	"fmt"
)

// ID names one of the two bus lines.
type ID int

// The two bus lines.
const (
	SCL ID = iota
	SDA
)

func (id ID) String() string {
	switch id {
	case SCL:
		return "SCL"
	case SDA:
		return "SDA"
	}
	return fmt.Sprintf("line(%d)", int(id))
}

// Direction is the direction of a line.
type Direction int

// Line directions.
const (
	Input Direction = iota
	Output
)

func (dir Direction) String() string {
	if dir == Output {
		return "output"
	}
	return "input"
}

// Lines drives and samples the two bus lines. Both are open-drain with pull-ups: a line reads low
// when anyone pulls it low. An output line whose latch is low pulls; an output line whose latch is
// high, or an input line, is released.
type Lines interface {
	SetDirection(id ID, dir Direction) error
	// Drive sets the output latch. It takes effect while the line is an output.
	Drive(id ID, high bool) error
	// Level reads the electrical level of the line.
	Level(id ID) (bool, error)
	Close() error
}

// Pulls reports whether a line with the given direction and latch pulls the line low.
func Pulls(dir Direction, latchHigh bool) bool {
	return dir == Output && !latchHigh
}
