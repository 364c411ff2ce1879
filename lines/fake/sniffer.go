package fake

import (
	"fmt"
	"strings"
	"sync"

	"go.viam.com/softi2c/lines"
)

// EventKind is the kind of a sniffed bus event.
type EventKind int

// Sniffed event kinds.
const (
	EventStart EventKind = iota
	EventByte
	EventStop
)

// Event is one decoded bus event. Value and Ack are set for EventByte; Ack is true when the ninth
// bit was low.
type Event struct {
	Kind  EventKind
	Value byte
	Ack   bool
}

// Start, Stop and Byte build expected events for comparisons.
var (
	Start = Event{Kind: EventStart}
	Stop  = Event{Kind: EventStop}
)

// Byte is an acknowledged or not acknowledged byte event.
func Byte(value byte, ack bool) Event {
	return Event{Kind: EventByte, Value: value, Ack: ack}
}

func (e Event) String() string {
	switch e.Kind {
	case EventStart:
		return "S"
	case EventStop:
		return "P"
	default:
		if e.Ack {
			return fmt.Sprintf("0x%02x+", e.Value)
		}
		return fmt.Sprintf("0x%02x-", e.Value)
	}
}

// Sniffer decodes everything on the bus into start, byte and stop events. It never drives a line.
// Partial bytes cut short by a start or stop are dropped.
type Sniffer struct {
	mu      sync.Mutex
	events  []Event
	inFrame bool
	shift   byte
	bits    int
}

func (s *Sniffer) pulls(lines.ID) bool {
	return false
}

func (s *Sniffer) edge(sclBefore, sdaBefore, scl, sda bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case sclBefore && scl && sdaBefore && !sda:
		s.events = append(s.events, Start)
		s.inFrame = true
		s.shift, s.bits = 0, 0
	case sclBefore && scl && !sdaBefore && sda:
		s.events = append(s.events, Stop)
		s.inFrame = false
	case !sclBefore && scl && s.inFrame:
		s.bits++
		if s.bits <= 8 {
			s.shift <<= 1
			if sda {
				s.shift |= 1
			}
			return
		}
		s.events = append(s.events, Byte(s.shift, !sda))
		s.shift, s.bits = 0, 0
	}
}

// Events returns the decoded events so far.
func (s *Sniffer) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Reset forgets the decoded events.
func (s *Sniffer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Transcript renders events compactly, e.g. "S 0xa2+ 0x02+ P".
func Transcript(events []Event) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}
