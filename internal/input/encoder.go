// Package input turns rotary encoder and push button activity into events
// on the input queue.
package input

import (
	"time"

	"codeberg.org/mutker/hrvmon/internal/clock"
	"codeberg.org/mutker/hrvmon/internal/ring"
)

// Event is a rotation step (+1/-1) or a selection (0).
type Event int8

const (
	Select           Event = 0
	Clockwise        Event = 1
	CounterClockwise Event = -1
)

func (e Event) String() string {
	switch e {
	case Select:
		return "select"
	case Clockwise:
		return "rotate+1"
	case CounterClockwise:
		return "rotate-1"
	default:
		return "unknown"
	}
}

// Encoder is the producer side of the input queue. Its methods stand in for
// the pin interrupt handlers and must all be called from one goroutine.
type Encoder struct {
	queue    *ring.Ring[Event]
	clock    clock.Clock
	debounce time.Duration

	lastPress uint32
}

func NewEncoder(queue *ring.Ring[Event], clk clock.Clock, debounce time.Duration) *Encoder {
	return &Encoder{
		queue:     queue,
		clock:     clk,
		debounce:  debounce,
		lastPress: clk.TicksMs(),
	}
}

// Turn handles an edge on encoder pin A; pinB is the level of pin B at that
// moment and gives the direction.
func (e *Encoder) Turn(pinB bool) {
	if pinB {
		e.queue.Push(CounterClockwise)
		return
	}
	e.queue.Push(Clockwise)
}

// Rotate queues a step in the sign of dir.
func (e *Encoder) Rotate(dir int) {
	switch {
	case dir > 0:
		e.queue.Push(Clockwise)
	case dir < 0:
		e.queue.Push(CounterClockwise)
	}
}

// Press queues a selection unless the previous accepted press is more
// recent than the debounce interval. It reports whether the press was
// accepted.
func (e *Encoder) Press() bool {
	now := e.clock.TicksMs()
	if int64(clock.Diff(now, e.lastPress)) <= e.debounce.Milliseconds() {
		return false
	}

	e.queue.Push(Select)
	e.lastPress = now

	return true
}
