// Package clock provides a millisecond tick counter that wraps at 2^32,
// like a hardware timer, and wraparound-safe comparisons on it.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns a free-running millisecond counter.
type Clock interface {
	TicksMs() uint32
}

// Diff returns a-b in milliseconds. The result is correct across one counter
// wraparound as long as the real distance is below 2^31 ms.
func Diff(a, b uint32) int32 {
	return int32(a - b)
}

// Elapsed reports whether at least d has passed between start and now.
func Elapsed(now, start uint32, d time.Duration) bool {
	return int64(Diff(now, start)) >= d.Milliseconds()
}

type system struct {
	start time.Time
	base  uint32
}

// System returns a Clock backed by the monotonic clock.
func System() Clock {
	return &system{start: time.Now()}
}

// SystemFrom is System with the counter starting at base, to exercise
// wraparound.
func SystemFrom(base uint32) Clock {
	return &system{start: time.Now(), base: base}
}

func (s *system) TicksMs() uint32 {
	return s.base + uint32(time.Since(s.start).Milliseconds())
}

// Manual is a Clock advanced by hand.
type Manual struct {
	ticks atomic.Uint32
}

func NewManual(start uint32) *Manual {
	m := &Manual{}
	m.ticks.Store(start)

	return m
}

func (m *Manual) TicksMs() uint32 {
	return m.ticks.Load()
}

func (m *Manual) Advance(d time.Duration) {
	m.ticks.Add(uint32(d.Milliseconds()))
}

func (m *Manual) Set(ticks uint32) {
	m.ticks.Store(ticks)
}
