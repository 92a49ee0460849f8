package ppg

import "gonum.org/v1/gonum/floats"

// MovingAverage is the smoothing filter: the mean of the last size samples.
type MovingAverage struct {
	window []float64
	next   int
	count  int
}

func NewMovingAverage(size int) *MovingAverage {
	if size < 1 {
		size = 1
	}

	return &MovingAverage{window: make([]float64, size)}
}

// Add appends v, dropping the oldest sample once the window is full, and
// returns the mean of the window.
func (m *MovingAverage) Add(v float64) float64 {
	m.window[m.next] = v
	m.next = (m.next + 1) % len(m.window)
	if m.count < len(m.window) {
		m.count++
	}

	return m.Mean()
}

// Mean returns the current window mean, 0 before the first sample.
func (m *MovingAverage) Mean() float64 {
	if m.count == 0 {
		return 0
	}

	return floats.Sum(m.window[:m.count]) / float64(m.count)
}

func (m *MovingAverage) Len() int {
	return m.count
}

func (m *MovingAverage) Reset() {
	m.next = 0
	m.count = 0
}
