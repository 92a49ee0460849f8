package ppg

import "gonum.org/v1/gonum/floats"

// ThresholdWindow keeps the most recent raw samples, as many as the
// acquisition queue holds, and derives the adaptive detection threshold
// from their range.
type ThresholdWindow struct {
	samples []float64
	next    int
	count   int
}

func NewThresholdWindow(size int) *ThresholdWindow {
	if size < 1 {
		size = 1
	}

	return &ThresholdWindow{samples: make([]float64, size)}
}

func (w *ThresholdWindow) Add(raw uint16) {
	w.samples[w.next] = float64(raw)
	w.next = (w.next + 1) % len(w.samples)
	if w.count < len(w.samples) {
		w.count++
	}
}

// Threshold returns min + factor*(max-min) over the buffered samples.
func (w *ThresholdWindow) Threshold(factor float64) float64 {
	if w.count == 0 {
		return 0
	}

	data := w.samples[:w.count]
	lo, hi := floats.Min(data), floats.Max(data)

	return lo + factor*(hi-lo)
}

func (w *ThresholdWindow) Len() int {
	return w.count
}

func (w *ThresholdWindow) Reset() {
	w.next = 0
	w.count = 0
}
