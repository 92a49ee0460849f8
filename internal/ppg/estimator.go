package ppg

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// RollingWindow averages the most recent valid heart rates. An average is
// produced only once more than size values have arrived, so the first one
// appears with the (size+1)th value.
type RollingWindow struct {
	size   int
	values []float64
}

func NewRollingWindow(size int) *RollingWindow {
	if size < 1 {
		size = 1
	}

	return &RollingWindow{
		size:   size,
		values: make([]float64, 0, size+1),
	}
}

// Add appends hr and, once the window overflows, drops the oldest value and
// returns the rounded mean.
func (w *RollingWindow) Add(hr int) (int, bool) {
	w.values = append(w.values, float64(hr))
	if len(w.values) <= w.size {
		return 0, false
	}

	copy(w.values, w.values[1:])
	w.values = w.values[:w.size]

	return int(math.RoundToEven(floats.Sum(w.values) / float64(len(w.values)))), true
}

// Values returns a copy of the window contents, oldest first.
func (w *RollingWindow) Values() []int {
	out := make([]int, len(w.values))
	for i, v := range w.values {
		out[i] = int(v)
	}

	return out
}

func (w *RollingWindow) Reset() {
	w.values = w.values[:0]
}

// Beat is the estimator's view of one PeakEvent.
type Beat struct {
	PPI        int // ms
	HR         int // instantaneous BPM, 0 when PPI is 0
	Valid      bool
	AverageHR  int
	HasAverage bool
}

// Estimator converts peak spacing into validated, averaged heart rate.
type Estimator struct {
	periodMs int
	minHR    int
	maxHR    int
	window   *RollingWindow
}

func NewEstimator(periodMs, minHR, maxHR, windowSize int) *Estimator {
	return &Estimator{
		periodMs: periodMs,
		minHR:    minHR,
		maxHR:    maxHR,
		window:   NewRollingWindow(windowSize),
	}
}

// Add handles one PeakEvent. Heart rates outside [minHR, maxHR] are dropped
// without error; the PPI is reported either way.
func (e *Estimator) Add(event PeakEvent) Beat {
	beat := Beat{PPI: event.SamplesSinceLastPeak * e.periodMs}
	if beat.PPI <= 0 {
		return beat
	}

	beat.HR = int(math.RoundToEven(60000 / float64(beat.PPI)))
	if beat.HR < e.minHR || beat.HR > e.maxHR {
		return beat
	}
	beat.Valid = true

	beat.AverageHR, beat.HasAverage = e.window.Add(beat.HR)

	return beat
}

func (e *Estimator) Window() *RollingWindow {
	return e.window
}

func (e *Estimator) Reset() {
	e.window.Reset()
}
