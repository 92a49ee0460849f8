package ppg

// DetectorState is the position of the peak detector relative to the
// adaptive threshold.
type DetectorState int

const (
	// BelowThreshold: the signal is at or under the threshold; the next
	// rising edge may produce a peak.
	BelowThreshold DetectorState = iota
	// ArmedAboveThreshold: the signal crossed the threshold and is still
	// rising.
	ArmedAboveThreshold
	// PeakEmitted: a peak was confirmed during this crossing; no further peak
	// is accepted until the signal drops below the threshold again.
	PeakEmitted
)

func (s DetectorState) String() string {
	switch s {
	case BelowThreshold:
		return "below_threshold"
	case ArmedAboveThreshold:
		return "armed_above_threshold"
	case PeakEmitted:
		return "peak_emitted"
	default:
		return "unknown"
	}
}

// PeakEvent is a confirmed heartbeat. SamplesSinceLastPeak is the distance to
// the previous confirmed heartbeat.
type PeakEvent struct {
	SamplesSinceLastPeak int
}

// Detector is the adaptive threshold peak detector.
type Detector struct {
	factor float64
	window *ThresholdWindow

	state          DetectorState
	firstPeakFound bool
	prev           float64
	index          int
	threshold      float64
}

// NewDetector creates a detector whose threshold is derived from the last
// windowSize raw samples.
func NewDetector(windowSize int, factor float64) *Detector {
	return &Detector{
		factor: factor,
		window: NewThresholdWindow(windowSize),
	}
}

// Process feeds one sample: the raw value extends the threshold window and
// the filtered value is tested against the threshold. A PeakEvent is
// returned when a heartbeat is confirmed and a previous one exists to
// measure from.
func (d *Detector) Process(raw uint16, filtered float64) (PeakEvent, bool) {
	d.window.Add(raw)
	d.threshold = d.window.Threshold(d.factor)

	var (
		event   PeakEvent
		emitted bool
	)

	if filtered > d.threshold {
		switch {
		case d.prev > filtered && d.state != PeakEmitted:
			// The signal just turned downward: the previous sample was the top.
			if d.firstPeakFound {
				event = PeakEvent{SamplesSinceLastPeak: d.index}
				emitted = true
			}
			d.firstPeakFound = true
			d.state = PeakEmitted
			d.index = 0
		case d.state == BelowThreshold:
			d.state = ArmedAboveThreshold
		}
	} else {
		d.state = BelowThreshold
	}

	d.prev = filtered
	d.index++

	return event, emitted
}

func (d *Detector) State() DetectorState {
	return d.state
}

// Threshold returns the threshold used for the last processed sample.
func (d *Detector) Threshold() float64 {
	return d.threshold
}

func (d *Detector) Reset() {
	d.window.Reset()
	d.state = BelowThreshold
	d.firstPeakFound = false
	d.prev = 0
	d.index = 0
	d.threshold = 0
}
