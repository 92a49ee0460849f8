package ppg

import "codeberg.org/mutker/hrvmon/internal/hrv"

// Reading is the outcome of one processed sample.
type Reading struct {
	Raw       uint16
	Filtered  float64
	Threshold float64
	Peak      bool
	Beat      Beat
	AverageHR int // most recent average, 0 until the first one
}

// Sink receives every Reading. The live monitor uses it to draw.
type Sink interface {
	Observe(Reading)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Reading)

func (f SinkFunc) Observe(r Reading) { f(r) }

type Config struct {
	FilterWindow    int
	ThresholdWindow int
	ThresholdFactor float64
	SamplePeriodMs  int
	MinHR           int
	MaxHR           int
	HRWindow        int
}

func DefaultConfig() Config {
	return Config{
		FilterWindow:    5,
		ThresholdWindow: 500,
		ThresholdFactor: 0.8,
		SamplePeriodMs:  4,
		MinHR:           40,
		MaxHR:           200,
		HRWindow:        5,
	}
}

// Pipeline is the single peak-detection engine shared by every mode.
type Pipeline struct {
	filter    *MovingAverage
	detector  *Detector
	estimator *Estimator
	sink      Sink
	averageHR int
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		filter:    NewMovingAverage(cfg.FilterWindow),
		detector:  NewDetector(cfg.ThresholdWindow, cfg.ThresholdFactor),
		estimator: NewEstimator(cfg.SamplePeriodMs, cfg.MinHR, cfg.MaxHR, cfg.HRWindow),
	}
}

// SetSink installs s as the output sink; nil disables output.
func (p *Pipeline) SetSink(s Sink) {
	p.sink = s
}

// Process runs one raw sample through the chain. Every PPI is appended to
// rec; averaged heart rates are appended as they are produced. rec may be
// nil when nothing is being accumulated.
func (p *Pipeline) Process(raw uint16, rec *hrv.Recording) Reading {
	r := Reading{Raw: raw}
	r.Filtered = p.filter.Add(float64(raw))

	event, ok := p.detector.Process(raw, r.Filtered)
	r.Threshold = p.detector.Threshold()

	if ok {
		r.Peak = true
		r.Beat = p.estimator.Add(event)
		if rec != nil && r.Beat.PPI > 0 {
			rec.AddPPI(r.Beat.PPI)
		}
		if r.Beat.HasAverage {
			p.averageHR = r.Beat.AverageHR
			if rec != nil {
				rec.AddHR(r.Beat.AverageHR)
			}
		}
	}
	r.AverageHR = p.averageHR

	if p.sink != nil {
		p.sink.Observe(r)
	}

	return r
}

func (p *Pipeline) AverageHR() int {
	return p.averageHR
}

func (p *Pipeline) DetectorState() DetectorState {
	return p.detector.State()
}

// Reset clears every stage, as on entering a new mode.
func (p *Pipeline) Reset() {
	p.filter.Reset()
	p.detector.Reset()
	p.estimator.Reset()
	p.averageHR = 0
}
