package telemetry

import "net/http"

// Collector counts acquisition, detection and session activity. The
// acquisition methods are called from the sampling goroutine and never
// block.
type Collector interface {
	SampleAcquired()
	AcquisitionFault()
	QueueOverflow()

	PeakDetected()
	HeartRateRejected()
	AverageHR(bpm int)
	ModeChanged(state string)
	SessionCompleted(kind string, err error)

	Handler() http.Handler
}
