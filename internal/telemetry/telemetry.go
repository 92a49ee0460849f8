// Package telemetry exposes pipeline and session counters in the Prometheus
// format.
package telemetry

import (
	"net/http"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hrvmon"

type service struct {
	registry *prometheus.Registry

	samples   prometheus.Counter
	faults    prometheus.Counter
	overflows prometheus.Counter
	peaks     prometheus.Counter
	rejected  prometheus.Counter
	averageHR prometheus.Gauge
	mode      *prometheus.GaugeVec
	sessions  *prometheus.CounterVec
}

type noopCollector struct{}

// NewService returns a Prometheus-backed collector, or a no-op one when
// telemetry is disabled.
func NewService(cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Telemetry disabled, using no-op collector")
		return noopCollector{}, nil
	}

	return newService()
}

func newService() (*service, error) {
	s := &service{
		registry: prometheus.NewRegistry(),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Raw sensor samples pushed to the acquisition queue.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisition_faults_total",
			Help:      "Sensor reads that failed and were skipped.",
		}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_overflows_total",
			Help:      "Samples that overwrote an unconsumed entry.",
		}),
		peaks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peaks_total",
			Help:      "Confirmed heartbeats.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_heart_rates_total",
			Help:      "Instantaneous heart rates outside the accepted range.",
		}),
		averageHR: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_heart_rate_bpm",
			Help:      "Most recent rolling average heart rate.",
		}),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mode",
			Help:      "Current controller mode (1 for the active one).",
		}, []string{"mode"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Completed HRV sessions by kind and result.",
		}, []string{"kind", "result"}),
	}

	cs := []prometheus.Collector{
		s.samples, s.faults, s.overflows, s.peaks, s.rejected,
		s.averageHR, s.mode, s.sessions,
		collectors.NewGoCollector(),
	}
	for _, c := range cs {
		if err := s.registry.Register(c); err != nil {
			return nil, errors.New().Wrap(ErrRegister, err)
		}
	}

	return s, nil
}

func (s *service) SampleAcquired()    { s.samples.Inc() }
func (s *service) AcquisitionFault()  { s.faults.Inc() }
func (s *service) QueueOverflow()     { s.overflows.Inc() }
func (s *service) PeakDetected()      { s.peaks.Inc() }
func (s *service) HeartRateRejected() { s.rejected.Inc() }

func (s *service) AverageHR(bpm int) {
	s.averageHR.Set(float64(bpm))
}

func (s *service) ModeChanged(state string) {
	s.mode.Reset()
	s.mode.WithLabelValues(state).Set(1)
}

func (s *service) SessionCompleted(kind string, err error) {
	result := "ok"
	if err != nil {
		result = string(errors.CodeOf(err))
	}
	s.sessions.WithLabelValues(kind, result).Inc()
}

func (s *service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (noopCollector) SampleAcquired()                {}
func (noopCollector) AcquisitionFault()              {}
func (noopCollector) QueueOverflow()                 {}
func (noopCollector) PeakDetected()                  {}
func (noopCollector) HeartRateRejected()             {}
func (noopCollector) AverageHR(int)                  {}
func (noopCollector) ModeChanged(string)             {}
func (noopCollector) SessionCompleted(string, error) {}

func (noopCollector) Handler() http.Handler {
	return http.NotFoundHandler()
}
