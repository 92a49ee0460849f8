package mode

import (
	"context"
	"time"

	"codeberg.org/mutker/hrvmon/internal/hrv"
	"codeberg.org/mutker/hrvmon/internal/metrics"
)

// Display renders what the operator sees.
type Display interface {
	ShowMenu(labels []string, selected int)
	ShowLive(averageHR int, filtered float64)
	ShowStatus(msg string)
	ShowResult(title string, stats hrv.Statistics)
	ShowError(msg string)
}

// Sampler starts and stops the periodic sensor reads.
type Sampler interface {
	Start(ctx context.Context)
	Stop()
}

// Analyzer computes HRV statistics remotely from a PPI sequence in ms.
type Analyzer interface {
	Analyze(ctx context.Context, ppis []int) (hrv.Statistics, error)
}

// HistoryStore keeps the most recent analysis result.
type HistoryStore interface {
	Save(stats hrv.Statistics) error
	Load() (hrv.Statistics, error)
}

// Publisher delivers a result without waiting for acknowledgment.
type Publisher interface {
	Publish(stats hrv.Statistics)
}

// Telemetry counts pipeline and session activity.
type Telemetry interface {
	PeakDetected()
	HeartRateRejected()
	AverageHR(bpm int)
	ModeChanged(state string)
	SessionCompleted(kind string, err error)
}

type noopTelemetry struct{}

func (noopTelemetry) PeakDetected()                  {}
func (noopTelemetry) HeartRateRejected()             {}
func (noopTelemetry) AverageHR(int)                  {}
func (noopTelemetry) ModeChanged(string)             {}
func (noopTelemetry) SessionCompleted(string, error) {}

type noopSessionLog struct{}

func (noopSessionLog) Record(context.Context, *metrics.SessionSnapshot) error { return nil }

// Config holds the controller's timing parameters.
type Config struct {
	SessionDuration time.Duration
	DisplayRefresh  time.Duration
	CloudTimeout    time.Duration
	IdleInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionDuration: 30 * time.Second,
		DisplayRefresh:  500 * time.Millisecond,
		CloudTimeout:    30 * time.Second,
		IdleInterval:    time.Millisecond,
	}
}
