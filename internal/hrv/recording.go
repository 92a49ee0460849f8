package hrv

import (
	"time"

	"github.com/google/uuid"
)

// Recording holds the pulse-to-pulse intervals and averaged heart rates
// collected while one session is active. It belongs to that session alone
// and is dropped when the session ends.
type Recording struct {
	ID        uuid.UUID
	StartedAt time.Time
	PPIs      []int // ms, in detection order
	HRs       []int // averaged BPM, in emission order
}

// NewRecording starts an empty recording.
func NewRecording(startedAt time.Time) *Recording {
	return &Recording{
		ID:        uuid.New(),
		StartedAt: startedAt,
		PPIs:      make([]int, 0, 64),
		HRs:       make([]int, 0, 64),
	}
}

func (r *Recording) AddPPI(ms int) {
	r.PPIs = append(r.PPIs, ms)
}

func (r *Recording) AddHR(bpm int) {
	r.HRs = append(r.HRs, bpm)
}

// Statistics computes the session metrics from the recording.
func (r *Recording) Statistics(at time.Time) (Statistics, error) {
	stats, err := Compute(r.PPIs, r.HRs)
	if err != nil {
		return Statistics{}, err
	}
	stats.Time = at

	return stats, nil
}
