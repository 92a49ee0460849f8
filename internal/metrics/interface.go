package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/hrvmon/internal/hrv"
	"github.com/google/uuid"
)

// SessionCollector records completed measurement sessions.
type SessionCollector interface {
	Record(ctx context.Context, snapshot *SessionSnapshot) error
	Recent(ctx context.Context, limit int) ([]*SessionSnapshot, error)
	Close() error
}

// SessionRepository defines the interface for session storage
type SessionRepository interface {
	Record(snapshot *SessionSnapshot) error
	Recent(limit int) ([]*SessionSnapshot, error)
	Close() error
}

// SessionSnapshot is one finished HRV session.
type SessionSnapshot struct {
	ID        uuid.UUID
	Mode      string
	Source    string
	StartedAt time.Time
	Duration  time.Duration
	PPICount  int
	Stats     hrv.Statistics
}
