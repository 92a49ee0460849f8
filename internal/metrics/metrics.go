package metrics

import (
	"context"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/logger"
)

type service struct {
	repo SessionRepository
	cfg  Config
}

type noopSessionCollector struct{}

// NewService returns the session log, or a no-op collector when it is
// disabled.
func NewService(cfg Config, log logger.Logger) (SessionCollector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Session log disabled, using no-op collector")
		return &noopSessionCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create session repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Session log initialized successfully")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *SessionSnapshot) error {
	errFactory := errors.New()

	if snapshot == nil || snapshot.Mode == "" {
		return errFactory.New(ErrInvalidSession)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(snapshot); err != nil {
			return errFactory.Wrap(ErrSessionCollection, err)
		}
	}

	return nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]*SessionSnapshot, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return nil, errFactory.Wrap(ErrOperationTimeout, err)
	}
	if limit <= 0 {
		return nil, nil
	}

	return s.repo.Recent(limit)
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopSessionCollector) Record(_ context.Context, _ *SessionSnapshot) error {
	return nil
}

func (*noopSessionCollector) Recent(_ context.Context, _ int) ([]*SessionSnapshot, error) {
	return nil, nil
}

func (*noopSessionCollector) Close() error {
	return nil
}
