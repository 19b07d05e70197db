// Package storage persists accepted observations to SQLite.
package storage

import (
	"context"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"
	"codeberg.org/mutker/weatheragent/internal/weather"
)

type service struct {
	repo Repository
	cfg  Config
}

type noopStore struct{}

// Noop returns a Store that discards everything.
func Noop() Store {
	return noopStore{}
}

// NewService returns a SQLite-backed Store, or a no-op one when storage is
// disabled.
func NewService(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Observation storage disabled, using no-op store")
		return Noop(), nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	return NewStore(repo, cfg), nil
}

// NewStore wraps an existing repository.
func NewStore(repo Repository, cfg Config) Store {
	return &service{repo: repo, cfg: cfg}
}

func (s *service) Append(ctx context.Context, sessionID string, obs []weather.Observation) error {
	errFactory := errors.New()

	if len(obs) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	records := make([]Record, len(obs))
	for i, o := range obs {
		records[i] = Record{SessionID: sessionID, Observation: o}
	}

	if err := s.repo.Insert(records); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func (noopStore) Append(context.Context, string, []weather.Observation) error { return nil }
func (noopStore) Close() error                                                { return nil }
