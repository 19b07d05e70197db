package storage

import (
	"context"

	"codeberg.org/mutker/weatheragent/internal/weather"
)

// Store persists accepted observations per session.
type Store interface {
	Append(ctx context.Context, sessionID string, obs []weather.Observation) error
	Close() error
}

// Repository is the SQLite-backed persistence layer behind Store.
type Repository interface {
	Insert(records []Record) error
	Observations(ctx context.Context, sessionID string) ([]weather.Observation, error)
	Flush() error
	Close() error
}

// Record is one persisted row.
type Record struct {
	SessionID   string
	Observation weather.Observation
}
