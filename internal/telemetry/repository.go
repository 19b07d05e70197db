package telemetry

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"

	_ "github.com/mattn/go-sqlite3"
)

type Repository interface {
	Store(ctx context.Context, snapshot *CycleSnapshot) error
	Cycles(ctx context.Context, sessionID string) ([]CycleSnapshot, error)
	Close() error
}

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	log.Debug().Str("path", cfg.DBPath).Msg("Initializing telemetry repository")

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	return &sqliteRepository{db: db}, nil
}

// Store upserts the snapshot keyed by session and cycle.
func (r *sqliteRepository) Store(ctx context.Context, s *CycleSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO cycles (
            session_id, cycle, timestamp,
            attempts, successes, accepted, rejected, observations,
            success_rate, delay_ms, adjustment, quality, discarded
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id, cycle) DO UPDATE SET
            timestamp = excluded.timestamp,
            attempts = excluded.attempts,
            successes = excluded.successes,
            accepted = excluded.accepted,
            rejected = excluded.rejected,
            observations = excluded.observations,
            success_rate = excluded.success_rate,
            delay_ms = excluded.delay_ms,
            adjustment = excluded.adjustment,
            quality = excluded.quality,
            discarded = excluded.discarded
    `,
		s.SessionID,
		s.Cycle,
		s.Timestamp.Unix(),
		s.Attempts,
		s.Successes,
		s.Accepted,
		s.Rejected,
		s.Observations,
		s.SuccessRate,
		s.Delay.Milliseconds(),
		s.Adjustment,
		s.Quality,
		boolToInt(s.Discarded),
	)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	return nil
}

// Cycles returns a session's snapshots ordered by cycle.
func (r *sqliteRepository) Cycles(ctx context.Context, sessionID string) ([]CycleSnapshot, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
        SELECT cycle, timestamp, attempts, successes, accepted, rejected, observations,
               success_rate, delay_ms, adjustment, quality, discarded
        FROM cycles
        WHERE session_id = ?
        ORDER BY cycle
    `, sessionID)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []CycleSnapshot
	for rows.Next() {
		var (
			s         = CycleSnapshot{SessionID: sessionID}
			ts        int64
			delayMS   int64
			discarded int
		)
		if err := rows.Scan(&s.Cycle, &ts, &s.Attempts, &s.Successes, &s.Accepted, &s.Rejected,
			&s.Observations, &s.SuccessRate, &delayMS, &s.Adjustment, &s.Quality, &discarded); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		s.Timestamp = time.Unix(ts, 0).UTC()
		s.Delay = time.Duration(delayMS) * time.Millisecond
		s.Discarded = discarded == 1
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return out, nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}
