package telemetry

import (
	"database/sql"

	"codeberg.org/mutker/weatheragent/internal/errors"
)

// InitSchema creates the cycles table.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS cycles (
            session_id   TEXT    NOT NULL,
            cycle        INTEGER NOT NULL,
            timestamp    INTEGER NOT NULL,
            attempts     INTEGER NOT NULL,
            successes    INTEGER NOT NULL,
            accepted     INTEGER NOT NULL,
            rejected     INTEGER NOT NULL,
            observations INTEGER NOT NULL,
            success_rate REAL    NOT NULL,
            delay_ms     INTEGER NOT NULL,
            adjustment   TEXT    NOT NULL,
            quality      REAL    NOT NULL,
            discarded    INTEGER NOT NULL CHECK (discarded IN (0, 1)),
            PRIMARY KEY (session_id, cycle)
        )
    `)
	if err != nil {
		return errors.New().Wrap(ErrSchemaInitFailed, err)
	}

	return nil
}
