package storage

import (
	"database/sql"

	"codeberg.org/mutker/weatheragent/internal/errors"
	"codeberg.org/mutker/weatheragent/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS observations (
	       id           INTEGER PRIMARY KEY AUTOINCREMENT,
	       session_id   TEXT    NOT NULL,
	       timestamp    INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       city         TEXT    NOT NULL CHECK (city <> ''),
	       target       TEXT    NOT NULL,
	       temperature  REAL    NOT NULL,
	       humidity     REAL    NOT NULL CHECK (humidity BETWEEN 0 AND 100),
	       description  TEXT    NOT NULL CHECK (description <> ''),
	       cycle        INTEGER NOT NULL,
	       scheduled_at INTEGER NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS idx_observations_session ON observations (session_id, id);`

	insertObservationSQL = `
    INSERT INTO observations (
        session_id, timestamp,
        city, target,
        temperature, humidity, description,
        cycle, scheduled_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectObservationsSQL = `
    SELECT timestamp, city, target, temperature, humidity, description, cycle, scheduled_at
    FROM observations
    WHERE session_id = ?
    ORDER BY id`
)

// InitSchema creates the observation schema and records its version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "create_tables",
			Error: err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Phase string
			Error string
		}{
			Phase: "record_version",
			Error: err.Error(),
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Observation schema initialized")

	return nil
}

// GetSchemaVersion returns the recorded schema version, or 0 for a new database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return exists, nil
}
