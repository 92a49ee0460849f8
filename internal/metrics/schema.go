package metrics

import (
	"database/sql"
	"fmt"

	"codeberg.org/mutker/hrvmon/internal/errors"
	"codeberg.org/mutker/hrvmon/internal/logger"
)

// SchemaVersion is stored in the database header as PRAGMA user_version.
const SchemaVersion = 1

const (
	createSessionsSQL = `
	   CREATE TABLE IF NOT EXISTS sessions (
	       id           TEXT PRIMARY KEY,
	       mode         TEXT NOT NULL,
	       source       TEXT NOT NULL,
	       started_at   INTEGER NOT NULL CHECK (typeof(started_at) = 'integer'),
	       duration_ms  INTEGER NOT NULL CHECK (typeof(duration_ms) = 'integer'),
	       ppi_count    INTEGER NOT NULL CHECK (ppi_count >= 0),
	       computed_at  INTEGER NOT NULL CHECK (typeof(computed_at) = 'integer'),
	       mean_ppi     REAL NOT NULL,
	       mean_hr      INTEGER NOT NULL CHECK (typeof(mean_hr) = 'integer'),
	       sdnn         REAL NOT NULL,
	       rmssd        REAL NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS sessions_started_at ON sessions (started_at);`

	insertSessionSQL = `
    INSERT INTO sessions (
        id, mode, source,
        started_at, duration_ms, ppi_count,
        computed_at, mean_ppi, mean_hr, sdnn, rmssd
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecentSQL = `
    SELECT id, mode, source,
           started_at, duration_ms, ppi_count,
           computed_at, mean_ppi, mean_hr, sdnn, rmssd
    FROM sessions
    ORDER BY started_at DESC
    LIMIT ?`
)

// InitSchema creates the session tables and stamps the schema version.
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

	// user_version does not accept bound parameters.
	steps := []struct{ phase, sql string }{
		{"create_tables", createSessionsSQL},
		{"record_version", fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)},
	}
	for _, step := range steps {
		if _, err := tx.Exec(step.sql); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Phase string
				Error string
			}{
				Phase: step.phase,
				Error: err.Error(),
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the stamped schema version, or 0 for a database
// this package has never initialized.
func GetSchemaVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}
	return version, nil
}
