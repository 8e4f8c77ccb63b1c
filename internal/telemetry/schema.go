package telemetry

import (
	"database/sql"

	"github.com/zkalam/smart-thermal-control/internal/errors"
	"github.com/zkalam/smart-thermal-control/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS control_samples (
	       timestamp          INTEGER NOT NULL,
	       temperature        REAL NOT NULL,
	       target_temperature REAL NOT NULL,
	       commanded_power    REAL NOT NULL,
	       actual_power       REAL NOT NULL,
	       control_mode       TEXT NOT NULL,
	       safety_level       TEXT NOT NULL,
	       active_alarms      INTEGER NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS alarm_events (
	       event_id    TEXT PRIMARY KEY,
	       alarm_id    TEXT NOT NULL,
	       severity    TEXT NOT NULL,
	       message     TEXT NOT NULL,
	       timestamp   INTEGER NOT NULL,
	       temperature REAL NOT NULL,
	       state       TEXT NOT NULL
	   );`

	insertSampleSQL = `
    INSERT INTO control_samples (
        timestamp, temperature, target_temperature,
        commanded_power, actual_power,
        control_mode, safety_level, active_alarms
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertAlarmSQL = `
    INSERT INTO alarm_events (
        event_id, alarm_id, severity, message, timestamp, temperature, state
    ) VALUES (?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(event_id) DO UPDATE SET state = excluded.state`
)

// InitSchema creates the database schema and records the current version.
func InitSchema(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	logger.Info().Int("version", SchemaVersion).Msg("Telemetry schema initialized")

	return nil
}

// GetSchemaVersion returns the schema version recorded in the database,
// or 0 for an uninitialized database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := tableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version FROM schema_versions
        ORDER BY version DESC LIMIT 1
    `).Scan(&version)
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}

	return version, nil
}

func tableExists(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(`
        SELECT COUNT(*) FROM sqlite_master
        WHERE type = 'table' AND name = ?
    `, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// validateOrInitSchema initializes an empty database and rejects one
// written by a different schema version.
func validateOrInitSchema(db *sql.DB) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	switch version {
	case 0:
		return InitSchema(db)
	case SchemaVersion:
		return nil
	default:
		return errors.New().WithData(ErrSchemaValidationFailed, struct {
			Found    int
			Expected int
		}{
			Found:    version,
			Expected: SchemaVersion,
		})
	}
}
