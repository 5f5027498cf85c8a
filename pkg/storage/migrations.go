package storage

import (
	"database/sql"
	"fmt"
)

var migrations = []string{
	// Migration 1: Initial schema
	`CREATE TABLE IF NOT EXISTS readings (
		id              TEXT PRIMARY KEY,
		device_id       TEXT NOT NULL DEFAULT 'unknown',
		distance_cm     REAL NOT NULL DEFAULT 0.0,
		water_level_cm  REAL NOT NULL DEFAULT 0.0,
		gallons         REAL NOT NULL DEFAULT 0.0,
		fill_percentage REAL NOT NULL DEFAULT 0.0,
		battery_voltage REAL NOT NULL DEFAULT 0.0,
		wifi_rssi       REAL NOT NULL DEFAULT 0.0,
		timestamp       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings(timestamp);
	CREATE INDEX IF NOT EXISTS idx_readings_device ON readings(device_id);

	CREATE TABLE IF NOT EXISTS alerts (
		id               TEXT PRIMARY KEY,
		type             TEXT NOT NULL,
		severity         TEXT NOT NULL,
		current_level    REAL NOT NULL DEFAULT 0.0,
		previous_level   REAL NOT NULL DEFAULT 0.0,
		percent_change   REAL NOT NULL DEFAULT 0.0,
		current_gallons  REAL NOT NULL DEFAULT 0.0,
		previous_gallons REAL NOT NULL DEFAULT 0.0,
		battery_voltage  REAL NOT NULL DEFAULT 0.0,
		usage_rate       REAL NOT NULL DEFAULT 0.0,
		days_remaining   REAL,
		device_id        TEXT NOT NULL DEFAULT 'unknown',
		timestamp        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_type ON alerts(type);

	CREATE TABLE IF NOT EXISTS cooldown_state (
		class    TEXT PRIMARY KEY,
		fired_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`,
}

// runMigrations applies pending schema migrations.
func runMigrations(db *sql.DB) error {
	// Ensure migration tracking table exists
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("run migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
