package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tanksentry/tanksentry/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Store interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) RecordReading(ctx context.Context, reading *model.Reading) error {
	if reading.ID == "" {
		reading.ID = uuid.New().String()
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}
	if reading.DeviceID == "" {
		reading.DeviceID = "unknown"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (id, device_id, distance_cm, water_level_cm, gallons, fill_percentage, battery_voltage, wifi_rssi, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.ID, reading.DeviceID, reading.Distance, reading.WaterLevel,
		reading.Gallons, reading.FillPercentage, reading.BatteryVoltage,
		reading.SignalStrength, reading.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *SQLite) QueryReadings(ctx context.Context, filter model.ReadingFilter) ([]model.Reading, error) {
	query := `SELECT id, device_id, distance_cm, water_level_cm, gallons, fill_percentage, battery_voltage, wifi_rssi, timestamp
		FROM readings`
	var args []any
	if !filter.Since.IsZero() {
		query += " WHERE timestamp >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []model.Reading
	for rows.Next() {
		var r model.Reading
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.Distance, &r.WaterLevel,
			&r.Gallons, &r.FillPercentage, &r.BatteryVoltage, &r.SignalStrength,
			&r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *SQLite) RecordAlert(ctx context.Context, record *model.AlertRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	if record.DeviceID == "" {
		record.DeviceID = "unknown"
	}

	var daysRemaining sql.NullFloat64
	if record.DaysRemaining != nil {
		daysRemaining = sql.NullFloat64{Float64: *record.DaysRemaining, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, type, severity, current_level, previous_level, percent_change,
			current_gallons, previous_gallons, battery_voltage, usage_rate, days_remaining, device_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Type, record.Severity, record.CurrentLevel, record.PreviousLevel,
		record.PercentChange, record.CurrentGallons, record.PreviousGallons,
		record.BatteryVoltage, record.UsageRate, daysRemaining, record.DeviceID, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) QueryAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertRecord, error) {
	query := `SELECT id, type, severity, current_level, previous_level, percent_change,
		current_gallons, previous_gallons, battery_voltage, usage_rate, days_remaining, device_id, timestamp
		FROM alerts`
	var conditions []string
	var args []any
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var records []model.AlertRecord
	for rows.Next() {
		var r model.AlertRecord
		var daysRemaining sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Type, &r.Severity, &r.CurrentLevel, &r.PreviousLevel,
			&r.PercentChange, &r.CurrentGallons, &r.PreviousGallons, &r.BatteryVoltage,
			&r.UsageRate, &daysRemaining, &r.DeviceID, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		if daysRemaining.Valid {
			v := daysRemaining.Float64
			r.DaysRemaining = &v
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) SaveCooldown(ctx context.Context, class model.CooldownClass, firedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cooldown_state (class, fired_at) VALUES (?, ?)
		 ON CONFLICT(class) DO UPDATE SET fired_at = excluded.fired_at`,
		class, firedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save cooldown: %w", err)
	}
	return nil
}

func (s *SQLite) LoadCooldowns(ctx context.Context) (map[model.CooldownClass]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT class, fired_at FROM cooldown_state")
	if err != nil {
		return nil, fmt.Errorf("load cooldowns: %w", err)
	}
	defer rows.Close()

	state := make(map[model.CooldownClass]time.Time)
	for rows.Next() {
		var class model.CooldownClass
		var firedAt time.Time
		if err := rows.Scan(&class, &firedAt); err != nil {
			return nil, fmt.Errorf("scan cooldown row: %w", err)
		}
		state[class] = firedAt
	}
	return state, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
