package storage

import (
	"context"
	"time"

	"github.com/tanksentry/tanksentry/pkg/model"
)

// Store defines the persistence layer for sensor readings, alert records and
// cooldown state.
type Store interface {
	// RecordReading persists a single sensor reading.
	RecordReading(ctx context.Context, reading *model.Reading) error

	// QueryReadings retrieves readings matching the filter, newest first.
	QueryReadings(ctx context.Context, filter model.ReadingFilter) ([]model.Reading, error)

	// RecordAlert persists a dispatched alert.
	RecordAlert(ctx context.Context, record *model.AlertRecord) error

	// QueryAlerts retrieves alert records matching the filter, newest first.
	QueryAlerts(ctx context.Context, filter model.AlertFilter) ([]model.AlertRecord, error)

	// SaveCooldown records the last-fired time for an alert class.
	SaveCooldown(ctx context.Context, class model.CooldownClass, firedAt time.Time) error

	// LoadCooldowns returns all persisted last-fired times.
	LoadCooldowns(ctx context.Context) (map[model.CooldownClass]time.Time, error)

	// Close releases resources.
	Close() error
}
