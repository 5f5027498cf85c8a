package engine

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/tanksentry/tanksentry/pkg/model"
	"github.com/tanksentry/tanksentry/pkg/notify"
	"github.com/tanksentry/tanksentry/pkg/storage"
)

// Dispatcher sends decided alerts. Delivery is best effort; failures stay
// inside the dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert notify.Alert)
}

// Options configure the engine.
type Options struct {
	Thresholds        Thresholds
	Cooldowns         map[model.CooldownClass]time.Duration
	BatteryLowVoltage float64
	PersistCooldowns  bool

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Result summarizes one evaluation cycle.
type Result struct {
	Evaluated  bool
	Severity   model.Severity
	Primary    *model.AlertRecord
	Battery    *model.AlertRecord
	Predictive *model.AlertRecord
}

// Engine owns all alerting state: the current reading, the cooldown gate and
// the usage trend window. Every ingestion path funnels through Ingest, which
// serializes evaluations under one mutex.
type Engine struct {
	mu         sync.Mutex
	opts       Options
	gate       *Gate
	window     *TrendWindow
	store      storage.Store
	dispatcher Dispatcher
	logger     *slog.Logger
	current    *model.Reading
	now        func() time.Time
}

// New creates an engine with the given collaborators.
func New(opts Options, store storage.Store, dispatcher Dispatcher, logger *slog.Logger) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		opts:       opts,
		gate:       NewGate(opts.Cooldowns),
		window:     NewTrendWindow(),
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
		now:        now,
	}
}

// RestoreCooldowns seeds the gate from persisted state. No-op unless cooldown
// persistence is enabled.
func (e *Engine) RestoreCooldowns(ctx context.Context) error {
	if !e.opts.PersistCooldowns {
		return nil
	}
	state, err := e.store.LoadCooldowns(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate.Restore(state)
	return nil
}

// CurrentReading returns a copy of the most recent reading, or nil if none
// has been ingested yet.
func (e *Engine) CurrentReading() *model.Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	reading := *e.current
	return &reading
}

// Ingest stores a reading and runs one evaluation pass against the previous
// one. Store failures are logged and do not block evaluation; the reading
// still becomes the new current reading. Decided alerts are dispatched after
// the engine lock is released, so a slow channel cannot stall later
// ingestions.
func (e *Engine) Ingest(ctx context.Context, reading *model.Reading) *Result {
	result, pending := e.ingest(ctx, reading)
	for _, alert := range pending {
		e.dispatcher.Dispatch(ctx, alert)
	}
	return result
}

func (e *Engine) ingest(ctx context.Context, reading *model.Reading) (*Result, []notify.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now.UTC()
	}

	if err := e.store.RecordReading(ctx, reading); err != nil {
		e.logger.Error("store reading", "device_id", reading.DeviceID, "error", err)
	}

	previous := e.current
	e.current = reading

	if previous == nil {
		e.logger.Debug("first reading cached, no evaluation",
			"fill_percentage", reading.FillPercentage)
		return &Result{}, nil
	}

	return e.evaluate(ctx, reading, previous, now)
}

// evaluate runs the per-reading decision pass and returns the alerts to send
// once the lock is released. Caller holds the mutex.
func (e *Engine) evaluate(ctx context.Context, current, previous *model.Reading, now time.Time) (*Result, []notify.Alert) {
	percentChange := math.Abs(current.FillPercentage - previous.FillPercentage)
	isDrop := current.FillPercentage < previous.FillPercentage

	e.window.Append(model.UsageSample{
		Timestamp:      current.Timestamp,
		Gallons:        current.Gallons,
		FillPercentage: current.FillPercentage,
	})

	severity := Classify(current.FillPercentage, isDrop, percentChange, e.opts.Thresholds)
	result := &Result{Evaluated: true, Severity: severity}

	usageRate := e.window.UsageRate(now)
	var daysRemaining *float64
	if days, ok := e.window.DaysRemaining(current.Gallons, now); ok {
		daysRemaining = &days
	}

	var pending []notify.Alert

	// Primary alert: at most one class per cycle.
	if primary, ok := choosePrimary(current.FillPercentage, isDrop, percentChange, severity, e.opts.Thresholds); ok {
		if e.gate.MayFire(primary.class, now) {
			alert := notify.Alert{
				Type:            primary.alertType,
				Severity:        severity,
				CurrentLevel:    current.FillPercentage,
				PreviousLevel:   previous.FillPercentage,
				PercentChange:   percentChange,
				CurrentGallons:  current.Gallons,
				PreviousGallons: previous.Gallons,
				BatteryVoltage:  current.BatteryVoltage,
				UsageRate:       usageRate,
				DeviceID:        current.DeviceID,
				Timestamp:       now.UTC(),
			}
			result.Primary = e.commit(ctx, primary.class, alert, daysRemaining, now)
			pending = append(pending, alert)
		} else {
			e.logger.Debug("primary alert suppressed by cooldown",
				"class", primary.class, "type", primary.alertType)
		}
	}

	// Battery and predictive checks are orthogonal side channels and may
	// fire in the same cycle as the primary alert.
	if alert := e.batteryAlert(current, previous, usageRate, now); alert != nil {
		result.Battery = e.commit(ctx, model.ClassBattery, *alert, nil, now)
		pending = append(pending, *alert)
	}
	if alert := e.predictiveAlert(current, previous, usageRate, daysRemaining, now); alert != nil {
		result.Predictive = e.commit(ctx, model.ClassPredictive, *alert, daysRemaining, now)
		pending = append(pending, *alert)
	}

	return result, pending
}

// batteryAlert decides a battery alert when voltage is reported and below the
// configured floor. Nil when the condition does not hold or the class is
// cooling down.
func (e *Engine) batteryAlert(current, previous *model.Reading, usageRate float64, now time.Time) *notify.Alert {
	voltage := current.BatteryVoltage
	if voltage <= 0 || voltage >= e.opts.BatteryLowVoltage {
		return nil
	}
	if !e.gate.MayFire(model.ClassBattery, now) {
		return nil
	}

	return &notify.Alert{
		Type:            model.AlertTypeBattery,
		Severity:        model.SeverityNormal,
		CurrentLevel:    current.FillPercentage,
		PreviousLevel:   previous.FillPercentage,
		CurrentGallons:  current.Gallons,
		PreviousGallons: previous.Gallons,
		BatteryVoltage:  voltage,
		UsageRate:       usageRate,
		DeviceID:        current.DeviceID,
		Timestamp:       now.UTC(),
	}
}

// predictiveAlert decides a depletion forecast alert when the trend projects
// the tank empty within a day.
func (e *Engine) predictiveAlert(current, previous *model.Reading, usageRate float64, daysRemaining *float64, now time.Time) *notify.Alert {
	if daysRemaining == nil || *daysRemaining > 1 {
		return nil
	}
	if !e.gate.MayFire(model.ClassPredictive, now) {
		return nil
	}

	return &notify.Alert{
		Type:            model.AlertTypePredictive,
		Severity:        model.SeverityCritical,
		CurrentLevel:    current.FillPercentage,
		PreviousLevel:   previous.FillPercentage,
		CurrentGallons:  current.Gallons,
		PreviousGallons: previous.Gallons,
		BatteryVoltage:  current.BatteryVoltage,
		UsageRate:       usageRate,
		HoursRemaining:  *daysRemaining * 24,
		DeviceID:        current.DeviceID,
		Timestamp:       now.UTC(),
	}
}

// commit records the cooldown and persists an AlertRecord for a decided
// alert. The cooldown stands regardless of delivery outcome; the actual send
// happens once the lock is released.
func (e *Engine) commit(ctx context.Context, class model.CooldownClass, alert notify.Alert, daysRemaining *float64, now time.Time) *model.AlertRecord {
	e.gate.RecordFire(class, now)

	if e.opts.PersistCooldowns {
		if err := e.store.SaveCooldown(ctx, class, now); err != nil {
			e.logger.Error("persist cooldown", "class", class, "error", err)
		}
	}

	record := &model.AlertRecord{
		Type:            alert.Type,
		Severity:        alert.Severity,
		CurrentLevel:    alert.CurrentLevel,
		PreviousLevel:   alert.PreviousLevel,
		PercentChange:   alert.PercentChange,
		CurrentGallons:  alert.CurrentGallons,
		PreviousGallons: alert.PreviousGallons,
		BatteryVoltage:  alert.BatteryVoltage,
		UsageRate:       alert.UsageRate,
		DaysRemaining:   daysRemaining,
		DeviceID:        alert.DeviceID,
		Timestamp:       alert.Timestamp,
	}
	if err := e.store.RecordAlert(ctx, record); err != nil {
		e.logger.Error("store alert", "type", alert.Type, "error", err)
	}
	return record
}
