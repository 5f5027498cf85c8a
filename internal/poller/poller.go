package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/tanksentry/tanksentry/pkg/engine"
	"github.com/tanksentry/tanksentry/pkg/model"
)

// Fetcher retrieves the current sensor status.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.Reading, error)
}

// Poller drives the engine on a fixed interval. A failed fetch means no new
// data for that tick; there is no retry or backoff before the next tick.
type Poller struct {
	fetcher  Fetcher
	engine   *engine.Engine
	interval time.Duration
	logger   *slog.Logger
}

// New creates a poller.
func New(fetcher Fetcher, eng *engine.Engine, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		engine:   eng,
		interval: interval,
		logger:   logger,
	}
}

// Run polls until the context is cancelled. The first fetch happens after
// one full interval.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("poller started", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	reading, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.logger.Warn("sensor fetch failed, skipping tick", "error", err)
		return
	}

	p.engine.Ingest(ctx, reading)
	p.logger.Info("scheduled reading completed",
		"fill_percentage", reading.FillPercentage,
		"gallons", reading.Gallons,
	)
}
