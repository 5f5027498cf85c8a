package engine

import (
	"time"

	"github.com/tanksentry/tanksentry/pkg/model"
)

// Gate suppresses repeat alerts per class. A class with duration 0 is never
// suppressed. The gate has no knowledge of severity semantics; it is a pure
// state-transition component. Not safe for concurrent use; the engine
// serializes access.
type Gate struct {
	durations map[model.CooldownClass]time.Duration
	lastFired map[model.CooldownClass]time.Time
}

// NewGate creates a gate with the given per-class cooldown durations.
func NewGate(durations map[model.CooldownClass]time.Duration) *Gate {
	d := make(map[model.CooldownClass]time.Duration, len(durations))
	for class, duration := range durations {
		d[class] = duration
	}
	return &Gate{
		durations: d,
		lastFired: make(map[model.CooldownClass]time.Time),
	}
}

// MayFire reports whether the class is allowed to fire at the given time.
func (g *Gate) MayFire(class model.CooldownClass, now time.Time) bool {
	cooldown := g.durations[class]
	if cooldown == 0 {
		return true
	}
	last, ok := g.lastFired[class]
	if !ok {
		return true
	}
	return now.Sub(last) > cooldown
}

// RecordFire marks the class as fired. Last-fired times never move backwards.
func (g *Gate) RecordFire(class model.CooldownClass, now time.Time) {
	if last, ok := g.lastFired[class]; ok && now.Before(last) {
		return
	}
	g.lastFired[class] = now
}

// Restore seeds last-fired times, typically from persisted state at startup.
func (g *Gate) Restore(state map[model.CooldownClass]time.Time) {
	for class, firedAt := range state {
		g.RecordFire(class, firedAt)
	}
}

// Snapshot returns a copy of the last-fired times.
func (g *Gate) Snapshot() map[model.CooldownClass]time.Time {
	state := make(map[model.CooldownClass]time.Time, len(g.lastFired))
	for class, firedAt := range g.lastFired {
		state[class] = firedAt
	}
	return state
}
