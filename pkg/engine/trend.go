package engine

import (
	"time"

	"github.com/tanksentry/tanksentry/pkg/model"
)

const (
	sampleRetention = 48 * time.Hour
	rateWindow      = 24 * time.Hour
)

// TrendWindow keeps a bounded, time-ordered window of usage samples and
// derives a consumption rate and depletion forecast from it. Not safe for
// concurrent use; the engine serializes access.
type TrendWindow struct {
	samples []model.UsageSample
}

// NewTrendWindow creates an empty window.
func NewTrendWindow() *TrendWindow {
	return &TrendWindow{}
}

// Append adds a sample and prunes everything older than the retention
// window. Samples must arrive in timestamp order.
func (w *TrendWindow) Append(sample model.UsageSample) {
	w.samples = append(w.samples, sample)

	cutoff := sample.Timestamp.Add(-sampleRetention)
	firstKept := 0
	for firstKept < len(w.samples) && w.samples[firstKept].Timestamp.Before(cutoff) {
		firstKept++
	}
	if firstKept > 0 {
		w.samples = append(w.samples[:0], w.samples[firstKept:]...)
	}
}

// Len returns the number of retained samples.
func (w *TrendWindow) Len() int {
	return len(w.samples)
}

// UsageRate returns the consumption rate in gallons per hour over the 24h
// sub-window ending at now. Returns 0 with fewer than 2 qualifying samples
// or non-positive elapsed time. Negative rates (level rising) are valid.
func (w *TrendWindow) UsageRate(now time.Time) float64 {
	cutoff := now.Add(-rateWindow)

	firstIdx := -1
	lastIdx := -1
	for i, sample := range w.samples {
		if sample.Timestamp.Before(cutoff) {
			continue
		}
		if firstIdx == -1 {
			firstIdx = i
		}
		lastIdx = i
	}

	if firstIdx == -1 || firstIdx == lastIdx {
		return 0
	}

	first := w.samples[firstIdx]
	last := w.samples[lastIdx]
	elapsed := last.Timestamp.Sub(first.Timestamp).Hours()
	if elapsed <= 0 {
		return 0
	}
	return (first.Gallons - last.Gallons) / elapsed
}

// DaysRemaining forecasts time until the given volume reaches zero at the
// current usage rate. Returns false when no depletion forecast exists
// (rate <= 0).
func (w *TrendWindow) DaysRemaining(currentGallons float64, now time.Time) (float64, bool) {
	rate := w.UsageRate(now)
	if rate <= 0 {
		return 0, false
	}
	return currentGallons / (rate * 24), true
}
