package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tanksentry/tanksentry/pkg/engine"
	"github.com/tanksentry/tanksentry/pkg/model"
)

func defaultThresholds() engine.Thresholds {
	return engine.Thresholds{
		ChangePct:    10,
		LowPct:       20,
		CriticalPct:  10,
		EmergencyPct: 5,
		RapidDropPct: 15,
	}
}

func TestClassify_Levels(t *testing.T) {
	thresholds := defaultThresholds()

	tests := []struct {
		name          string
		currentPct    float64
		isDrop        bool
		percentChange float64
		want          model.Severity
	}{
		{"empty tank", 0, true, 2, model.SeverityEmergency},
		{"at emergency threshold", 5, false, 0, model.SeverityEmergency},
		{"critical", 8, true, 1, model.SeverityCritical},
		{"at critical threshold", 10, false, 0, model.SeverityCritical},
		{"low", 12, true, 1, model.SeverityLow},
		{"at low threshold", 20, false, 0, model.SeverityLow},
		{"rapid drop above low", 40, true, 18, model.SeverityRapidDrop},
		{"big rise is not a rapid drop", 40, false, 18, model.SeverityNormal},
		{"healthy", 80, true, 2, model.SeverityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Classify(tt.currentPct, tt.isDrop, tt.percentChange, thresholds)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_LevelOutranksRapidDrop(t *testing.T) {
	// Scenario B severity: fill 12 with an 18-point drop classifies as low,
	// because level rules precede the rapid-drop rule.
	got := engine.Classify(12, true, 18, defaultThresholds())
	assert.Equal(t, model.SeverityLow, got)
}

func TestClassify_MonotonicInLevel(t *testing.T) {
	thresholdSets := []engine.Thresholds{
		defaultThresholds(),
		{LowPct: 50, CriticalPct: 25, EmergencyPct: 10, RapidDropPct: 100},
		{LowPct: 30, CriticalPct: 30, EmergencyPct: 30, RapidDropPct: 100},
	}

	for _, thresholds := range thresholdSets {
		prevRank := -1
		// Walk fill level downward; severity rank must never decrease.
		for pct := 100.0; pct >= 0; pct -= 0.5 {
			severity := engine.Classify(pct, false, 0, thresholds)
			rank := severity.Rank()
			assert.GreaterOrEqual(t, rank, prevRank,
				"severity rank regressed at %.1f%% with thresholds %+v", pct, thresholds)
			prevRank = rank
		}
	}
}
