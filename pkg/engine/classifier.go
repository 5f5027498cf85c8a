package engine

import "github.com/tanksentry/tanksentry/pkg/model"

// Thresholds holds the classification boundaries, all in fill percentage
// points. Must satisfy Emergency <= Critical <= Low.
type Thresholds struct {
	ChangePct    float64
	LowPct       float64
	CriticalPct  float64
	EmergencyPct float64
	RapidDropPct float64
}

// severityRule is one entry in the ordered classification table. First match
// wins.
type severityRule struct {
	severity model.Severity
	matches  func(currentPct float64, isDrop bool, percentChange float64, t Thresholds) bool
}

var severityRules = []severityRule{
	{model.SeverityEmergency, func(pct float64, _ bool, _ float64, t Thresholds) bool {
		return pct <= t.EmergencyPct
	}},
	{model.SeverityCritical, func(pct float64, _ bool, _ float64, t Thresholds) bool {
		return pct <= t.CriticalPct
	}},
	{model.SeverityLow, func(pct float64, _ bool, _ float64, t Thresholds) bool {
		return pct <= t.LowPct
	}},
	{model.SeverityRapidDrop, func(_ float64, isDrop bool, change float64, t Thresholds) bool {
		return isDrop && change >= t.RapidDropPct
	}},
}

// Classify maps a reading pair to a severity. Pure and deterministic.
func Classify(currentPct float64, isDrop bool, percentChange float64, t Thresholds) model.Severity {
	for _, rule := range severityRules {
		if rule.matches(currentPct, isDrop, percentChange, t) {
			return rule.severity
		}
	}
	return model.SeverityNormal
}

// primaryAlert is a chosen primary alert class and type for one evaluation.
type primaryAlert struct {
	class     model.CooldownClass
	alertType model.AlertType
}

// primaryRule is one entry in the ordered primary-alert precedence table.
type primaryRule struct {
	alert   primaryAlert
	matches func(currentPct float64, isDrop bool, percentChange float64, severity model.Severity, t Thresholds) bool
}

var primaryRules = []primaryRule{
	{primaryAlert{model.ClassDrop, model.AlertTypeRapidDrop},
		func(_ float64, isDrop bool, change float64, _ model.Severity, t Thresholds) bool {
			return isDrop && change >= t.RapidDropPct
		}},
	{primaryAlert{model.ClassEmergency, model.AlertTypeEmergency},
		func(_ float64, _ bool, _ float64, severity model.Severity, _ Thresholds) bool {
			return severity == model.SeverityEmergency
		}},
	{primaryAlert{model.ClassCritical, model.AlertTypeCritical},
		func(_ float64, _ bool, _ float64, severity model.Severity, _ Thresholds) bool {
			return severity == model.SeverityCritical
		}},
	{primaryAlert{model.ClassNormal, model.AlertTypeChange},
		func(_ float64, _ bool, change float64, _ model.Severity, t Thresholds) bool {
			return change >= t.ChangePct
		}},
	{primaryAlert{model.ClassNormal, model.AlertTypeLowLevel},
		func(pct float64, _ bool, _ float64, _ model.Severity, t Thresholds) bool {
			return pct <= t.LowPct
		}},
}

// choosePrimary picks at most one primary alert per evaluation cycle.
// Precedence mirrors the ordered table; rapid drops outrank level alerts.
func choosePrimary(currentPct float64, isDrop bool, percentChange float64, severity model.Severity, t Thresholds) (primaryAlert, bool) {
	for _, rule := range primaryRules {
		if rule.matches(currentPct, isDrop, percentChange, severity, t) {
			return rule.alert, true
		}
	}
	return primaryAlert{}, false
}
