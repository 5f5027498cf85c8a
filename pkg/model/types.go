package model

import "time"

// Reading is a single observation reported by the tank sensor. Field names on
// the wire match the device firmware payload.
type Reading struct {
	ID             string    `json:"id,omitempty" db:"id"`
	DeviceID       string    `json:"device_id" db:"device_id"`
	Distance       float64   `json:"distance_cm" db:"distance_cm"`
	WaterLevel     float64   `json:"water_level_cm" db:"water_level_cm"`
	Gallons        float64   `json:"gallons" db:"gallons"`
	FillPercentage float64   `json:"fill_percentage" db:"fill_percentage"`
	BatteryVoltage float64   `json:"battery_voltage" db:"battery_voltage"`
	SignalStrength float64   `json:"wifi_rssi" db:"wifi_rssi"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
}

// Severity is the ordered classification of tank state.
type Severity string

const (
	SeverityNormal    Severity = "normal"
	SeverityRapidDrop Severity = "rapid_drop"
	SeverityLow       Severity = "low"
	SeverityCritical  Severity = "critical"
	SeverityEmergency Severity = "emergency"
)

// Rank returns the severity's position in the escalation order. Higher is
// more severe. rapid_drop is an orthogonal condition and ranks with normal.
func (s Severity) Rank() int {
	switch s {
	case SeverityEmergency:
		return 3
	case SeverityCritical:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AlertType identifies what condition produced an alert.
type AlertType string

const (
	AlertTypeChange     AlertType = "change"
	AlertTypeLowLevel   AlertType = "low_level"
	AlertTypeCritical   AlertType = "critical_level"
	AlertTypeEmergency  AlertType = "emergency_level"
	AlertTypeRapidDrop  AlertType = "rapid_drop"
	AlertTypeBattery    AlertType = "low_battery"
	AlertTypePredictive AlertType = "predictive"
	AlertTypeTest       AlertType = "test"
)

// AlertRecord is the persisted form of a dispatched alert. Never mutated
// after creation.
type AlertRecord struct {
	ID              string    `json:"id" db:"id"`
	Type            AlertType `json:"type" db:"type"`
	Severity        Severity  `json:"severity" db:"severity"`
	CurrentLevel    float64   `json:"current_level" db:"current_level"`
	PreviousLevel   float64   `json:"previous_level" db:"previous_level"`
	PercentChange   float64   `json:"percent_change" db:"percent_change"`
	CurrentGallons  float64   `json:"current_gallons" db:"current_gallons"`
	PreviousGallons float64   `json:"previous_gallons" db:"previous_gallons"`
	BatteryVoltage  float64   `json:"battery_voltage,omitempty" db:"battery_voltage"`
	UsageRate       float64   `json:"usage_rate" db:"usage_rate"`
	DaysRemaining   *float64  `json:"days_remaining,omitempty" db:"days_remaining"`
	DeviceID        string    `json:"device_id" db:"device_id"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
}

// UsageSample is one point in the consumption trend window.
type UsageSample struct {
	Timestamp      time.Time `json:"timestamp"`
	Gallons        float64   `json:"gallons"`
	FillPercentage float64   `json:"fill_percentage"`
}

// CooldownClass buckets alerts for notification rate limiting. Each class is
// cooled independently.
type CooldownClass string

const (
	ClassNormal     CooldownClass = "normal"
	ClassDrop       CooldownClass = "drop"
	ClassCritical   CooldownClass = "critical"
	ClassEmergency  CooldownClass = "emergency"
	ClassBattery    CooldownClass = "battery"
	ClassPredictive CooldownClass = "predictive"
)

// CooldownClasses lists every class the gate tracks.
var CooldownClasses = []CooldownClass{
	ClassNormal, ClassDrop, ClassCritical, ClassEmergency, ClassBattery, ClassPredictive,
}

// ReadingFilter bounds a readings query.
type ReadingFilter struct {
	Since time.Time `json:"since,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// AlertFilter bounds an alerts query.
type AlertFilter struct {
	Since time.Time `json:"since,omitempty"`
	Type  AlertType `json:"type,omitempty"`
	Limit int       `json:"limit,omitempty"`
}
