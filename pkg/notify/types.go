package notify

import (
	"context"
	"time"

	"github.com/tanksentry/tanksentry/pkg/model"
)

// Alert is a decided alert handed to the dispatcher. It carries everything a
// channel needs to render and send a notification.
type Alert struct {
	Type            model.AlertType `json:"type"`
	Severity        model.Severity  `json:"severity"`
	CurrentLevel    float64         `json:"current_level"`
	PreviousLevel   float64         `json:"previous_level"`
	PercentChange   float64         `json:"change"`
	CurrentGallons  float64         `json:"gallons"`
	PreviousGallons float64         `json:"previous_gallons"`
	BatteryVoltage  float64         `json:"battery_voltage,omitempty"`
	UsageRate       float64         `json:"usage_rate,omitempty"`
	HoursRemaining  float64         `json:"hours_remaining,omitempty"`
	DeviceID        string          `json:"device_id"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Direction describes which way the level moved. Used by message templates.
func (a Alert) Direction() string {
	if a.CurrentLevel < a.PreviousLevel {
		return "decreased"
	}
	return "increased"
}

// Message is a rendered notification ready for a channel.
type Message struct {
	Title string
	Body  string
	Alert Alert
}

// Notifier sends notifications through one channel.
type Notifier interface {
	// Name returns the channel identifier.
	Name() string

	// Send delivers a message. Implementations must be safe for concurrent use.
	Send(ctx context.Context, msg Message) error
}
