package notify

import (
	"context"
	"log/slog"

	"github.com/tanksentry/tanksentry/pkg/model"
)

// Dispatcher routes decided alerts through the configured channels. Push is
// always attempted; email only for severities that warrant it. Channel
// failures are logged and isolated from each other; an alert counts as fired
// once dispatch is attempted.
type Dispatcher struct {
	push      Notifier
	email     Notifier
	templates Templates
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. Either channel may be nil when
// disabled.
func NewDispatcher(push, email Notifier, templates Templates, logger *slog.Logger) *Dispatcher {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Dispatcher{
		push:      push,
		email:     email,
		templates: templates,
		logger:    logger,
	}
}

// Dispatch sends the alert through each applicable channel, best effort.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) {
	title, body, err := d.templates.Render(alert)
	if err != nil {
		d.logger.Error("render alert message", "type", alert.Type, "error", err)
		title = "Tank Alert"
		body = string(alert.Type)
	}

	msg := Message{Title: title, Body: body, Alert: alert}

	if d.push != nil {
		if err := d.push.Send(ctx, msg); err != nil {
			d.logger.Error("send alert failed",
				"channel", d.push.Name(),
				"type", alert.Type,
				"error", err,
			)
		}
	}

	if d.email != nil && wantsEmail(alert) {
		if err := d.email.Send(ctx, msg); err != nil {
			d.logger.Error("send alert failed",
				"channel", d.email.Name(),
				"type", alert.Type,
				"error", err,
			)
		}
	}

	d.logger.Info("alert dispatched",
		"type", alert.Type,
		"severity", alert.Severity,
		"current_level", alert.CurrentLevel,
		"device_id", alert.DeviceID,
	)
}

// wantsEmail reports whether the alert is severe enough for the email
// channel. Predictive alerts always qualify.
func wantsEmail(alert Alert) bool {
	if alert.Type == model.AlertTypePredictive {
		return true
	}
	return alert.Severity == model.SeverityCritical || alert.Severity == model.SeverityEmergency
}
