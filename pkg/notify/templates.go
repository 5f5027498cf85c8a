package notify

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/tanksentry/tanksentry/pkg/model"
	"gopkg.in/yaml.v3"
)

// MessageTemplate defines the title and body for one alert type. Bodies are
// text/template strings evaluated against an Alert.
type MessageTemplate struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Templates maps every alert type to its notification text.
type Templates map[model.AlertType]MessageTemplate

// DefaultTemplates returns the built-in notification texts.
func DefaultTemplates() Templates {
	return Templates{
		model.AlertTypeChange: {
			Title: "Tank Water Level Alert",
			Body:  `Water level {{.Direction}} by {{printf "%.1f" .PercentChange}}% (now {{printf "%.1f" .CurrentLevel}}%)`,
		},
		model.AlertTypeLowLevel: {
			Title: "Low Water Level",
			Body:  `Tank level is low: {{printf "%.1f" .CurrentLevel}}% ({{printf "%.0f" .CurrentGallons}} gallons remaining)`,
		},
		model.AlertTypeCritical: {
			Title: "Critical Water Level",
			Body:  `Tank level is critical: {{printf "%.1f" .CurrentLevel}}% ({{printf "%.0f" .CurrentGallons}} gallons remaining)`,
		},
		model.AlertTypeEmergency: {
			Title: "EMERGENCY: Tank Nearly Empty",
			Body:  `Tank level is at {{printf "%.1f" .CurrentLevel}}% ({{printf "%.0f" .CurrentGallons}} gallons). Immediate action required.`,
		},
		model.AlertTypeRapidDrop: {
			Title: "Rapid Water Level Drop",
			Body:  `Water level dropped {{printf "%.1f" .PercentChange}}% since the last reading (now {{printf "%.1f" .CurrentLevel}}%). Check for leaks or heavy usage.`,
		},
		model.AlertTypeBattery: {
			Title: "Low Battery Alert",
			Body:  `Well sensor battery is low: {{printf "%.1f" .BatteryVoltage}}V. Please check power source.`,
		},
		model.AlertTypePredictive: {
			Title: "Water Depletion Forecast",
			Body:  `At the current usage rate ({{printf "%.1f" .UsageRate}} gal/h) the tank will be empty in about {{printf "%.0f" .HoursRemaining}} hours.`,
		},
		model.AlertTypeTest: {
			Title: "Test Alert",
			Body:  `Test notification from TankSentry for device {{.DeviceID}}.`,
		},
	}
}

// LoadTemplates returns the defaults overlaid with entries from the given
// YAML file. An empty path returns the defaults unchanged.
func LoadTemplates(path string) (Templates, error) {
	templates := DefaultTemplates()
	if path == "" {
		return templates, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}

	var overrides map[model.AlertType]MessageTemplate
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}

	for alertType, override := range overrides {
		tmpl := templates[alertType]
		if override.Title != "" {
			tmpl.Title = override.Title
		}
		if override.Body != "" {
			tmpl.Body = override.Body
		}
		templates[alertType] = tmpl
	}
	return templates, nil
}

// Render produces the title and body for an alert.
func (t Templates) Render(alert Alert) (title, body string, err error) {
	tmpl, ok := t[alert.Type]
	if !ok {
		return "", "", fmt.Errorf("no template for alert type %q", alert.Type)
	}

	parsed, err := template.New(string(alert.Type)).Parse(tmpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse body template for %q: %w", alert.Type, err)
	}

	var buf bytes.Buffer
	if err := parsed.Execute(&buf, alert); err != nil {
		return "", "", fmt.Errorf("render body for %q: %w", alert.Type, err)
	}
	return tmpl.Title, buf.String(), nil
}
