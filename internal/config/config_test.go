package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanksentry/tanksentry/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Listen)
	assert.Equal(t, 5*time.Minute, cfg.Poll.Interval)
	assert.Equal(t, 10*time.Second, cfg.Sensor.FetchTimeout)
	assert.Equal(t, 2*time.Second, cfg.Sensor.TriggerDelay)
	assert.InDelta(t, 20.0, cfg.Thresholds.LowPct, 0.001)
	assert.InDelta(t, 10.0, cfg.Thresholds.CriticalPct, 0.001)
	assert.InDelta(t, 5.0, cfg.Thresholds.EmergencyPct, 0.001)
	assert.InDelta(t, 15.0, cfg.Thresholds.RapidDropPct, 0.001)
	assert.Equal(t, 30*time.Minute, cfg.Cooldowns.Normal)
	assert.Equal(t, time.Duration(0), cfg.Cooldowns.Emergency)
	assert.InDelta(t, 11.0, cfg.Battery.LowVoltage, 0.001)
	assert.False(t, cfg.Engine.PersistCooldowns)
	assert.True(t, cfg.Push.Enabled)
	assert.Equal(t, "tank_alerts", cfg.Push.Topic)
	assert.False(t, cfg.Email.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
storage:
  path: /tmp/test.db
sensor:
  address: 10.0.0.42
  port: 8080
thresholds:
  low_pct: 25
cooldowns:
  critical: 10m
logging:
  level: debug
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, "10.0.0.42", cfg.Sensor.Address)
	assert.Equal(t, "http://10.0.0.42:8080", cfg.SensorBaseURL())
	assert.InDelta(t, 25.0, cfg.Thresholds.LowPct, 0.001)
	assert.Equal(t, 10*time.Minute, cfg.Cooldowns.Critical)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TANKSENTRY_LOGGING_LEVEL", "error")
	t.Setenv("TANKSENTRY_SERVER_LISTEN", ":7070")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Server.Listen)
}

func TestLoad_InvalidThresholdOrder(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
thresholds:
  low_pct: 10
  critical_pct: 20
  emergency_pct: 5
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "thresholds")
}

func TestLoad_EmailEnabledNeedsHost(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := []byte(`
email:
  enabled: true
`)
	err := os.WriteFile(cfgPath, data, 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	err := os.WriteFile(cfgPath, []byte("invalid: [yaml"), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	assert.Error(t, err)
}
