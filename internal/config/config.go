package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all TankSentry configuration.
type Config struct {
	Sensor     SensorConfig     `mapstructure:"sensor"`
	Poll       PollConfig       `mapstructure:"poll"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Cooldowns  CooldownsConfig  `mapstructure:"cooldowns"`
	Battery    BatteryConfig    `mapstructure:"battery"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Push       PushConfig       `mapstructure:"push"`
	Email      EmailConfig      `mapstructure:"email"`
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SensorConfig defines how the remote sensor is reached.
type SensorConfig struct {
	Address      string        `mapstructure:"address"`
	Port         int           `mapstructure:"port"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	TriggerDelay time.Duration `mapstructure:"trigger_delay"`
}

// PollConfig defines the periodic reading schedule.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ThresholdsConfig holds the severity and change thresholds, all in
// fill percentage points.
type ThresholdsConfig struct {
	ChangePct    float64 `mapstructure:"change_pct"`
	LowPct       float64 `mapstructure:"low_pct"`
	CriticalPct  float64 `mapstructure:"critical_pct"`
	EmergencyPct float64 `mapstructure:"emergency_pct"`
	RapidDropPct float64 `mapstructure:"rapid_drop_pct"`
}

// CooldownsConfig holds per-class minimum intervals between dispatches.
// A zero duration disables suppression for that class.
type CooldownsConfig struct {
	Normal     time.Duration `mapstructure:"normal"`
	Drop       time.Duration `mapstructure:"drop"`
	Critical   time.Duration `mapstructure:"critical"`
	Emergency  time.Duration `mapstructure:"emergency"`
	Battery    time.Duration `mapstructure:"battery"`
	Predictive time.Duration `mapstructure:"predictive"`
}

// BatteryConfig defines the low-battery alert condition.
type BatteryConfig struct {
	LowVoltage float64 `mapstructure:"low_voltage"`
}

// EngineConfig holds engine behavior switches.
type EngineConfig struct {
	PersistCooldowns bool `mapstructure:"persist_cooldowns"`
}

// PushConfig defines the push notification channel.
type PushConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	URL       string `mapstructure:"url"`
	ServerKey string `mapstructure:"server_key"`
	Topic     string `mapstructure:"topic"`
}

// EmailConfig defines the email notification channel.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// ServerConfig defines the HTTP API listener.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// NotifyConfig holds notification presentation settings.
type NotifyConfig struct {
	// Templates is an optional YAML file overriding built-in alert titles
	// and bodies.
	Templates string `mapstructure:"templates"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".tanksentry"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("sensor.address", "192.168.86.90")
	v.SetDefault("sensor.port", 80)
	v.SetDefault("sensor.fetch_timeout", "10s")
	v.SetDefault("sensor.trigger_delay", "2s")
	v.SetDefault("poll.interval", "5m")
	v.SetDefault("thresholds.change_pct", 10.0)
	v.SetDefault("thresholds.low_pct", 20.0)
	v.SetDefault("thresholds.critical_pct", 10.0)
	v.SetDefault("thresholds.emergency_pct", 5.0)
	v.SetDefault("thresholds.rapid_drop_pct", 15.0)
	v.SetDefault("cooldowns.normal", "30m")
	v.SetDefault("cooldowns.drop", "30m")
	v.SetDefault("cooldowns.critical", "5m")
	v.SetDefault("cooldowns.emergency", "0s")
	v.SetDefault("cooldowns.battery", "30m")
	v.SetDefault("cooldowns.predictive", "5m")
	v.SetDefault("battery.low_voltage", 11.0)
	v.SetDefault("engine.persist_cooldowns", false)
	v.SetDefault("push.enabled", true)
	v.SetDefault("push.topic", "tank_alerts")
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("server.listen", ":5000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("storage.path", filepath.Join(home, ".tanksentry", "tanksentry.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("TANKSENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks invariants that the rest of the system relies on.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.EmergencyPct > t.CriticalPct || t.CriticalPct > t.LowPct {
		return fmt.Errorf("thresholds must satisfy emergency (%.1f) <= critical (%.1f) <= low (%.1f)",
			t.EmergencyPct, t.CriticalPct, t.LowPct)
	}
	if t.RapidDropPct < 0 || t.ChangePct < 0 {
		return fmt.Errorf("change thresholds must be non-negative")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Email.Enabled && (c.Email.SMTPHost == "" || c.Email.To == "") {
		return fmt.Errorf("email enabled but smtp_host or to is empty")
	}
	return nil
}

// SensorBaseURL returns the sensor's HTTP base address.
func (c *Config) SensorBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Sensor.Address, c.Sensor.Port)
}
