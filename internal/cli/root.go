package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanksentry/tanksentry/internal/config"
	"github.com/tanksentry/tanksentry/pkg/notify"
	"github.com/tanksentry/tanksentry/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tanksentry",
	Short: "TankSentry - Water tank monitoring and alerting",
	Long: `TankSentry monitors a remote tank level sensor, classifies readings
against configurable severity thresholds, forecasts depletion from the usage
trend, and dispatches alerts through push and email channels with per-class
cooldowns.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.tanksentry/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage creates a storage backend from config.
func initStorage(cfg *config.Config) (storage.Store, error) {
	return storage.NewSQLite(cfg.Storage.Path)
}

// initDispatcher creates the notification dispatcher from config.
func initDispatcher(cfg *config.Config, logger *slog.Logger) (*notify.Dispatcher, error) {
	templates, err := notify.LoadTemplates(cfg.Notify.Templates)
	if err != nil {
		return nil, err
	}

	var push notify.Notifier
	if cfg.Push.Enabled && cfg.Push.URL != "" {
		push = notify.NewPushNotifier(cfg.Push.URL, cfg.Push.ServerKey, cfg.Push.Topic)
	}

	var email notify.Notifier
	if cfg.Email.Enabled {
		email = notify.NewEmailNotifier(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.Username,
			cfg.Email.Password,
			cfg.Email.From,
			cfg.Email.To,
		)
	}

	return notify.NewDispatcher(push, email, templates, logger), nil
}
