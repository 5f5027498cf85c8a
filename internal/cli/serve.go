package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanksentry/tanksentry/internal/config"
	"github.com/tanksentry/tanksentry/internal/poller"
	"github.com/tanksentry/tanksentry/internal/server"
	"github.com/tanksentry/tanksentry/pkg/engine"
	"github.com/tanksentry/tanksentry/pkg/model"
	"github.com/tanksentry/tanksentry/pkg/sensor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring service",
	Long:  `Start the sensor poller, alert decision engine and HTTP API.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func cooldownDurations(cfg *config.Config) map[model.CooldownClass]time.Duration {
	return map[model.CooldownClass]time.Duration{
		model.ClassNormal:     cfg.Cooldowns.Normal,
		model.ClassDrop:       cfg.Cooldowns.Drop,
		model.ClassCritical:   cfg.Cooldowns.Critical,
		model.ClassEmergency:  cfg.Cooldowns.Emergency,
		model.ClassBattery:    cfg.Cooldowns.Battery,
		model.ClassPredictive: cfg.Cooldowns.Predictive,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	logger := newLogger(cfg)

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	dispatcher, err := initDispatcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}

	eng := engine.New(engine.Options{
		Thresholds: engine.Thresholds{
			ChangePct:    cfg.Thresholds.ChangePct,
			LowPct:       cfg.Thresholds.LowPct,
			CriticalPct:  cfg.Thresholds.CriticalPct,
			EmergencyPct: cfg.Thresholds.EmergencyPct,
			RapidDropPct: cfg.Thresholds.RapidDropPct,
		},
		Cooldowns:         cooldownDurations(cfg),
		BatteryLowVoltage: cfg.Battery.LowVoltage,
		PersistCooldowns:  cfg.Engine.PersistCooldowns,
	}, store, dispatcher, logger)

	if err := eng.RestoreCooldowns(cmd.Context()); err != nil {
		return fmt.Errorf("restore cooldown state: %w", err)
	}

	sensorClient := sensor.NewClient(cfg.SensorBaseURL(), cfg.Sensor.FetchTimeout, cfg.Sensor.TriggerDelay)

	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.New(sensorClient, eng, cfg.Poll.Interval, logger).Run(pollCtx)

	apiServer := server.New(eng, store, sensorClient, cfg, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("tanksentry started",
			"listen", cfg.Server.Listen,
			"sensor", cfg.SensorBaseURL(),
			"poll_interval", cfg.Poll.Interval.String(),
		)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		stopPoller()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("tanksentry stopped")
	return nil
}
