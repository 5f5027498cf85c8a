package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanksentry/tanksentry/pkg/model"
	"github.com/tanksentry/tanksentry/pkg/notify"
)

var testAlertCmd = &cobra.Command{
	Use:   "test-alert",
	Short: "Send a test notification through the configured channels",
	RunE:  runTestAlert,
}

func init() {
	rootCmd.AddCommand(testAlertCmd)
	testAlertCmd.Flags().String("device", "tank_monitor_01", "Device id to report in the test alert")
}

func runTestAlert(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deviceID, _ := cmd.Flags().GetString("device")
	logger := newLogger(cfg)

	dispatcher, err := initDispatcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}

	dispatcher.Dispatch(cmd.Context(), notify.Alert{
		Type:      model.AlertTypeTest,
		Severity:  model.SeverityNormal,
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
	})

	fmt.Println("Test alert dispatched. Check your notification channels and the service log.")
	return nil
}
