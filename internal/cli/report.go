package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tanksentry/tanksentry/pkg/model"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recent readings and alerts",
	Long:  `Print recent sensor readings and dispatched alerts from the local store.`,
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Duration("window", 24*time.Hour, "How far back to look")
	reportCmd.Flags().Int("limit", 100, "Maximum rows per section")
	reportCmd.Flags().Bool("alerts-only", false, "Skip the readings section")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	window, _ := cmd.Flags().GetDuration("window")
	limit, _ := cmd.Flags().GetInt("limit")
	alertsOnly, _ := cmd.Flags().GetBool("alerts-only")

	store, err := initStorage(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	since := time.Now().UTC().Add(-window)
	fmt.Printf("=== TankSentry Report (last %s) ===\n\n", window)

	if !alertsOnly {
		readings, err := store.QueryReadings(cmd.Context(), model.ReadingFilter{Since: since, Limit: limit})
		if err != nil {
			return fmt.Errorf("query readings: %w", err)
		}

		fmt.Printf("Readings: %d\n", len(readings))
		if len(readings) > 0 {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "  TIMESTAMP\tFILL%%\tGALLONS\tBATTERY\tRSSI\n")
			for _, r := range readings {
				fmt.Fprintf(w, "  %s\t%.1f\t%.0f\t%.1fV\t%.0f\n",
					r.Timestamp.Format("2006-01-02 15:04"),
					r.FillPercentage, r.Gallons, r.BatteryVoltage, r.SignalStrength,
				)
			}
			w.Flush()
		}
		fmt.Println()
	}

	alerts, err := store.QueryAlerts(cmd.Context(), model.AlertFilter{Since: since, Limit: limit})
	if err != nil {
		return fmt.Errorf("query alerts: %w", err)
	}

	fmt.Printf("Alerts: %d\n", len(alerts))
	if len(alerts) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  TIMESTAMP\tTYPE\tSEVERITY\tLEVEL\tCHANGE\tRATE\n")
		for _, a := range alerts {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%.1f%%\t%.1f\t%.1f gal/h\n",
				a.Timestamp.Format("2006-01-02 15:04"),
				a.Type, a.Severity, a.CurrentLevel, a.PercentChange, a.UsageRate,
			)
		}
		w.Flush()
	}

	return nil
}
