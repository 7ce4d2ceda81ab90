package cli

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pricebot/internal/app"
)

var (
	simulateOld    float64
	simulateNew    float64
	simulateDryRun bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Simulate a price move and deliver the resulting alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOld <= 0 || simulateNew <= 0 {
			return errors.New("--old and --new must be greater than zero")
		}

		res, err := getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Old:    decimal.NewFromFloat(simulateOld),
			New:    decimal.NewFromFloat(simulateNew),
			DryRun: simulateDryRun,
			Out:    cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "outcome: %s\n", res.Outcome)
		return nil
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateOld, "old", 0, "Baseline price applied to every currency")
	simulateCmd.Flags().Float64Var(&simulateNew, "new", 0, "Current price applied to every currency")
	simulateCmd.Flags().BoolVar(&simulateDryRun, "dry-run", false, "Print the alert instead of sending it")
}
