package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot and the price checker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single price check and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := getApp().Check(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "outcome: %s\n", res.Outcome)
		if res.Message != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "delivered: %d failed: %d\n", res.Delivered, res.Failed)
		}
		return nil
	},
}
