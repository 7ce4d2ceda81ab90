package cli

import (
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display live prices, the stored baseline, settings and destinations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), cmd.OutOrStdout())
	},
}
