package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricebot/internal/app"
)

var (
	assetsDir   string
	assetsForce bool
)

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Render the default up/down alert images",
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := getApp().GenerateAssets(app.AssetsOptions{Dir: assetsDir, Force: assetsForce})
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	assetsCmd.Flags().StringVar(&assetsDir, "dir", "", "Output directory (defaults to alerting.assets_dir)")
	assetsCmd.Flags().BoolVar(&assetsForce, "force", false, "Overwrite existing images")
}
