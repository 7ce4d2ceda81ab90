package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pricebot/internal/app"
	"pricebot/internal/config"
	"pricebot/internal/logging"
)

var (
	cfgFile   string
	envFiles  []string
	logLevel  string
	logFormat string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "pricebot",
	Short:         "Telegram bot that alerts chats when a tracked price moves past a threshold",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile, envFiles...)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if logFormat != "" {
			cfg.Logging.Format = logFormat
		}

		logger := logging.NewLogger(cfg.Logging).With().
			Str("app", cfg.App.Name).
			Str("env", cfg.App.Environment).
			Logger()
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Path to a YAML configuration file (default ./config.yaml when present)")
	flags.StringSliceVar(&envFiles, "env-file", nil, "Env files to load instead of ./.env")
	flags.StringVar(&logLevel, "log-level", "", "Override logging.level")
	flags.StringVar(&logFormat, "log-format", "", "Override logging.format (json|console)")

	rootCmd.AddCommand(runCmd, checkCmd, showCmd, simulateCmd, destinationsCmd, assetsCmd, versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
