package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"pricebot/internal/app"
	"pricebot/internal/config"
)

func useTestApp(t *testing.T) {
	t.Helper()
	cfg := &config.Config{
		Price:     config.PriceConfig{AssetID: "flower-2", Currencies: []string{"usd"}},
		Scheduler: config.SchedulerConfig{DefaultInterval: time.Minute},
		Storage: config.StorageConfig{
			Backend: config.BackendBunt,
			Path:    filepath.Join(t.TempDir(), "bot.db"),
		},
	}
	appHandle = app.NewApp(cfg, zerolog.Nop())
	t.Cleanup(func() { appHandle = nil })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, c := range []*cobra.Command{destinationsAddCmd, destinationsRemoveCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDestinationsAcceptNegativeGroupIDs(t *testing.T) {
	useTestApp(t)

	_, err := execute(t, "destinations", "add", "--id", "-1001234567890", "--name", "Flower Club")
	require.NoError(t, err)
	_, err = execute(t, "destinations", "add", "--", "-1009876543210", "Second", "Room")
	require.NoError(t, err)

	out, err := execute(t, "destinations", "list")
	require.NoError(t, err)
	require.Contains(t, out, "-1001234567890")
	require.Contains(t, out, "Flower Club")
	require.Contains(t, out, "Second Room")

	_, err = execute(t, "destinations", "remove", "--id=-1001234567890")
	require.NoError(t, err)
	_, err = execute(t, "destinations", "remove", "--", "-1009876543210")
	require.NoError(t, err)

	out, err = execute(t, "destinations", "list")
	require.NoError(t, err)
	require.Contains(t, out, "no destinations registered")
}

func TestDestinationsRejectMissingOrZeroID(t *testing.T) {
	useTestApp(t)

	_, err := execute(t, "destinations", "add")
	require.ErrorContains(t, err, "chat id required")
	_, err = execute(t, "destinations", "add", "--id", "0")
	require.Error(t, err)
	_, err = execute(t, "destinations", "add", "abc")
	require.ErrorContains(t, err, "invalid chat id")
}
