package alerting

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricebot/internal/pricing"
)

func TestRenderAlert(t *testing.T) {
	currencies := []pricing.Currency{"usd", "rub", "uah"}
	old := pricing.NewSnapshot(map[pricing.Currency]decimal.Decimal{
		"usd": decimal.NewFromInt(100),
		"uah": decimal.NewFromInt(0),
	})
	current := pricing.NewSnapshot(map[pricing.Currency]decimal.Decimal{
		"usd": decimal.NewFromInt(80),
		"rub": decimal.NewFromInt(9000),
		"uah": decimal.NewFromInt(5),
	})
	changes := pricing.Compare(old, current, currencies)
	trigger, ok := changes.Strongest()
	require.True(t, ok)

	text := RenderAlert(Alert{
		AssetName:     "Flower",
		Currencies:    currencies,
		Old:           old,
		New:           current,
		Changes:       changes,
		Trigger:       trigger,
		Threshold:     decimal.NewFromInt(10),
		ChatLink:      "https://t.me/example",
		PricePlaces:   2,
		PercentPlaces: 2,
	})

	lines := strings.Split(text, "\n")
	require.Equal(t, "📉 Flower price is down -20.00% (USD)", lines[0])
	require.Contains(t, text, "USD: 100.00 → 80.00 (-20.00%)")
	require.Contains(t, text, "RUB: — → 9000.00 (no prior value)")
	require.Contains(t, text, "UAH: 0.00 → 5.00\n")
	require.Contains(t, text, "Threshold: 10.00%")
	require.True(t, strings.HasSuffix(text, "https://t.me/example"))
}

func TestRenderAlertUp(t *testing.T) {
	currencies := []pricing.Currency{"usd"}
	old := pricing.NewSnapshot(map[pricing.Currency]decimal.Decimal{"usd": decimal.NewFromInt(100)})
	current := pricing.NewSnapshot(map[pricing.Currency]decimal.Decimal{"usd": decimal.NewFromInt(120)})
	changes := pricing.Compare(old, current, currencies)

	text := RenderAlert(Alert{
		Currencies:    currencies,
		Old:           old,
		New:           current,
		Changes:       changes,
		Trigger:       changes[0],
		Threshold:     decimal.NewFromInt(10),
		PricePlaces:   4,
		PercentPlaces: 2,
	})
	require.True(t, strings.HasPrefix(text, "📈 Asset price is up +20.00% (USD)"))
	require.Contains(t, text, "USD: 100.0000 → 120.0000 (+20.00%)")
}

func TestRenderPrices(t *testing.T) {
	snap := pricing.NewSnapshot(map[pricing.Currency]decimal.Decimal{
		"usd": decimal.RequireFromString("0.01234"),
	})
	text := RenderPrices("Flower", []pricing.Currency{"usd", "rub"}, snap, 4)
	require.Equal(t, "💰 Flower price\nUSD: 0.0123\nRUB: n/a", text)
}
