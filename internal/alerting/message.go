package alerting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pricebot/internal/pricing"
)

// Alert is everything needed to render one price-move announcement.
type Alert struct {
	AssetName     string
	Currencies    []pricing.Currency
	Old           pricing.Snapshot
	New           pricing.Snapshot
	Changes       pricing.ChangeSet
	Trigger       pricing.Change
	Threshold     decimal.Decimal
	ChatLink      string
	PricePlaces   int32
	PercentPlaces int32
}

// RenderAlert formats the alert body, one line per tracked currency.
func RenderAlert(a Alert) string {
	var b strings.Builder

	icon, verb := "📈", "up"
	if a.Trigger.Direction() == pricing.DirectionDown {
		icon, verb = "📉", "down"
	}
	fmt.Fprintf(&b, "%s %s price is %s %s%% (%s)\n\n",
		icon, assetName(a.AssetName), verb,
		pricing.FormatPercent(a.Trigger.Percent, a.PercentPlaces), a.Trigger.Currency.Upper())

	for _, c := range a.Currencies {
		b.WriteString(currencyLine(a, c))
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nThreshold: %s%%", a.Threshold.StringFixed(a.PercentPlaces))
	if a.ChatLink != "" {
		fmt.Fprintf(&b, "\n%s", a.ChatLink)
	}
	return b.String()
}

func currencyLine(a Alert, c pricing.Currency) string {
	current, ok := a.New.Price(c)
	if !ok {
		return fmt.Sprintf("%s: n/a", c.Upper())
	}
	newStr := current.StringFixed(a.PricePlaces)

	old, ok := a.Old.Price(c)
	if !ok {
		return fmt.Sprintf("%s: — → %s (no prior value)", c.Upper(), newStr)
	}
	change, ok := a.Changes.Lookup(c)
	if !ok {
		// zero baseline, no meaningful percentage
		return fmt.Sprintf("%s: %s → %s", c.Upper(), old.StringFixed(a.PricePlaces), newStr)
	}
	return fmt.Sprintf("%s: %s → %s (%s%%)", c.Upper(), old.StringFixed(a.PricePlaces), newStr,
		pricing.FormatPercent(change.Percent, a.PercentPlaces))
}

// RenderPrices formats an on-demand price query answer.
func RenderPrices(name string, currencies []pricing.Currency, snapshot pricing.Snapshot, places int32) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💰 %s price\n", assetName(name))
	for _, c := range currencies {
		p, ok := snapshot.Price(c)
		if !ok {
			fmt.Fprintf(&b, "%s: n/a\n", c.Upper())
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", c.Upper(), p.StringFixed(places))
	}
	return strings.TrimRight(b.String(), "\n")
}

func assetName(name string) string {
	if name == "" {
		return "Asset"
	}
	return name
}
