package app

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"pricebot/internal/pricing"
)

// Show prints live prices against the stored baseline, followed by the
// runtime settings and the registered destinations.
func (a *App) Show(ctx context.Context, out io.Writer) error {
	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	source := a.newFetcher()
	current, fetchErr := source.Fetch(ctx)
	if fetchErr != nil {
		fmt.Fprintf(out, "live prices unavailable: %v\n", fetchErr)
	}
	baseline, hasBaseline, err := st.baseline.Load(ctx)
	if err != nil {
		return err
	}

	places := a.Config.Alerting.PricePlaces
	changes := pricing.Compare(baseline, current, source.Currencies())
	prices := tablewriter.NewWriter(out)
	prices.SetHeader([]string{"Currency", "Baseline", "Current", "Change"})
	for _, c := range source.Currencies() {
		row := []string{c.Upper(), "-", "-", "-"}
		if p, ok := baseline.Price(c); ok {
			row[1] = p.StringFixed(places)
		}
		if p, ok := current.Price(c); ok {
			row[2] = p.StringFixed(places)
		}
		if ch, ok := changes.Lookup(c); ok {
			row[3] = pricing.FormatPercent(ch.Percent, a.Config.Alerting.PercentPlaces) + "%"
		}
		prices.Append(row)
	}
	prices.Render()
	if !hasBaseline {
		fmt.Fprintln(out, "no baseline stored yet; the next check will establish one")
	}

	settings, err := st.settings.Load(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Setting", "Value"})
	table.Append([]string{"threshold", settings.Threshold().String() + "%"})
	table.Append([]string{"interval", settings.Interval().String()})
	table.Append([]string{"default chat", strconv.FormatInt(a.Config.Telegram.DefaultChatID, 10)})
	table.Render()

	reg, err := st.registry.Load(ctx)
	if err != nil {
		return err
	}
	writeDestinations(out, reg.Destinations)
	admins := lo.Map(reg.AdminIDs, func(id int64, _ int) string { return strconv.FormatInt(id, 10) })
	fmt.Fprintf(out, "admins: %v\n", admins)
	return nil
}
