package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"pricebot/internal/alerting"
	"pricebot/internal/fetcher"
	"pricebot/internal/pricing"
	"pricebot/internal/service"
	"pricebot/internal/storage"
)

// SimulateOptions describe a synthetic price move applied to every tracked currency.
type SimulateOptions struct {
	Old    decimal.Decimal
	New    decimal.Decimal
	DryRun bool
	Out    io.Writer
}

// SimulateAlert runs one check against an in-memory baseline holding opts.Old
// while the source reports opts.New. Nothing is persisted. With DryRun the
// alert is written to opts.Out instead of Telegram.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) (service.Result, error) {
	if !opts.Old.IsPositive() || !opts.New.IsPositive() {
		return service.Result{}, errors.New("old and new prices must be greater than zero")
	}

	var notifier alerting.Notifier
	if opts.DryRun {
		notifier = &writerNotifier{out: opts.Out}
	} else {
		if err := a.Config.ValidateBot(); err != nil {
			return service.Result{}, err
		}
		tgBot, err := a.newBot(nil)
		if err != nil {
			return service.Result{}, err
		}
		notifier = alerting.NewTelegramNotifier(tgBot, a.Logger)
	}

	kv, err := storage.NewMemoryKV()
	if err != nil {
		return service.Result{}, err
	}
	defer kv.Close()
	st := a.newStores(kv)

	currencies := pricing.ParseCurrencies(a.Config.Price.Currencies)
	if err := st.baseline.Commit(ctx, uniformSnapshot(currencies, opts.Old)); err != nil {
		return service.Result{}, err
	}
	source := &staticSource{snapshot: uniformSnapshot(currencies, opts.New), currencies: currencies}

	svc := a.newService(st, nil, source, notifier)
	res, err := svc.RunCheck(ctx)
	if err != nil {
		return res, err
	}
	if res.Outcome != service.OutcomeNotified {
		a.Logger.Info().Str("outcome", string(res.Outcome)).Msg("simulated move did not cross the threshold")
	}
	return res, nil
}

func uniformSnapshot(currencies []pricing.Currency, price decimal.Decimal) pricing.Snapshot {
	prices := make(map[pricing.Currency]decimal.Decimal, len(currencies))
	for _, c := range currencies {
		prices[c] = price
	}
	return pricing.NewSnapshot(prices)
}

type staticSource struct {
	snapshot   pricing.Snapshot
	currencies []pricing.Currency
}

func (s *staticSource) Fetch(context.Context) (pricing.Snapshot, error) {
	return s.snapshot, nil
}

func (s *staticSource) Currencies() []pricing.Currency {
	return s.currencies
}

// writerNotifier prints alerts instead of sending them.
type writerNotifier struct {
	out io.Writer
}

func (w *writerNotifier) SendText(_ context.Context, chatID int64, text string) error {
	_, err := fmt.Fprintf(w.out, "--- chat %d ---\n%s\n", chatID, text)
	return err
}

func (w *writerNotifier) SendPhoto(_ context.Context, chatID int64, path, caption string) error {
	_, err := fmt.Fprintf(w.out, "--- chat %d (photo %s) ---\n%s\n", chatID, path, caption)
	return err
}

var _ fetcher.PriceSource = (*staticSource)(nil)
var _ alerting.Notifier = (*writerNotifier)(nil)
