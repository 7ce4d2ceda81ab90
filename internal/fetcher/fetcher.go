package fetcher

import (
	"context"
	"errors"

	"pricebot/internal/pricing"
)

// ErrUnavailable marks every failure of a price source: transport, status,
// payload shape or a missing currency. Callers treat it as a skipped tick.
var ErrUnavailable = errors.New("price source unavailable")

// PriceSource retrieves the current multi-currency quote of the tracked asset.
type PriceSource interface {
	Fetch(ctx context.Context) (pricing.Snapshot, error)
	Currencies() []pricing.Currency
}
