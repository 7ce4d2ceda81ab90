package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricebot/internal/pricing"
)

const simplePricePath = "/simple/price"

// CoinGeckoOptions parameterise the CoinGecko fetcher.
type CoinGeckoOptions struct {
	BaseURL    string
	AssetID    string
	Currencies []pricing.Currency
	Timeout    time.Duration
	UserAgent  string
}

// CoinGecko fetches quotes from the CoinGecko simple price endpoint.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a CoinGecko price source.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Currencies returns the tracked currency order.
func (c *CoinGecko) Currencies() []pricing.Currency {
	out := make([]pricing.Currency, len(c.opts.Currencies))
	copy(out, c.opts.Currencies)
	return out
}

// AssetID returns the CoinGecko coin id being tracked.
func (c *CoinGecko) AssetID() string {
	return c.opts.AssetID
}

// Fetch issues one request and returns a snapshot with every tracked currency.
func (c *CoinGecko) Fetch(ctx context.Context) (pricing.Snapshot, error) {
	if c.opts.AssetID == "" {
		return pricing.Snapshot{}, fmt.Errorf("%w: asset id not configured", ErrUnavailable)
	}
	if len(c.opts.Currencies) == 0 {
		return pricing.Snapshot{}, fmt.Errorf("%w: no currencies configured", ErrUnavailable)
	}

	codes := make([]string, len(c.opts.Currencies))
	for i, cur := range c.opts.Currencies {
		codes[i] = string(cur)
	}

	query := url.Values{}
	query.Set("ids", c.opts.AssetID)
	query.Set("vs_currencies", strings.Join(codes, ","))
	endpoint := c.baseURL + simplePricePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pricing.Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pricebot/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return pricing.Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return pricing.Snapshot{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return pricing.Snapshot{}, parseHTTPError(resp.StatusCode, payload)
	}

	// {"flower-2": {"usd": 0.0123, "rub": 1.01}}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(payload, &raw); err != nil {
		return pricing.Snapshot{}, fmt.Errorf("%w: decode payload: %v", ErrUnavailable, err)
	}

	quotes, ok := raw[c.opts.AssetID]
	if !ok {
		return pricing.Snapshot{}, fmt.Errorf("%w: asset %q missing from response", ErrUnavailable, c.opts.AssetID)
	}

	prices := make(map[pricing.Currency]decimal.Decimal, len(c.opts.Currencies))
	for _, cur := range c.opts.Currencies {
		p, ok := quotes[string(cur)]
		if !ok {
			return pricing.Snapshot{}, fmt.Errorf("%w: currency %q missing from response", ErrUnavailable, cur)
		}
		// decimal decodes a JSON null as zero; treat it like a missing quote.
		if !p.IsPositive() {
			return pricing.Snapshot{}, fmt.Errorf("%w: currency %q has non-positive price %s", ErrUnavailable, cur, p.String())
		}
		prices[cur] = p
	}

	snapshot := pricing.NewSnapshot(prices)
	c.logger.Debug().Str("asset", c.opts.AssetID).Stringer("prices", snapshot).Msg("fetched prices")
	return snapshot, nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Status struct {
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Status.ErrorMessage != "" {
			return fmt.Errorf("%w: coingecko error (%d): %s", ErrUnavailable, status, apiErr.Status.ErrorMessage)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("%w: coingecko error (%d): %s", ErrUnavailable, status, apiErr.Error)
		}
	}
	if body := strings.TrimSpace(string(payload)); body != "" {
		return fmt.Errorf("%w: coingecko error (%d): %s", ErrUnavailable, status, body)
	}
	return fmt.Errorf("%w: coingecko error (%d)", ErrUnavailable, status)
}

var _ PriceSource = (*CoinGecko)(nil)
