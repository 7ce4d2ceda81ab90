package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricebot/internal/pricing"
)

var testCurrencies = []pricing.Currency{"usd", "rub", "uah"}

func newTestSource(baseURL string) *CoinGecko {
	return NewCoinGecko(CoinGeckoOptions{
		BaseURL:    baseURL,
		AssetID:    "flower-2",
		Currencies: testCurrencies,
		Timeout:    time.Second,
		UserAgent:  "test",
	}, noopLogger())
}

func TestCoinGeckoFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "flower-2", r.URL.Query().Get("ids"))
		require.Equal(t, "usd,rub,uah", r.URL.Query().Get("vs_currencies"))
		require.Equal(t, "test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"flower-2": map[string]float64{"usd": 0.0123, "rub": 1.01, "uah": 0.5},
		})
	}))
	defer srv.Close()

	snapshot, err := newTestSource(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, snapshot.Len())

	usd, ok := snapshot.Price("usd")
	require.True(t, ok)
	require.True(t, usd.Equal(decimal.RequireFromString("0.0123")), "unexpected usd price %s", usd)
}

func TestCoinGeckoFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": map[string]any{"error_code": 429, "error_message": "rate limited"}})
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnavailable))
	require.Contains(t, err.Error(), "rate limited")
}

func TestCoinGeckoFetchMissingAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCoinGeckoFetchMissingCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"flower-2":{"usd":1,"rub":2}}`))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.Contains(t, err.Error(), "uah")
}

func TestCoinGeckoFetchRejectsNonPositivePrice(t *testing.T) {
	bodies := map[string]string{
		"null":     `{"flower-2":{"usd":null,"rub":1,"uah":1}}`,
		"zero":     `{"flower-2":{"usd":0,"rub":1,"uah":1}}`,
		"negative": `{"flower-2":{"usd":-2,"rub":1,"uah":1}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := newTestSource(srv.URL).Fetch(context.Background())
			require.ErrorIs(t, err, ErrUnavailable)
			require.Contains(t, err.Error(), "usd")
		})
	}
}

func TestCoinGeckoFetchMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := newTestSource(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCoinGeckoFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestSource(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCoinGeckoMissingConfig(t *testing.T) {
	src := NewCoinGecko(CoinGeckoOptions{}, noopLogger())
	_, err := src.Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}
