// Package pricing holds the price snapshot model and the change-detection math
// used to decide when a move is worth announcing.
package pricing

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is a lowercase quote currency code such as "usd".
type Currency string

// ParseCurrencies normalises a list of codes, dropping blanks and duplicates
// while keeping the first-seen order.
func ParseCurrencies(codes []string) []Currency {
	seen := make(map[Currency]struct{}, len(codes))
	out := make([]Currency, 0, len(codes))
	for _, code := range codes {
		c := Currency(strings.ToLower(strings.TrimSpace(code)))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Upper returns the display form of the code.
func (c Currency) Upper() string {
	return strings.ToUpper(string(c))
}

// Snapshot is one point-in-time observation of the tracked asset.
// The zero value is an empty snapshot. Snapshots are never mutated after construction.
type Snapshot struct {
	prices map[Currency]decimal.Decimal
}

// NewSnapshot copies prices into a new snapshot.
func NewSnapshot(prices map[Currency]decimal.Decimal) Snapshot {
	cp := make(map[Currency]decimal.Decimal, len(prices))
	for c, p := range prices {
		cp[Currency(strings.ToLower(string(c)))] = p
	}
	return Snapshot{prices: cp}
}

// Price returns the price for c, if present.
func (s Snapshot) Price(c Currency) (decimal.Decimal, bool) {
	p, ok := s.prices[c]
	return p, ok
}

// Len reports how many currencies the snapshot carries.
func (s Snapshot) Len() int {
	return len(s.prices)
}

// IsEmpty reports whether the snapshot has no prices.
func (s Snapshot) IsEmpty() bool {
	return len(s.prices) == 0
}

// Currencies returns the carried codes sorted alphabetically.
func (s Snapshot) Currencies() []Currency {
	out := make([]Currency, 0, len(s.prices))
	for c := range s.prices {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal compares two snapshots by numeric value.
func (s Snapshot) Equal(other Snapshot) bool {
	if len(s.prices) != len(other.prices) {
		return false
	}
	for c, p := range s.prices {
		q, ok := other.prices[c]
		if !ok || !p.Equal(q) {
			return false
		}
	}
	return true
}

// MarshalJSON writes {"usd": 1.23, ...} with plain JSON numbers.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.Number, len(s.prices))
	for c, p := range s.prices {
		out[string(c)] = json.Number(p.String())
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts an object of currency code to number.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	prices := make(map[Currency]decimal.Decimal, len(raw))
	for code, p := range raw {
		prices[Currency(code)] = p
	}
	*s = NewSnapshot(prices)
	return nil
}

func (s Snapshot) String() string {
	parts := make([]string, 0, len(s.prices))
	for _, c := range s.Currencies() {
		parts = append(parts, fmt.Sprintf("%s=%s", c, s.prices[c].String()))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
