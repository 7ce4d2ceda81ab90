package pricing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var order = []Currency{"usd", "rub", "uah"}

func snap(kv ...any) Snapshot {
	prices := make(map[Currency]decimal.Decimal)
	for i := 0; i < len(kv); i += 2 {
		prices[Currency(kv[i].(string))] = decimal.RequireFromString(kv[i+1].(string))
	}
	return NewSnapshot(prices)
}

func TestCompareSkipsZeroAndMissing(t *testing.T) {
	old := snap("usd", "0", "rub", "100")
	current := snap("usd", "5", "uah", "3")

	cs := Compare(old, current, order)
	require.Empty(t, cs, "zero baseline and one-sided currencies must be excluded")
}

func TestCompareKeepsOrder(t *testing.T) {
	old := snap("usd", "100", "rub", "200", "uah", "50")
	current := snap("usd", "110", "rub", "150", "uah", "50")

	cs := Compare(old, current, order)
	require.Len(t, cs, 3)
	require.Equal(t, Currency("usd"), cs[0].Currency)
	require.True(t, cs[0].Percent.Equal(decimal.NewFromInt(10)))
	require.True(t, cs[1].Percent.Equal(decimal.NewFromInt(-25)))
	require.True(t, cs[2].Percent.IsZero())
}

func TestTriggeredIsInclusive(t *testing.T) {
	cs := Compare(snap("usd", "100", "rub", "100"), snap("usd", "110", "rub", "95"), order)

	triggered := cs.Triggered(decimal.NewFromInt(10))
	require.Len(t, triggered, 1)
	require.Equal(t, Currency("usd"), triggered[0].Currency)
}

func TestStrongestTieBreaksOnOrder(t *testing.T) {
	old := snap("usd", "100", "rub", "100")
	current := snap("usd", "115", "rub", "85")

	for i := 0; i < 10; i++ {
		best, ok := Compare(old, current, order).Triggered(decimal.NewFromInt(10)).Strongest()
		require.True(t, ok)
		require.Equal(t, Currency("usd"), best.Currency)
		require.Equal(t, DirectionUp, best.Direction())
	}

	reversed := []Currency{"rub", "usd"}
	best, ok := Compare(old, current, reversed).Strongest()
	require.True(t, ok)
	require.Equal(t, Currency("rub"), best.Currency)
	require.Equal(t, DirectionDown, best.Direction())
}

func TestStrongestEmpty(t *testing.T) {
	_, ok := ChangeSet{}.Strongest()
	require.False(t, ok)
}

func TestFormatPercent(t *testing.T) {
	require.Equal(t, "+20.00", FormatPercent(decimal.NewFromInt(20), 2))
	require.Equal(t, "+0.00", FormatPercent(decimal.Zero, 2))
	require.Equal(t, "-3.33", FormatPercent(decimal.RequireFromString("-3.3333"), 2))
	require.Equal(t, "+0.00", FormatPercent(decimal.RequireFromString("-0.001"), 2))
}

func TestSnapshotJSON(t *testing.T) {
	s := snap("usd", "0.0123", "rub", "1.1")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.JSONEq(t, `{"usd":0.0123,"rub":1.1}`, string(data))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.True(t, decoded.Equal(s))

	require.Error(t, json.Unmarshal([]byte(`[1,2]`), &decoded))
}

func TestParseCurrencies(t *testing.T) {
	got := ParseCurrencies([]string{" USD", "rub", "", "usd", "UAH"})
	require.Equal(t, []Currency{"usd", "rub", "uah"}, got)
}
