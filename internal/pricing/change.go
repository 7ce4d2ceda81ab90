package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Direction classifies the sign of a move.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Change is the signed percentage move of one currency between two snapshots.
type Change struct {
	Currency Currency
	Old      decimal.Decimal
	New      decimal.Decimal
	Percent  decimal.Decimal
}

// Direction reports up for non-negative moves and down otherwise.
func (c Change) Direction() Direction {
	if c.Percent.IsNegative() {
		return DirectionDown
	}
	return DirectionUp
}

// ChangeSet is ordered by the tracked currency order it was computed with.
type ChangeSet []Change

// Compare computes percentage moves for every currency in order that is present in
// both snapshots with a non-zero old price. Anything else is left out rather than
// being treated as an infinite move.
func Compare(old, current Snapshot, order []Currency) ChangeSet {
	out := make(ChangeSet, 0, len(order))
	for _, c := range order {
		o, ok := old.Price(c)
		if !ok || o.IsZero() {
			continue
		}
		n, ok := current.Price(c)
		if !ok {
			continue
		}
		out = append(out, Change{
			Currency: c,
			Old:      o,
			New:      n,
			Percent:  PercentChange(o, n),
		})
	}
	return out
}

// PercentChange returns (new-old)/old*100. old must be non-zero.
func PercentChange(old, current decimal.Decimal) decimal.Decimal {
	return current.Sub(old).Div(old).Mul(hundred)
}

// Triggered keeps the changes whose absolute move is at least threshold.
func (cs ChangeSet) Triggered(threshold decimal.Decimal) ChangeSet {
	out := make(ChangeSet, 0, len(cs))
	for _, c := range cs {
		if c.Percent.Abs().GreaterThanOrEqual(threshold) {
			out = append(out, c)
		}
	}
	return out
}

// Strongest returns the change with the largest absolute move. On a tie the
// earliest entry wins, so the result is stable for identical input.
func (cs ChangeSet) Strongest() (Change, bool) {
	if len(cs) == 0 {
		return Change{}, false
	}
	best := cs[0]
	for _, c := range cs[1:] {
		if c.Percent.Abs().GreaterThan(best.Percent.Abs()) {
			best = c
		}
	}
	return best, true
}

// Lookup finds the change for currency c.
func (cs ChangeSet) Lookup(c Currency) (Change, bool) {
	for _, ch := range cs {
		if ch.Currency == c {
			return ch, true
		}
	}
	return Change{}, false
}

// FormatPercent renders a signed percentage with a leading '+' on non-negative values.
func FormatPercent(pct decimal.Decimal, places int32) string {
	rounded := pct.Round(places)
	if rounded.IsNegative() {
		return rounded.StringFixed(places)
	}
	return "+" + rounded.StringFixed(places)
}
