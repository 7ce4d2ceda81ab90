package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings are the runtime-tunable parameters of the price check.
type Settings struct {
	ThresholdPct         float64 `json:"price_change_threshold"`
	CheckIntervalSeconds int     `json:"check_interval"`
}

// DefaultSettings are used when nothing valid is stored and config does not override them.
var DefaultSettings = Settings{ThresholdPct: 15.0, CheckIntervalSeconds: 60}

// Threshold returns the threshold as a decimal percentage.
func (s Settings) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(s.ThresholdPct)
}

// Interval returns the poll interval.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.CheckIntervalSeconds) * time.Second
}

// Destination is a chat that receives alerts.
type Destination struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Registry holds administrators and alert destinations.
type Registry struct {
	AdminIDs     []int64       `json:"admin_ids"`
	Destinations []Destination `json:"group_chats"`
}

func (r Registry) normalised() Registry {
	if r.AdminIDs == nil {
		r.AdminIDs = []int64{}
	}
	if r.Destinations == nil {
		r.Destinations = []Destination{}
	}
	return r
}
