// Package analytics rolls delivery outcomes and engagement events up into
// per-template daily statistics.
//
// The aggregator recomputes a (template, date) row from scratch on every run
// and upserts it by that key, so re-running for the same day is idempotent
// and never double-counts. Opens and clicks arrive asynchronously from
// provider tracking webhooks via the engagement recorder.
package analytics

import (
	"time"
)

// DailyStats is one row per (template, date): raw counts plus derived rates.
type DailyStats struct {
	TemplateID string    `json:"template_id"`
	Date       time.Time `json:"date"` // UTC midnight of the covered day

	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Opened    int `json:"opened"`
	Clicked   int `json:"clicked"`

	DeliveryRate float64 `json:"delivery_rate"` // delivered / sent
	OpenRate     float64 `json:"open_rate"`     // opened / delivered
	ClickRate    float64 `json:"click_rate"`    // clicked / opened

	ComputedAt time.Time `json:"computed_at"`
}

// deriveRates fills the rate fields from the counts, leaving a rate at zero
// when its denominator is zero.
func (s *DailyStats) deriveRates() {
	if s.Sent > 0 {
		s.DeliveryRate = float64(s.Delivered) / float64(s.Sent)
	}
	if s.Delivered > 0 {
		s.OpenRate = float64(s.Opened) / float64(s.Delivered)
	}
	if s.Opened > 0 {
		s.ClickRate = float64(s.Clicked) / float64(s.Opened)
	}
}

// Day truncates t to the UTC day used as the aggregation key.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
