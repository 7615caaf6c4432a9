package model

import "github.com/shopspring/decimal"

// Offering is an entry of the public consultation catalogue shown on the booking page.
type Offering struct {
	Slug            string          `json:"slug"`
	Title           string          `json:"title"`
	Summary         string          `json:"summary"`
	DurationMinutes int             `json:"duration_minutes"`
	Fee             decimal.Decimal `json:"fee"`
}
