package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan describes a subscription tier and its monthly generation limits.
type Plan struct {
	ID             string
	Name           string
	PriceCents     int64
	MusicPerMonth  int
	ImagesPerMonth int
	VideosPerMonth int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Price returns the monthly price in major currency units.
func (p Plan) Price() decimal.Decimal {
	return decimal.NewFromInt(p.PriceCents).Div(decimal.NewFromInt(100))
}

// LimitFor returns the monthly allowance for the given job kind. Both music
// kinds draw from the same allowance.
func (p Plan) LimitFor(kind JobKind) int {
	switch kind {
	case JobKindTextToMusic, JobKindAudioToMusic:
		return p.MusicPerMonth
	case JobKindImage:
		return p.ImagesPerMonth
	case JobKindVideoTranscode:
		return p.VideosPerMonth
	}
	return 0
}
