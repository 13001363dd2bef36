// Package learning turns collected feedback into preference updates and
// prompt recommendations.
package learning

import (
	"math"
	"time"
)

const (
	// DefaultDecayDays is the e-folding time of the recency weight.
	DefaultDecayDays = 30.0

	// DefaultReinforceThreshold is the minimum aspect score that reinforces.
	DefaultReinforceThreshold = 4

	// DefaultAvoidThreshold is the maximum aspect score that marks an avoid.
	DefaultAvoidThreshold = 2

	// DefaultPreferredRating is the minimum rating that stores an exemplar.
	DefaultPreferredRating = 4

	// DefaultMaxExemplars caps each per-schema exemplar list.
	DefaultMaxExemplars = 10

	// DefaultSimilarityThreshold is the exclusive lower bound for a similar prompt.
	DefaultSimilarityThreshold = 0.3

	// maxRating normalizes ratings to 0-1.
	maxRating = 5.0

	day = 24 * time.Hour
)

// Params holds the tunable learning constants.
type Params struct {
	DecayDays           float64
	ReinforceThreshold  int
	AvoidThreshold      int
	PreferredRating     int
	MaxExemplars        int
	SimilarityThreshold float64
}

// DefaultParams returns the stock constants.
func DefaultParams() Params {
	return Params{
		DecayDays:           DefaultDecayDays,
		ReinforceThreshold:  DefaultReinforceThreshold,
		AvoidThreshold:      DefaultAvoidThreshold,
		PreferredRating:     DefaultPreferredRating,
		MaxExemplars:        DefaultMaxExemplars,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// withDefaults fills zero fields from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.DecayDays <= 0 {
		p.DecayDays = d.DecayDays
	}
	if p.ReinforceThreshold == 0 {
		p.ReinforceThreshold = d.ReinforceThreshold
	}
	if p.AvoidThreshold == 0 {
		p.AvoidThreshold = d.AvoidThreshold
	}
	if p.PreferredRating == 0 {
		p.PreferredRating = d.PreferredRating
	}
	if p.MaxExemplars <= 0 {
		p.MaxExemplars = d.MaxExemplars
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = d.SimilarityThreshold
	}
	return p
}

// Weight is the influence of one rating given at recorded, as seen at now.
// Formula: exp(-ageDays/decayDays) * rating/5
func Weight(rating int, recorded, now time.Time, decayDays float64) float64 {
	ageDays := float64(now.Sub(recorded)) / float64(day)
	recency := math.Exp(-ageDays / decayDays)
	return recency * float64(rating) / maxRating
}
