// Package risk maps a weather snapshot to a safety score and tier.
// Scoring is a pure function of the snapshot: no I/O, never fails.
package risk

import (
	"strings"

	"github.com/example/fleet-routing/internal/models"
)

// Policy constants. Tier boundaries follow score < CautionMin -> clear,
// CautionMin..HazardousMin-1 -> caution, >= HazardousMin -> hazardous.
const (
	CautionMin   = 34
	HazardousMin = 67

	// RainWeight scales rain probability (0..100) into the base score.
	RainWeight = 0.6

	// HighWindKmh is the wind speed above which WindPenalty applies.
	HighWindKmh = 40.0
	WindPenalty = 15

	// SeverePenalty applies to storm/heavy-rain conditions on top of
	// whatever the rain probability already contributes.
	SeverePenalty = 25

	// FreezingC and below adds FreezingPenalty.
	FreezingC       = 0.0
	FreezingPenalty = 10

	// ExtremeHeatC and above adds HeatPenalty.
	ExtremeHeatC = 40.0
	HeatPenalty  = 5
)

// Score returns a risk score in [0,100] and its tier for the snapshot.
func Score(w models.WeatherSnapshot) (int, models.RiskTier) {
	s := int(clamp(w.RainProbabilityPct, 0, 100) * RainWeight)

	if severeCondition(w.Condition) {
		s += SeverePenalty
	}
	if w.WindSpeedKmh > HighWindKmh {
		s += WindPenalty
	}
	if w.TemperatureC <= FreezingC {
		s += FreezingPenalty
	} else if w.TemperatureC >= ExtremeHeatC {
		s += HeatPenalty
	}

	if s > 100 {
		s = 100
	}
	if s < 0 {
		s = 0
	}
	return s, TierFor(s)
}

// TierFor buckets a score into a tier.
func TierFor(score int) models.RiskTier {
	switch {
	case score < CautionMin:
		return models.TierClear
	case score < HazardousMin:
		return models.TierCaution
	default:
		return models.TierHazardous
	}
}

func severeCondition(cond string) bool {
	c := strings.ToLower(cond)
	return strings.Contains(c, "storm") ||
		strings.Contains(c, "thunder") ||
		strings.Contains(c, "heavy rain")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
