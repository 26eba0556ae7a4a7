package risk

import (
	"testing"

	"github.com/example/fleet-routing/internal/models"
)

func TestScoreAlwaysInRange(t *testing.T) {
	conds := []string{"Clear", "Rain", "Thunderstorm", "Heavy Rain", "Snow"}
	for _, cond := range conds {
		for rain := -10.0; rain <= 120; rain += 10 {
			for _, temp := range []float64{-20, 0, 15, 40, 50} {
				for _, wind := range []float64{0, 39, 41, 90} {
					s, tier := Score(models.WeatherSnapshot{
						Condition:          cond,
						RainProbabilityPct: rain,
						TemperatureC:       temp,
						WindSpeedKmh:       wind,
					})
					if s < 0 || s > 100 {
						t.Fatalf("score out of range: %d for cond=%s rain=%f", s, cond, rain)
					}
					if tier != TierFor(s) {
						t.Fatalf("tier mismatch for score %d", s)
					}
				}
			}
		}
	}
}

func TestTierMonotonic(t *testing.T) {
	prev := models.TierClear
	rank := map[models.RiskTier]int{models.TierClear: 0, models.TierCaution: 1, models.TierHazardous: 2}
	for s := 0; s <= 100; s++ {
		tier := TierFor(s)
		if rank[tier] < rank[prev] {
			t.Fatalf("tier regressed at score %d: %s -> %s", s, prev, tier)
		}
		prev = tier
	}
	if TierFor(CautionMin-1) != models.TierClear || TierFor(CautionMin) != models.TierCaution {
		t.Fatal("caution boundary wrong")
	}
	if TierFor(HazardousMin-1) != models.TierCaution || TierFor(HazardousMin) != models.TierHazardous {
		t.Fatal("hazardous boundary wrong")
	}
}

func TestStormPenalizedBeyondProbability(t *testing.T) {
	base := models.WeatherSnapshot{Condition: "Rain", RainProbabilityPct: 50, TemperatureC: 15}
	storm := base
	storm.Condition = "Thunderstorm"
	sBase, _ := Score(base)
	sStorm, _ := Score(storm)
	if sStorm != sBase+SeverePenalty {
		t.Fatalf("expected storm penalty %d, got base=%d storm=%d", SeverePenalty, sBase, sStorm)
	}
}

func TestFreezingIncreasesRisk(t *testing.T) {
	mild := models.WeatherSnapshot{Condition: "Clear", RainProbabilityPct: 20, TemperatureC: 10}
	cold := mild
	cold.TemperatureC = -5
	sMild, _ := Score(mild)
	sCold, _ := Score(cold)
	if sCold <= sMild {
		t.Fatalf("freezing should raise score: mild=%d cold=%d", sMild, sCold)
	}
}

func TestScoreMonotonicInRainProbability(t *testing.T) {
	prev := -1
	for rain := 0.0; rain <= 100; rain += 5 {
		s, _ := Score(models.WeatherSnapshot{Condition: "Rain", RainProbabilityPct: rain, TemperatureC: 15})
		if s < prev {
			t.Fatalf("score decreased at rain=%f: %d < %d", rain, s, prev)
		}
		prev = s
	}
}
