// Package routing produces ranked route alternatives between two named
// locations, annotated with weather risk and road geometry.
package routing

import (
	"sort"
	"strings"
	"time"

	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/notify"
	"github.com/example/fleet-routing/internal/observability"
	"github.com/example/fleet-routing/internal/risk"
	"github.com/example/fleet-routing/internal/weather"
)

// Fuser enriches candidates with provider geometry; an UpstreamDegraded
// error means the candidates are usable but approximate.
type Fuser interface {
	Fuse(from, to models.Coord, cands []models.RouteCandidate) ([]models.RouteCandidate, error)
}

type Optimizer struct {
	Geocoder Geocoder
	Source   CandidateSource
	Weather  weather.Source
	Fuser    Fuser
	Notifier notify.Sink // optional; receives risk escalations
}

// Optimize resolves both labels, builds scored candidates, fuses geometry
// and returns them ranked by risk score then duration. Geometry failure
// degrades the result; candidate-source or weather failure is fatal.
func (o *Optimizer) Optimize(originLabel, destinationLabel string) (models.RouteOptimizationResult, error) {
	var res models.RouteOptimizationResult
	if originLabel == "" || destinationLabel == "" {
		return res, faults.New(faults.KindValidation, "origin and destination are required")
	}
	from, ok := o.Geocoder.Resolve(originLabel)
	if !ok {
		return res, faults.Newf(faults.KindValidation, "unknown origin %q", originLabel)
	}
	to, ok := o.Geocoder.Resolve(destinationLabel)
	if !ok {
		return res, faults.Newf(faults.KindValidation, "unknown destination %q", destinationLabel)
	}

	paths, err := o.Source.Paths(from, to)
	if err != nil {
		return res, faults.Wrap(faults.KindUpstreamUnavailable, "candidate source failed", err)
	}
	if len(paths) == 0 {
		return res, faults.New(faults.KindUpstreamUnavailable, "no route found")
	}

	// one snapshot for the corridor, copied into every candidate
	w, err := o.Weather.Current(midpoint(from, to))
	if err != nil {
		return res, faults.Wrap(faults.KindUpstreamUnavailable, "weather source failed", err)
	}

	cands := make([]models.RouteCandidate, len(paths))
	for i, p := range paths {
		score, tier := risk.Score(w)
		cands[i] = models.RouteCandidate{
			ID:              i + 1,
			Geometry:        p.Geometry,
			DistanceMeters:  p.DistanceMeters,
			DurationSeconds: p.DurationSeconds,
			RiskScore:       score,
			RiskTier:        tier,
			Weather:         w,
		}
	}

	var warnings []models.Warning
	fused, err := o.Fuser.Fuse(from, to, cands)
	if err != nil {
		if faults.KindOf(err) != faults.KindUpstreamDegraded {
			return res, err
		}
		warnings = append(warnings, models.Warning{Code: faults.KindUpstreamDegraded.String(), Message: err.Error()})
	}
	cands = fused

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].RiskScore != cands[j].RiskScore {
			return cands[i].RiskScore < cands[j].RiskScore
		}
		return cands[i].DurationSeconds < cands[j].DurationSeconds
	})

	res = models.RouteOptimizationResult{
		OriginLabel:      originLabel,
		DestinationLabel: destinationLabel,
		Origin:           from,
		Destination:      to,
		Candidates:       cands,
		Warnings:         warnings,
		GeneratedAt:      time.Now().UTC(),
	}
	observability.OptimizationsTotal.Inc()

	if o.Notifier != nil && cands[0].RiskTier == models.TierHazardous {
		_ = o.Notifier.Notify(models.Event{
			Severity: escalationSeverity(w.Condition),
			Title:    "Hazardous route conditions",
			Message:  "best route between " + originLabel + " and " + destinationLabel + " is hazardous",
			At:       time.Now().UTC(),
		})
	}
	return res, nil
}

func escalationSeverity(condition string) string {
	c := strings.ToLower(condition)
	if strings.Contains(c, "storm") || strings.Contains(c, "thunder") {
		return models.SeverityStorm
	}
	return models.SeverityHeavyRain
}

func midpoint(a, b models.Coord) models.Coord {
	return models.Coord{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
}
