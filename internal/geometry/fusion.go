// Package geometry enriches route candidates with exact road geometry from
// an external provider. The provider is called once per optimization, not
// once per alternative, and its failure never fails the optimization.
package geometry

import (
	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/observability"
)

// DefaultRankOffsetDeg is the positional offset applied per rank index to
// alternative geometries so they stay visually distinguishable on a map
// without a second provider call.
const DefaultRankOffsetDeg = 0.01

type Fuser struct {
	Provider      Provider
	RankOffsetDeg float64
}

func NewFuser(p Provider) *Fuser {
	return &Fuser{Provider: p, RankOffsetDeg: DefaultRankOffsetDeg}
}

// Fuse returns the candidates enriched with provider geometry. The primary
// candidate receives the provider's exact path, distance and duration;
// each later candidate gets the same path shifted by rank*RankOffsetDeg with
// the provider's distance/duration retained.
//
// On provider failure the input candidates are returned unchanged together
// with an UpstreamDegraded error; callers record it as a warning and carry
// on with the approximate geometry the upstream optimization supplied.
func (f *Fuser) Fuse(from, to models.Coord, cands []models.RouteCandidate) ([]models.RouteCandidate, error) {
	if len(cands) == 0 {
		return cands, nil
	}
	road, err := f.Provider.Route(from, to)
	if err != nil || len(road.Geometry) == 0 {
		observability.GeometryDegradedTotal.Inc()
		return cands, faults.Wrap(faults.KindUpstreamDegraded, "road geometry unavailable", err)
	}

	offset := f.RankOffsetDeg
	if offset == 0 {
		offset = DefaultRankOffsetDeg
	}

	out := make([]models.RouteCandidate, len(cands))
	for i, c := range cands {
		c.DistanceMeters = road.DistanceMeters
		c.DurationSeconds = road.DurationSeconds
		c.Geometry = shift(road.Geometry, float64(i)*offset)
		out[i] = c
	}
	return out, nil
}

func shift(geom []models.Coord, by float64) []models.Coord {
	out := make([]models.Coord, len(geom))
	for i, p := range geom {
		out[i] = models.Coord{Lat: p.Lat + by, Lon: p.Lon + by}
	}
	return out
}
