package routing

import (
	"github.com/example/fleet-routing/internal/fleet"
	"github.com/example/fleet-routing/internal/models"
)

// RawPath is a candidate path before weather scoring and geometry fusion.
type RawPath struct {
	Geometry        []models.Coord
	DistanceMeters  float64
	DurationSeconds float64
}

// CandidateSource yields raw candidate paths between two coordinates.
type CandidateSource interface {
	Paths(from, to models.Coord) ([]RawPath, error)
}

// CorridorSource synthesizes straight-line corridor candidates with
// haversine distance and speed-derived duration. Each alternative assumes a
// slightly longer detour. It stands in for a routing-graph search the
// geometry provider later refines.
type CorridorSource struct {
	Alternatives int
	SpeedMps     float64
}

const (
	defaultAlternatives = 3
	defaultSpeedMps     = 10
	corridorPoints      = 8
	// detourFactor lengthens each successive alternative.
	detourFactor = 0.12
)

func (s *CorridorSource) Paths(from, to models.Coord) ([]RawPath, error) {
	n := s.Alternatives
	if n <= 0 {
		n = defaultAlternatives
	}
	speed := s.SpeedMps
	if speed <= 0 {
		speed = defaultSpeedMps
	}
	base := fleet.Haversine(from.Lat, from.Lon, to.Lat, to.Lon)
	out := make([]RawPath, 0, n)
	for i := 0; i < n; i++ {
		dist := base * (1 + detourFactor*float64(i))
		out = append(out, RawPath{
			Geometry:        line(from, to, corridorPoints),
			DistanceMeters:  dist,
			DurationSeconds: dist / speed,
		})
	}
	return out, nil
}

func line(from, to models.Coord, points int) []models.Coord {
	out := make([]models.Coord, points)
	for i := 0; i < points; i++ {
		f := float64(i) / float64(points-1)
		out[i] = models.Coord{
			Lat: from.Lat + (to.Lat-from.Lat)*f,
			Lon: from.Lon + (to.Lon-from.Lon)*f,
		}
	}
	return out
}
