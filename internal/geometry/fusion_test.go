package geometry

import (
	"errors"
	"testing"

	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
)

type fakeProvider struct {
	calls int
	route RoadRoute
	err   error
}

func (f *fakeProvider) Route(from, to models.Coord) (RoadRoute, error) {
	f.calls++
	return f.route, f.err
}

func threeCandidates() []models.RouteCandidate {
	line := []models.Coord{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}}
	return []models.RouteCandidate{
		{ID: 1, Geometry: line, DistanceMeters: 1000, DurationSeconds: 100},
		{ID: 2, Geometry: line, DistanceMeters: 1100, DurationSeconds: 120},
		{ID: 3, Geometry: line, DistanceMeters: 1200, DurationSeconds: 140},
	}
}

func TestFuseCallsProviderOnce(t *testing.T) {
	p := &fakeProvider{route: RoadRoute{
		Geometry:        []models.Coord{{Lat: 10, Lon: 20}, {Lat: 11, Lon: 21}},
		DistanceMeters:  5000,
		DurationSeconds: 600,
	}}
	f := NewFuser(p)
	out, err := f.Fuse(models.Coord{}, models.Coord{Lat: 1, Lon: 1}, threeCandidates())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", p.calls)
	}
	for i, c := range out {
		if c.DistanceMeters != 5000 || c.DurationSeconds != 600 {
			t.Fatalf("candidate %d lost provider distance/duration", i)
		}
	}
}

func TestFusePerturbsAlternativesDeterministically(t *testing.T) {
	p := &fakeProvider{route: RoadRoute{
		Geometry:        []models.Coord{{Lat: 10, Lon: 20}},
		DistanceMeters:  1,
		DurationSeconds: 1,
	}}
	f := NewFuser(p)
	out, err := f.Fuse(models.Coord{}, models.Coord{}, threeCandidates())
	if err != nil {
		t.Fatal(err)
	}
	if got := out[0].Geometry[0]; got.Lat != 10 || got.Lon != 20 {
		t.Fatalf("primary must keep exact geometry, got %+v", got)
	}
	if got := out[1].Geometry[0]; got.Lat != 10+DefaultRankOffsetDeg || got.Lon != 20+DefaultRankOffsetDeg {
		t.Fatalf("rank 1 offset wrong: %+v", got)
	}
	if got := out[2].Geometry[0]; got.Lat != 10+2*DefaultRankOffsetDeg || got.Lon != 20+2*DefaultRankOffsetDeg {
		t.Fatalf("rank 2 offset wrong: %+v", got)
	}

	// same inputs, same outputs
	p2 := &fakeProvider{route: p.route}
	again, _ := NewFuser(p2).Fuse(models.Coord{}, models.Coord{}, threeCandidates())
	if again[2].Geometry[0] != out[2].Geometry[0] {
		t.Fatal("perturbation not deterministic")
	}
}

func TestFuseDegradesOnProviderFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("timeout")}
	f := NewFuser(p)
	in := threeCandidates()
	out, err := f.Fuse(models.Coord{}, models.Coord{}, in)
	if err == nil {
		t.Fatal("expected degraded error")
	}
	if faults.KindOf(err) != faults.KindUpstreamDegraded {
		t.Fatalf("expected UpstreamDegraded, got %v", faults.KindOf(err))
	}
	if len(out) != len(in) {
		t.Fatalf("candidates must survive degradation: %d != %d", len(out), len(in))
	}
	if out[0].DistanceMeters != 1000 || len(out[0].Geometry) != 2 {
		t.Fatal("upstream geometry must be retained on failure")
	}
}
