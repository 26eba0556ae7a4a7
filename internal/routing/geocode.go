package routing

import (
	"strings"
	"sync"

	"github.com/example/fleet-routing/internal/models"
)

// Geocoder resolves a named location to a coordinate.
type Geocoder interface {
	Resolve(label string) (models.Coord, bool)
}

// StaticGeocoder resolves labels from a fixed table, case-insensitively.
// The product works with a closed set of depots and warehouses, so a static
// table is the production resolver; the interface leaves room for a real
// geocoding service.
type StaticGeocoder struct {
	mu        sync.RWMutex
	locations map[string]models.Coord
}

func NewStaticGeocoder(locations map[string]models.Coord) *StaticGeocoder {
	g := &StaticGeocoder{locations: make(map[string]models.Coord, len(locations))}
	for name, c := range locations {
		g.locations[normalize(name)] = c
	}
	return g
}

func (g *StaticGeocoder) Add(label string, c models.Coord) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.locations[normalize(label)] = c
}

func (g *StaticGeocoder) Resolve(label string) (models.Coord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.locations[normalize(label)]
	return c, ok
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
