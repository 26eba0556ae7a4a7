package fleet

import (
	"math"
	"sync"
	"time"

	"github.com/example/fleet-routing/internal/models"
)

// Tracker is the minimal interface required by the handlers and the
// telemetry consumer.
type Tracker interface {
	Upsert(p models.VehiclePosition)
	Nearby(lat, lon float64, limit int) []models.VehiclePosition
}

type Index struct {
	mu       sync.RWMutex
	vehicles map[string]models.VehiclePosition
}

func NewIndex() *Index {
	return &Index{vehicles: make(map[string]models.VehiclePosition)}
}

func (g *Index) Upsert(p models.VehiclePosition) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.Updated = time.Now()
	g.vehicles[p.VehicleID] = p
}

// naive scan; in prod use geo-hash or H3
func (g *Index) Nearby(lat, lon float64, limit int) []models.VehiclePosition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		p    models.VehiclePosition
		dist float64
	}
	arr := make([]pair, 0, len(g.vehicles))
	for _, p := range g.vehicles {
		dist := Haversine(lat, lon, p.Loc.Lat, p.Loc.Lon)
		arr = append(arr, pair{p, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]models.VehiclePosition, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].p)
	}
	return out
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
