package geometry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/fleet-routing/internal/models"
)

// RoadRoute is the provider's answer for one coordinate pair.
type RoadRoute struct {
	Geometry        []models.Coord
	DistanceMeters  float64
	DurationSeconds float64
}

// Provider returns exact road geometry between two points. Implementations
// may fail or time out; callers must treat that as non-fatal.
type Provider interface {
	Route(from, to models.Coord) (RoadRoute, error)
}

// OSRMClient fetches road geometry from an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
}

func NewOSRMClient(endpoint string, timeout time.Duration) *OSRMClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: timeout}}
}

// Route queries /route/v1/driving with full GeoJSON overview so the whole
// path polyline comes back in one call.
func (o *OSRMClient) Route(from, to models.Coord) (RoadRoute, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	resp, err := o.Client.Get(url)
	if err != nil {
		return RoadRoute{}, err
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return RoadRoute{}, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return RoadRoute{}, fmt.Errorf("osrm no route: %v", out.Code)
	}
	r := out.Routes[0]
	geom := make([]models.Coord, 0, len(r.Geometry.Coordinates))
	for _, c := range r.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		geom = append(geom, models.Coord{Lat: c[1], Lon: c[0]})
	}
	return RoadRoute{Geometry: geom, DistanceMeters: r.Distance, DurationSeconds: r.Duration}, nil
}
