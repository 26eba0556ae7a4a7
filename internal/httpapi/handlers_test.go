package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/fleet-routing/internal/fleet"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/notify"
	"github.com/example/fleet-routing/internal/routing"
	"github.com/example/fleet-routing/internal/sos"
	"github.com/example/fleet-routing/internal/trips"
)

type fakeWeather struct{}

func (fakeWeather) Current(at models.Coord) (models.WeatherSnapshot, error) {
	return models.WeatherSnapshot{Condition: "Clear", TemperatureC: 22, TakenAt: time.Now().UTC()}, nil
}

// passFuser leaves the approximate geometry in place.
type passFuser struct{}

func (passFuser) Fuse(from, to models.Coord, cands []models.RouteCandidate) ([]models.RouteCandidate, error) {
	return cands, nil
}

func newTestServer() *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := trips.NewManager(trips.NewMemoryStore())
	wsreg := notify.NewWSRegistry(logger)
	sink := notify.NewDispatcher(wsreg, "")
	s := &Server{
		Optimizer: &routing.Optimizer{
			Geocoder: routing.NewStaticGeocoder(defaultLocations),
			Source:   &routing.CorridorSource{},
			Weather:  fakeWeather{},
			Fuser:    passFuser{},
		},
		Trips:   manager,
		Sos:     sos.NewMonitor(manager, sink, time.Minute),
		Fleet:   fleet.NewIndex(),
		Weather: fakeWeather{},
		WSReg:   wsreg,
		logger:  logger,
		mux:     mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestOptimizeEndpoint(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/v1/routes/optimize", map[string]string{
		"origin": "Warehouse-1", "destination": "Depot-9",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var res models.RouteOptimizationResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) == 0 {
		t.Fatal("no candidates")
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].RiskScore < res.Candidates[i-1].RiskScore {
			t.Fatal("candidates not ranked by risk")
		}
	}
}

func TestOptimizeUnknownOrigin(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/v1/routes/optimize", map[string]string{
		"origin": "Atlantis", "destination": "Depot-9",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestTripLifecycleOverHTTP(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, http.MethodPost, "/api/v1/trips", map[string]string{
		"driver_email": "d@fleet.test",
		"vehicle_id":   "VEH-1",
		"origin":       "Warehouse-1",
		"destination":  "Depot-9",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start status %d: %s", w.Code, w.Body.String())
	}
	var trip models.Trip
	if err := json.Unmarshal(w.Body.Bytes(), &trip); err != nil {
		t.Fatal(err)
	}
	if trip.Status != models.TripInProgress {
		t.Fatalf("expected in_progress, got %s", trip.Status)
	}
	if trip.StartWeather.Condition == "" {
		t.Fatal("start weather not captured")
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/trips/"+trip.ID+"/telemetry?email=d@fleet.test", map[string]any{
		"position": map[string]float64{"lat": 13.0, "lon": 78.0}, "speed_kmh": 42.0, "eta": "10:45",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("telemetry status %d: %s", w.Code, w.Body.String())
	}

	// a different driver may not report for this trip
	w = doJSON(t, s, http.MethodPost, "/api/v1/trips/"+trip.ID+"/telemetry?email=other@fleet.test", map[string]any{
		"position": map[string]float64{"lat": 13.0, "lon": 78.0},
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/trips/"+trip.ID+"/complete", map[string]any{
		"position": map[string]float64{"lat": 13.0827, "lon": 80.2707},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("complete status %d: %s", w.Code, w.Body.String())
	}

	// terminal state rejects further transitions and telemetry
	w = doJSON(t, s, http.MethodPost, "/api/v1/trips/"+trip.ID+"/complete", map[string]any{})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double complete, got %d", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/trips/"+trip.ID+"/telemetry?email=d@fleet.test", map[string]any{
		"position": map[string]float64{"lat": 13.0, "lon": 78.0},
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 after completion, got %d", w.Code)
	}
}

func TestListTripsRequiresIdentity(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodGet, "/api/v1/trips", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestTelemetryUnknownTrip(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodPost, "/api/v1/trips/nope/telemetry?email=d@fleet.test", map[string]any{
		"position": map[string]float64{"lat": 1, "lon": 1},
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestSosOverHTTP(t *testing.T) {
	s := newTestServer()

	w := doJSON(t, s, http.MethodPost, "/api/v1/sos", map[string]any{
		"driver_email": "d@fleet.test", "vehicle_id": "VEH-1", "type": "medical",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("raise status %d: %s", w.Code, w.Body.String())
	}
	var alert models.SosAlert
	if err := json.Unmarshal(w.Body.Bytes(), &alert); err != nil {
		t.Fatal(err)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/sos", map[string]any{
		"driver_email": "d@fleet.test", "vehicle_id": "VEH-1", "type": "theft",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second raise, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/sos/"+alert.ID+"/resolve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve status %d", w.Code)
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/sos/"+alert.ID+"/resolve", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on double resolve, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/sos/active?email=d@fleet.test", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("active status %d", w.Code)
	}
	var active struct {
		HasActive bool `json:"has_active"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &active); err != nil {
		t.Fatal(err)
	}
	if active.HasActive {
		t.Fatal("resolved alert still active")
	}
}

func TestFleetPositionsValidation(t *testing.T) {
	s := newTestServer()
	w := doJSON(t, s, http.MethodGet, "/api/v1/fleet/positions", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
