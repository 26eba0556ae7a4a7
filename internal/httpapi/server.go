package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/fleet-routing/internal/config"
	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/fleet"
	"github.com/example/fleet-routing/internal/geometry"
	"github.com/example/fleet-routing/internal/ingest"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/notify"
	"github.com/example/fleet-routing/internal/routing"
	"github.com/example/fleet-routing/internal/sos"
	"github.com/example/fleet-routing/internal/trips"
	"github.com/example/fleet-routing/internal/weather"
)

type Server struct {
	Optimizer *routing.Optimizer
	Trips     *trips.Manager
	Sos       *sos.Monitor
	Fleet     fleet.Tracker
	Weather   weather.Source
	Kafka     *ingest.KafkaProducer
	WSReg     *notify.WSRegistry

	logger *slog.Logger
	mux    *mux.Router
}

// defaultLocations seeds the static geocoder with the depots the product
// operates between.
var defaultLocations = map[string]models.Coord{
	"Warehouse-1": {Lat: 12.9716, Lon: 77.5946},
	"Warehouse-2": {Lat: 12.2958, Lon: 76.6394},
	"Depot-9":     {Lat: 13.0827, Lon: 80.2707},
	"Depot-12":    {Lat: 17.3850, Lon: 78.4867},
	"Hub-Central": {Lat: 12.9141, Lon: 74.8560},
}

// NewServer wires the engine from configuration: redis-backed fleet index
// and kafka producer when configured, in-memory fallbacks otherwise.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var tracker fleet.Tracker
	if cfg.RedisAddr != "" {
		tracker = fleet.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.FleetGeoKey)
	} else {
		tracker = fleet.NewIndex()
	}

	var store trips.Store
	if cfg.PGDSN != "" {
		if ps, err := trips.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Warn("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = trips.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	wsreg := notify.NewWSRegistry(logger)
	sink := notify.NewDispatcher(wsreg, cfg.PushEndpoint)

	weatherSrc := weather.NewClient(cfg.WeatherEndpoint, cfg.WeatherTimeout, cfg.WeatherCacheTTL)
	fuser := geometry.NewFuser(geometry.NewOSRMClient(cfg.OSRMEndpoint, cfg.GeometryTimeout))

	manager := trips.NewManager(store)
	monitor := sos.NewMonitor(manager, sink, cfg.IdleThreshold)

	optimizer := &routing.Optimizer{
		Geocoder: routing.NewStaticGeocoder(defaultLocations),
		Source:   &routing.CorridorSource{Alternatives: cfg.RouteAlternatives, SpeedMps: cfg.DefaultSpeedMps},
		Weather:  weatherSrc,
		Fuser:    fuser,
		Notifier: sink,
	}

	s := &Server{
		Optimizer: optimizer,
		Trips:     manager,
		Sos:       monitor,
		Fleet:     tracker,
		Weather:   weatherSrc,
		Kafka:     kp,
		WSReg:     wsreg,
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/routes/optimize", s.handleOptimize).Methods("POST")

	api.HandleFunc("/trips", s.handleStartTrip).Methods("POST")
	api.HandleFunc("/trips", s.handleListTrips).Methods("GET")
	api.HandleFunc("/trips/{id}/telemetry", s.handleTelemetry).Methods("POST")
	api.HandleFunc("/trips/{id}/complete", s.handleCompleteTrip).Methods("POST")

	api.HandleFunc("/sos", s.handleRaiseSos).Methods("POST")
	api.HandleFunc("/sos", s.handleListSos).Methods("GET")
	api.HandleFunc("/sos/{id}/resolve", s.handleResolveSos).Methods("POST")
	api.HandleFunc("/sos/active", s.handleActiveSos).Methods("GET")

	api.HandleFunc("/fleet/movement", s.handleMovement).Methods("POST")
	api.HandleFunc("/fleet/positions", s.handleFleetPositions).Methods("GET")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{email}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps fault kinds to HTTP statuses; unknown errors stay 500 and
// never leak internals to the caller.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := faults.KindOf(err)
	status := http.StatusInternalServerError
	msg := err.Error()
	switch kind {
	case faults.KindValidation:
		status = http.StatusBadRequest
	case faults.KindNotFound:
		status = http.StatusNotFound
	case faults.KindForbidden:
		status = http.StatusForbidden
	case faults.KindInvalidTransition, faults.KindConflict, faults.KindAlreadyResolved:
		status = http.StatusConflict
	case faults.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	default:
		msg = "internal error"
		s.logger.Error("unhandled error", "error", err)
	}
	writeJSON(w, status, map[string]any{
		"error":     msg,
		"kind":      kind.String(),
		"retryable": faults.Retryable(err),
	})
}
