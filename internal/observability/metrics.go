package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OptimizationsTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_routing", Name: "optimizations_total", Help: "Total route optimization requests served"})
	GeometryDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_routing", Name: "geometry_degraded_total", Help: "Optimizations that fell back to approximate geometry"})
	TripsActive           = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "fleet_routing", Name: "trips_active", Help: "Trips currently in progress"})
	TripsCompletedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_routing", Name: "trips_completed_total", Help: "Trips completed"})
	TelemetryAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_routing", Name: "telemetry_applied_total", Help: "Telemetry updates applied to trips"})
	TelemetryStaleTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_routing", Name: "telemetry_stale_total", Help: "Telemetry updates ignored for arriving out of order"})
	SosActive             = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "fleet_routing", Name: "sos_active", Help: "Unresolved SOS alerts"})
	IdleAlertsTotal       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "fleet_routing", Name: "idle_alerts_total", Help: "Idle alerts emitted"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "fleet_routing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fleet_routing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
