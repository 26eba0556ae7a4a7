package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// WeatherSnapshot is the weather observed for a corridor at a point in time.
// It is copied by value into trips and route candidates so later forecast
// changes never rewrite historical records.
type WeatherSnapshot struct {
	Condition          string    `json:"condition"`
	TemperatureC       float64   `json:"temperature_c"`
	HumidityPct        float64   `json:"humidity_percent"`
	WindSpeedKmh       float64   `json:"wind_speed_kmh"`
	RainProbabilityPct float64   `json:"rain_probability_percent"`
	TakenAt            time.Time `json:"taken_at"`
}

type RiskTier string

const (
	TierClear     RiskTier = "clear"
	TierCaution   RiskTier = "caution"
	TierHazardous RiskTier = "hazardous"
)

// RouteCandidate is one proposed path between an origin and a destination.
// Candidates are immutable once an optimization result is produced.
type RouteCandidate struct {
	ID              int             `json:"id"`
	Geometry        []Coord         `json:"geometry"`
	DistanceMeters  float64         `json:"distance_meters"`
	DurationSeconds float64         `json:"duration_seconds"`
	RiskScore       int             `json:"risk_score"` // 0..100
	RiskTier        RiskTier        `json:"risk_tier"`
	Weather         WeatherSnapshot `json:"weather"`
}

// Warning is a non-fatal issue attached to an otherwise successful result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RouteOptimizationResult struct {
	OriginLabel      string           `json:"origin"`
	DestinationLabel string           `json:"destination"`
	Origin           Coord            `json:"origin_coord"`
	Destination      Coord            `json:"destination_coord"`
	Candidates       []RouteCandidate `json:"candidates"` // ranked, first = primary
	Warnings         []Warning        `json:"warnings,omitempty"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// RoleAdmin is the administrative caller role; all other roles are scoped to
// their own records.
const RoleAdmin = "admin"

type TripStatus string

const (
	TripInProgress TripStatus = "in_progress"
	TripCompleted  TripStatus = "completed"
)

type Trip struct {
	ID               string           `json:"id"`
	DriverEmail      string           `json:"driver_email"`
	VehicleID        string           `json:"vehicle_id"`
	OriginLabel      string           `json:"origin"`
	DestinationLabel string           `json:"destination"`
	Origin           Coord            `json:"origin_coord"`
	Destination      Coord            `json:"destination_coord"`
	Status           TripStatus       `json:"status"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          *time.Time       `json:"end_time,omitempty"`
	Position         *Coord           `json:"position,omitempty"` // nil until first telemetry
	SpeedKmh         float64          `json:"speed_kmh"`
	ETA              string           `json:"eta,omitempty"`
	StartWeather     WeatherSnapshot  `json:"start_weather"`
	EndWeather       *WeatherSnapshot `json:"end_weather,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	LastTelemetryAt  time.Time        `json:"last_telemetry_at"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TelemetryUpdate is a single position report for an in-progress trip.
type TelemetryUpdate struct {
	TripID    string    `json:"trip_id"`
	Position  Coord     `json:"position"`
	SpeedKmh  float64   `json:"speed_kmh"`
	ETA       string    `json:"eta,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type SosType string

const (
	SosMedical    SosType = "medical"
	SosMechanical SosType = "mechanical"
	SosTheft      SosType = "theft"
	SosOther      SosType = "other"
)

type SosAlert struct {
	ID          string     `json:"id"`
	DriverEmail string     `json:"driver_email"`
	VehicleID   string     `json:"vehicle_id"`
	Type        SosType    `json:"type"`
	Location    Coord      `json:"location"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func (a SosAlert) Active() bool { return a.ResolvedAt == nil }

// MovementSample feeds idle detection. Samples are not retained beyond the
// current stationary episode.
type MovementSample struct {
	DriverEmail string    `json:"driver_email"`
	Location    Coord     `json:"location"`
	Moving      bool      `json:"moving"`
	Timestamp   time.Time `json:"timestamp"`
}

type VehiclePosition struct {
	VehicleID   string    `json:"vehicle_id"`
	DriverEmail string    `json:"driver_email"`
	Loc         Coord     `json:"loc"`
	SpeedKmh    float64   `json:"speed_kmh"`
	Status      string    `json:"status"` // moving, idle, sos
	Updated     time.Time `json:"updated"`
}

// Event severities understood by the notification sink.
const (
	SeverityIdleAlert = "IDLE_ALERT"
	SeveritySos       = "SOS"
	SeverityHeavyRain = "HEAVY_RAIN"
	SeverityStorm     = "STORM"
	SeverityAbnormal  = "ABNORMAL"
)

// Event is a system notification handed to the sink for downstream delivery.
type Event struct {
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	DriverEmail string    `json:"driver_email,omitempty"`
	At          time.Time `json:"at"`
}
