// Package trips owns the trip state machine: InProgress -> Completed, no
// reverse transitions, completion is the only terminal operation.
package trips

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/observability"
)

type Manager struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, locks: make(map[string]*sync.Mutex)}
}

// lockFor serializes all mutations of one trip. Concurrent telemetry and the
// completion transition for the same trip never interleave.
func (m *Manager) lockFor(tripID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[tripID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[tripID] = l
	}
	return l
}

type StartRequest struct {
	DriverEmail      string                 `json:"driver_email"`
	VehicleID        string                 `json:"vehicle_id"`
	Origin           string                 `json:"origin"`
	Destination      string                 `json:"destination"`
	OriginCoord      models.Coord           `json:"origin_coord"`
	DestinationCoord models.Coord           `json:"destination_coord"`
	Weather          models.WeatherSnapshot `json:"weather"`
	Notes            string                 `json:"notes"`
}

// StartTrip creates a trip directly in InProgress; there is no observable
// created-but-not-started state.
func (m *Manager) StartTrip(req StartRequest) (*models.Trip, error) {
	if req.Origin == "" || req.Destination == "" {
		return nil, faults.New(faults.KindValidation, "origin and destination are required")
	}
	if req.DriverEmail == "" {
		return nil, faults.New(faults.KindValidation, "driver email is required")
	}
	now := time.Now().UTC()
	t := &models.Trip{
		ID:               newID(),
		DriverEmail:      req.DriverEmail,
		VehicleID:        req.VehicleID,
		OriginLabel:      req.Origin,
		DestinationLabel: req.Destination,
		Origin:           req.OriginCoord,
		Destination:      req.DestinationCoord,
		Status:           models.TripInProgress,
		StartTime:        now,
		StartWeather:     req.Weather,
		Notes:            req.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.store.Save(t); err != nil {
		return nil, err
	}
	observability.TripsActive.Inc()
	return clone(t), nil
}

// ApplyTelemetry updates position/speed/eta for an in-progress trip. A
// report older than the last applied one succeeds but changes nothing, so
// out-of-order arrival never regresses state.
func (m *Manager) ApplyTelemetry(up models.TelemetryUpdate, callerEmail, callerRole string) (*models.Trip, error) {
	l := m.lockFor(up.TripID)
	l.Lock()
	defer l.Unlock()

	t, ok, err := m.store.Get(up.TripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "trip %s not found", up.TripID)
	}
	if callerRole != models.RoleAdmin && callerEmail != t.DriverEmail {
		return nil, faults.New(faults.KindForbidden, "telemetry rejected: caller does not own trip")
	}
	if t.Status != models.TripInProgress {
		return nil, faults.Newf(faults.KindInvalidTransition, "trip %s is %s", t.ID, t.Status)
	}

	ts := up.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if ts.Before(t.LastTelemetryAt) {
		observability.TelemetryStaleTotal.Inc()
		return t, nil // stale report: success, state unchanged
	}

	pos := up.Position
	t.Position = &pos
	t.SpeedKmh = up.SpeedKmh
	if up.ETA != "" {
		t.ETA = up.ETA
	}
	t.LastTelemetryAt = ts
	t.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(t); err != nil {
		return nil, err
	}
	observability.TelemetryAppliedTotal.Inc()
	return t, nil
}

// CompleteTrip is the only path to Completed. Anything not exactly
// InProgress is rejected and left untouched.
func (m *Manager) CompleteTrip(tripID string, endTime time.Time, finalPos models.Coord, endWeather *models.WeatherSnapshot) (*models.Trip, error) {
	l := m.lockFor(tripID)
	l.Lock()
	defer l.Unlock()

	t, ok, err := m.store.Get(tripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "trip %s not found", tripID)
	}
	if t.Status != models.TripInProgress {
		return nil, faults.Newf(faults.KindInvalidTransition, "cannot complete trip in status %s", t.Status)
	}

	if endTime.IsZero() {
		endTime = time.Now().UTC()
	}
	t.Status = models.TripCompleted
	t.EndTime = &endTime
	t.Position = &finalPos
	t.EndWeather = endWeather
	t.UpdatedAt = time.Now().UTC()
	if err := m.store.Update(t); err != nil {
		return nil, err
	}
	observability.TripsActive.Dec()
	observability.TripsCompletedTotal.Inc()
	return t, nil
}

// ListTrips returns all trips for administrators and only the caller's own
// trips otherwise. A missing caller identity is rejected rather than treated
// as an implicit admin.
func (m *Manager) ListTrips(callerEmail, callerRole string) ([]*models.Trip, error) {
	if callerEmail == "" {
		return nil, faults.New(faults.KindForbidden, "caller identity required")
	}
	all, err := m.store.List()
	if err != nil {
		return nil, err
	}
	if callerRole == models.RoleAdmin {
		return all, nil
	}
	out := make([]*models.Trip, 0, len(all))
	for _, t := range all {
		if t.DriverEmail == callerEmail {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Manager) Get(tripID string) (*models.Trip, error) {
	t, ok, err := m.store.Get(tripID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "trip %s not found", tripID)
	}
	return t, nil
}

// ActiveTripFor reports the driver's current in-progress trip, if any.
func (m *Manager) ActiveTripFor(driverEmail string) (*models.Trip, bool) {
	all, err := m.store.List()
	if err != nil {
		return nil, false
	}
	for _, t := range all {
		if t.DriverEmail == driverEmail && t.Status == models.TripInProgress {
			return t, true
		}
	}
	return nil, false
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
