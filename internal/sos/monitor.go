// Package sos tracks driver emergency alerts and idle state. At most one
// active alert may exist per driver; that invariant is enforced here under a
// per-driver lock, not left to the UI.
package sos

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/notify"
	"github.com/example/fleet-routing/internal/observability"
)

// DefaultIdleThreshold is how long a driver may stay stationary during an
// in-progress trip before an idle alert is emitted.
const DefaultIdleThreshold = 10 * time.Minute

// TripSource cross-references the driver's active trip; idle alerts only
// fire while a trip is in progress.
type TripSource interface {
	ActiveTripFor(driverEmail string) (*models.Trip, bool)
}

type Monitor struct {
	trips         TripSource
	sink          notify.Sink
	idleThreshold time.Duration

	mu             sync.Mutex
	locks          map[string]*sync.Mutex
	alerts         map[string]*models.SosAlert // by alert id
	activeByDriver map[string]string           // driver email -> alert id
	idle           map[string]*idleState       // by driver email
}

// idleState covers one continuous stationary episode.
type idleState struct {
	since   time.Time
	alerted bool
}

func NewMonitor(trips TripSource, sink notify.Sink, idleThreshold time.Duration) *Monitor {
	if idleThreshold <= 0 {
		idleThreshold = DefaultIdleThreshold
	}
	return &Monitor{
		trips:          trips,
		sink:           sink,
		idleThreshold:  idleThreshold,
		locks:          make(map[string]*sync.Mutex),
		alerts:         make(map[string]*models.SosAlert),
		activeByDriver: make(map[string]string),
		idle:           make(map[string]*idleState),
	}
}

// lockFor serializes alert mutations per driver so concurrent raise attempts
// cannot both pass the single-active check.
func (m *Monitor) lockFor(driverEmail string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[driverEmail]
	if !ok {
		l = &sync.Mutex{}
		m.locks[driverEmail] = l
	}
	return l
}

func (m *Monitor) RaiseAlert(driverEmail, vehicleID string, typ models.SosType, loc models.Coord) (*models.SosAlert, error) {
	if driverEmail == "" {
		return nil, faults.New(faults.KindValidation, "driver email is required")
	}
	l := m.lockFor(driverEmail)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	if id, ok := m.activeByDriver[driverEmail]; ok {
		m.mu.Unlock()
		return nil, faults.Newf(faults.KindConflict, "driver %s already has active alert %s", driverEmail, id)
	}
	a := &models.SosAlert{
		ID:          newID(),
		DriverEmail: driverEmail,
		VehicleID:   vehicleID,
		Type:        typ,
		Location:    loc,
		CreatedAt:   time.Now().UTC(),
	}
	m.alerts[a.ID] = a
	m.activeByDriver[driverEmail] = a.ID
	m.mu.Unlock()

	observability.SosActive.Inc()
	if m.sink != nil {
		_ = m.sink.Notify(models.Event{
			Severity:    models.SeveritySos,
			Title:       "SOS raised",
			Message:     string(typ) + " emergency for vehicle " + vehicleID,
			DriverEmail: driverEmail,
			At:          a.CreatedAt,
		})
	}
	out := *a
	return &out, nil
}

// ResolveAlert closes an alert. Resolving twice is reported as
// AlreadyResolved so callers can detect stale state, not silently accepted.
func (m *Monitor) ResolveAlert(alertID string) (*models.SosAlert, error) {
	m.mu.Lock()
	a, ok := m.alerts[alertID]
	m.mu.Unlock()
	if !ok {
		return nil, faults.Newf(faults.KindNotFound, "alert %s not found", alertID)
	}

	l := m.lockFor(a.DriverEmail)
	l.Lock()
	defer l.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ResolvedAt != nil {
		out := *a
		return &out, faults.Newf(faults.KindAlreadyResolved, "alert %s already resolved", alertID)
	}
	now := time.Now().UTC()
	a.ResolvedAt = &now
	delete(m.activeByDriver, a.DriverEmail)
	observability.SosActive.Dec()
	out := *a
	return &out, nil
}

func (m *Monitor) GetActive(driverEmail string) (*models.SosAlert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.activeByDriver[driverEmail]
	if !ok {
		return nil, false
	}
	out := *m.alerts[id]
	return &out, true
}

// ListAlerts returns every alert for administrators and the caller's own
// alerts otherwise.
func (m *Monitor) ListAlerts(callerEmail, callerRole string) ([]*models.SosAlert, error) {
	if callerEmail == "" {
		return nil, faults.New(faults.KindForbidden, "caller identity required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.SosAlert, 0, len(m.alerts))
	for _, a := range m.alerts {
		if callerRole != models.RoleAdmin && a.DriverEmail != callerEmail {
			continue
		}
		c := *a
		out = append(out, &c)
	}
	return out, nil
}

// RecordMovement feeds the idle detector. A driver continuously stationary
// past the threshold while a trip is in progress triggers one idle alert per
// episode; movement resets the episode.
func (m *Monitor) RecordMovement(s models.MovementSample) {
	if s.DriverEmail == "" {
		return
	}
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	m.mu.Lock()
	st, ok := m.idle[s.DriverEmail]
	if s.Moving {
		delete(m.idle, s.DriverEmail)
		m.mu.Unlock()
		return
	}
	if !ok {
		m.idle[s.DriverEmail] = &idleState{since: ts}
		m.mu.Unlock()
		return
	}
	if st.alerted || ts.Sub(st.since) <= m.idleThreshold {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	// only alert while a trip is in progress; the episode stays armed so a
	// trip starting mid-episode can still trigger it
	trip, ok := m.trips.ActiveTripFor(s.DriverEmail)
	if !ok {
		return
	}

	m.mu.Lock()
	if cur, ok := m.idle[s.DriverEmail]; !ok || cur.alerted {
		m.mu.Unlock()
		return
	} else {
		cur.alerted = true
	}
	m.mu.Unlock()

	observability.IdleAlertsTotal.Inc()
	if m.sink != nil {
		_ = m.sink.Notify(models.Event{
			Severity:    models.SeverityIdleAlert,
			Title:       "Vehicle idle",
			Message:     "vehicle " + trip.VehicleID + " stationary beyond threshold during trip " + trip.ID,
			DriverEmail: s.DriverEmail,
			At:          ts,
		})
	}
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
