package trips

import (
	"testing"
	"time"

	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
)

func startReq() StartRequest {
	return StartRequest{
		DriverEmail:      "driver-a@fleet.test",
		VehicleID:        "VEH-1",
		Origin:           "Warehouse-1",
		Destination:      "Depot-9",
		OriginCoord:      models.Coord{Lat: 12.97, Lon: 77.59},
		DestinationCoord: models.Coord{Lat: 13.08, Lon: 80.27},
		Weather:          models.WeatherSnapshot{Condition: "Clear", TemperatureC: 24},
	}
}

func TestStartTripIsInProgress(t *testing.T) {
	m := NewManager(NewMemoryStore())
	trip, err := m.StartTrip(startReq())
	if err != nil {
		t.Fatal(err)
	}
	if trip.Status != models.TripInProgress {
		t.Fatalf("expected in_progress, got %s", trip.Status)
	}
	if trip.ID == "" || trip.EndTime != nil || trip.Position != nil {
		t.Fatalf("unexpected initial state: %+v", trip)
	}
}

func TestStartTripValidatesLabels(t *testing.T) {
	m := NewManager(NewMemoryStore())
	req := startReq()
	req.Origin = ""
	if _, err := m.StartTrip(req); faults.KindOf(err) != faults.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTripEndToEnd(t *testing.T) {
	m := NewManager(NewMemoryStore())
	trip, err := m.StartTrip(startReq())
	if err != nil {
		t.Fatal(err)
	}

	up := models.TelemetryUpdate{
		TripID:    trip.ID,
		Position:  models.Coord{Lat: 1.0, Lon: 2.0},
		SpeedKmh:  40,
		ETA:       "10:45",
		Timestamp: time.Now(),
	}
	got, err := m.ApplyTelemetry(up, "driver-a@fleet.test", "user")
	if err != nil {
		t.Fatal(err)
	}
	if got.Position == nil || got.Position.Lat != 1.0 || got.SpeedKmh != 40 || got.ETA != "10:45" {
		t.Fatalf("telemetry not applied: %+v", got)
	}

	end := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	done, err := m.CompleteTrip(trip.ID, end, models.Coord{Lat: 1.0, Lon: 2.0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.TripCompleted || done.EndTime == nil || !done.EndTime.Equal(end) {
		t.Fatalf("completion wrong: %+v", done)
	}

	// telemetry after completion must be rejected
	if _, err := m.ApplyTelemetry(up, "driver-a@fleet.test", "user"); faults.KindOf(err) != faults.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCompleteIsStrict(t *testing.T) {
	m := NewManager(NewMemoryStore())
	trip, _ := m.StartTrip(startReq())
	if _, err := m.CompleteTrip(trip.ID, time.Now(), models.Coord{}, nil); err != nil {
		t.Fatal(err)
	}
	// second completion always rejected, never upserted
	if _, err := m.CompleteTrip(trip.ID, time.Now(), models.Coord{}, nil); faults.KindOf(err) != faults.KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if _, err := m.CompleteTrip("missing", time.Now(), models.Coord{}, nil); faults.KindOf(err) != faults.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	// stored trip unchanged by the failed attempt
	stored, err := m.Get(trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.TripCompleted {
		t.Fatalf("stored trip mutated: %+v", stored)
	}
}

func TestTelemetryOwnership(t *testing.T) {
	m := NewManager(NewMemoryStore())
	trip, _ := m.StartTrip(startReq())
	up := models.TelemetryUpdate{TripID: trip.ID, Position: models.Coord{Lat: 5}, Timestamp: time.Now()}

	if _, err := m.ApplyTelemetry(up, "driver-b@fleet.test", "user"); faults.KindOf(err) != faults.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	// admin may update any trip
	if _, err := m.ApplyTelemetry(up, "ops@fleet.test", models.RoleAdmin); err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
}

func TestStaleTelemetryIsNoOpSuccess(t *testing.T) {
	m := NewManager(NewMemoryStore())
	trip, _ := m.StartTrip(startReq())

	now := time.Now()
	first := models.TelemetryUpdate{TripID: trip.ID, Position: models.Coord{Lat: 1, Lon: 1}, SpeedKmh: 50, ETA: "10:30", Timestamp: now}
	if _, err := m.ApplyTelemetry(first, trip.DriverEmail, "user"); err != nil {
		t.Fatal(err)
	}

	stale := models.TelemetryUpdate{TripID: trip.ID, Position: models.Coord{Lat: 9, Lon: 9}, SpeedKmh: 5, ETA: "09:00", Timestamp: now.Add(-time.Minute)}
	got, err := m.ApplyTelemetry(stale, trip.DriverEmail, "user")
	if err != nil {
		t.Fatalf("stale telemetry must succeed: %v", err)
	}
	if got.Position.Lat != 1 || got.SpeedKmh != 50 || got.ETA != "10:30" {
		t.Fatalf("stale telemetry regressed state: %+v", got)
	}
}

func TestListTripsScoped(t *testing.T) {
	m := NewManager(NewMemoryStore())
	a := startReq()
	b := startReq()
	b.DriverEmail = "driver-b@fleet.test"
	if _, err := m.StartTrip(a); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartTrip(b); err != nil {
		t.Fatal(err)
	}

	mine, err := m.ListTrips("driver-a@fleet.test", "user")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].DriverEmail != "driver-a@fleet.test" {
		t.Fatalf("expected only own trips, got %+v", mine)
	}

	all, err := m.ListTrips("ops@fleet.test", models.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("admin should see all trips, got %d", len(all))
	}

	if _, err := m.ListTrips("", "user"); faults.KindOf(err) != faults.KindForbidden {
		t.Fatalf("missing identity must be forbidden, got %v", err)
	}
}
