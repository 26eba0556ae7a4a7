package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/example/fleet-routing/internal/faults"
	"github.com/example/fleet-routing/internal/models"
	"github.com/example/fleet-routing/internal/trips"
)

// movingSpeedKmh is the cutoff below which a telemetry report counts as
// stationary for idle detection.
const movingSpeedKmh = 2.0

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Origin      string `json:"origin"`
		Destination string `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, faults.Wrap(faults.KindValidation, "invalid request body", err))
		return
	}
	res, err := s.Optimizer.Optimize(req.Origin, req.Destination)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStartTrip(w http.ResponseWriter, r *http.Request) {
	var req trips.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, faults.Wrap(faults.KindValidation, "invalid request body", err))
		return
	}
	if req.OriginCoord == (models.Coord{}) {
		if c, ok := s.Optimizer.Geocoder.Resolve(req.Origin); ok {
			req.OriginCoord = c
		}
	}
	if req.DestinationCoord == (models.Coord{}) {
		if c, ok := s.Optimizer.Geocoder.Resolve(req.Destination); ok {
			req.DestinationCoord = c
		}
	}
	// capture departure weather when the client did not supply it; a weather
	// outage does not block the trip from starting
	if req.Weather.Condition == "" && req.OriginCoord != (models.Coord{}) {
		if snap, err := s.Weather.Current(req.OriginCoord); err == nil {
			req.Weather = snap
		} else {
			s.logger.Warn("start weather unavailable", "error", err)
		}
	}
	t, err := s.Trips.StartTrip(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	var up models.TelemetryUpdate
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		s.writeError(w, faults.Wrap(faults.KindValidation, "invalid request body", err))
		return
	}
	up.TripID = mux.Vars(r)["id"]
	email := r.URL.Query().Get("email")
	role := r.URL.Query().Get("role")

	t, err := s.Trips.ApplyTelemetry(up, email, role)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// a stale report succeeded but changed nothing; do not let it overwrite
	// the fleet index or fan out downstream
	if !up.Timestamp.IsZero() && up.Timestamp.Before(t.LastTelemetryAt) {
		writeJSON(w, http.StatusOK, t)
		return
	}

	pos := models.VehiclePosition{
		VehicleID:   t.VehicleID,
		DriverEmail: t.DriverEmail,
		Loc:         up.Position,
		SpeedKmh:    up.SpeedKmh,
		Status:      "moving",
		Updated:     time.Now().UTC(),
	}
	if up.SpeedKmh < movingSpeedKmh {
		pos.Status = "idle"
	}
	s.Fleet.Upsert(pos)
	s.Sos.RecordMovement(models.MovementSample{
		DriverEmail: t.DriverEmail,
		Location:    up.Position,
		Moving:      up.SpeedKmh >= movingSpeedKmh,
		Timestamp:   up.Timestamp,
	})
	if s.Kafka != nil {
		if err := s.Kafka.PublishTelemetry(pos); err != nil {
			s.logger.Warn("telemetry publish failed", "trip", t.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EndTime  string       `json:"end_time"`
		Position models.Coord `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, faults.Wrap(faults.KindValidation, "invalid request body", err))
		return
	}
	var end time.Time
	if req.EndTime != "" {
		var err error
		end, err = time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			s.writeError(w, faults.Wrap(faults.KindValidation, "invalid end_time", err))
			return
		}
	}

	// arrival weather is best-effort; completion must not depend on it
	var endWeather *models.WeatherSnapshot
	if req.Position != (models.Coord{}) {
		if snap, err := s.Weather.Current(req.Position); err == nil {
			endWeather = &snap
		}
	}

	t, err := s.Trips.CompleteTrip(mux.Vars(r)["id"], end, req.Position, endWeather)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	out, err := s.Trips.ListTrips(r.URL.Query().Get("email"), r.URL.Query().Get("role"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRaiseSos(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DriverEmail string         `json:"driver_email"`
		VehicleID   string         `json:"vehicle_id"`
		Type        models.SosType `json:"type"`
		Location    models.Coord   `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, faults.Wrap(faults.KindValidation, "invalid request body", err))
		return
	}
	a, err := s.Sos.RaiseAlert(req.DriverEmail, req.VehicleID, req.Type, req.Location)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleResolveSos(w http.ResponseWriter, r *http.Request) {
	a, err := s.Sos.ResolveAlert(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleActiveSos(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		s.writeError(w, faults.New(faults.KindValidation, "email is required"))
		return
	}
	a, ok := s.Sos.GetActive(email)
	writeJSON(w, http.StatusOK, map[string]any{"has_active": ok, "alert": a})
}

func (s *Server) handleListSos(w http.ResponseWriter, r *http.Request) {
	out, err := s.Sos.ListAlerts(r.URL.Query().Get("email"), r.URL.Query().Get("role"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMovement(w http.ResponseWriter, r *http.Request) {
	var sample models.MovementSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		s.writeError(w, faults.Wrap(faults.KindValidation, "invalid request body", err))
		return
	}
	if sample.DriverEmail == "" {
		s.writeError(w, faults.New(faults.KindValidation, "driver_email is required"))
		return
	}
	s.Sos.RecordMovement(sample)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFleetPositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		s.writeError(w, faults.New(faults.KindValidation, "lat and lon are required"))
		return
	}
	limit := 20
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	out := s.Fleet.Nearby(lat, lon, limit)
	if q.Get("role") != models.RoleAdmin {
		email := q.Get("email")
		filtered := out[:0]
		for _, p := range out {
			if p.DriverEmail == email {
				filtered = append(filtered, p)
			}
		}
		out = filtered
	}
	writeJSON(w, http.StatusOK, out)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the engine sits behind the product gateway which enforces origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWS attaches a live session for a driver or dashboard. The session
// only receives events; inbound frames are drained to detect disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "email", email, "error", err)
		return
	}
	s.WSReg.Add(email, conn)
	s.logger.Info("ws session opened", "email", email)

	go func() {
		defer func() {
			s.WSReg.Remove(email)
			conn.Close()
			s.logger.Info("ws session closed", "email", email)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
