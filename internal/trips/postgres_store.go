package trips

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/fleet-routing/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Save(t *models.Trip) error {
	_, err := p.db.Exec(`INSERT INTO trips(
		id, driver_email, vehicle_id, origin_label, destination_label,
		origin_lat, origin_lon, destination_lat, destination_lon,
		status, start_time, start_condition, start_temperature_c,
		start_wind_kmh, start_rain_pct, notes, created_at, updated_at
	) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		t.ID, t.DriverEmail, t.VehicleID, t.OriginLabel, t.DestinationLabel,
		t.Origin.Lat, t.Origin.Lon, t.Destination.Lat, t.Destination.Lon,
		t.Status, t.StartTime, t.StartWeather.Condition, t.StartWeather.TemperatureC,
		t.StartWeather.WindSpeedKmh, t.StartWeather.RainProbabilityPct, t.Notes,
		t.CreatedAt, t.UpdatedAt)
	return err
}

func (p *PostgresStore) Update(t *models.Trip) error {
	var posLat, posLon sql.NullFloat64
	if t.Position != nil {
		posLat = sql.NullFloat64{Float64: t.Position.Lat, Valid: true}
		posLon = sql.NullFloat64{Float64: t.Position.Lon, Valid: true}
	}
	var endTime sql.NullTime
	if t.EndTime != nil {
		endTime = sql.NullTime{Time: *t.EndTime, Valid: true}
	}
	var endCond sql.NullString
	if t.EndWeather != nil {
		endCond = sql.NullString{String: t.EndWeather.Condition, Valid: true}
	}
	_, err := p.db.Exec(`UPDATE trips SET
		status=$1, end_time=$2, position_lat=$3, position_lon=$4,
		speed_kmh=$5, eta=$6, end_condition=$7, last_telemetry_at=$8, updated_at=$9
	WHERE id=$10`,
		t.Status, endTime, posLat, posLon, t.SpeedKmh, t.ETA, endCond,
		t.LastTelemetryAt, t.UpdatedAt, t.ID)
	return err
}

func (p *PostgresStore) Get(id string) (*models.Trip, bool, error) {
	row := p.db.QueryRow(`SELECT `+tripColumns+` FROM trips WHERE id=$1`, id)
	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (p *PostgresStore) List() ([]*models.Trip, error) {
	rows, err := p.db.Query(`SELECT ` + tripColumns + ` FROM trips ORDER BY start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const tripColumns = `id, driver_email, vehicle_id, origin_label, destination_label,
	origin_lat, origin_lon, destination_lat, destination_lon, status,
	start_time, end_time, position_lat, position_lon, speed_kmh, eta,
	start_condition, start_temperature_c, start_wind_kmh, start_rain_pct,
	end_condition, notes, last_telemetry_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(r rowScanner) (*models.Trip, error) {
	var t models.Trip
	var endTime, lastTelemetry sql.NullTime
	var posLat, posLon sql.NullFloat64
	var eta, endCond sql.NullString
	err := r.Scan(&t.ID, &t.DriverEmail, &t.VehicleID, &t.OriginLabel, &t.DestinationLabel,
		&t.Origin.Lat, &t.Origin.Lon, &t.Destination.Lat, &t.Destination.Lon, &t.Status,
		&t.StartTime, &endTime, &posLat, &posLon, &t.SpeedKmh, &eta,
		&t.StartWeather.Condition, &t.StartWeather.TemperatureC,
		&t.StartWeather.WindSpeedKmh, &t.StartWeather.RainProbabilityPct,
		&endCond, &t.Notes, &lastTelemetry, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t.EndTime = &endTime.Time
	}
	if lastTelemetry.Valid {
		t.LastTelemetryAt = lastTelemetry.Time
	}
	if posLat.Valid && posLon.Valid {
		t.Position = &models.Coord{Lat: posLat.Float64, Lon: posLon.Float64}
	}
	if eta.Valid {
		t.ETA = eta.String
	}
	if endCond.Valid {
		t.EndWeather = &models.WeatherSnapshot{Condition: endCond.String}
	}
	return &t, nil
}
