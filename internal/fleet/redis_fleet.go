package fleet

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/fleet-routing/internal/models"
)

// RedisIndex implements Tracker using Redis GEO commands, with a metadata
// hash per vehicle.
type RedisIndex struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisIndex(addr, password, key string) *RedisIndex {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisIndex{client: c, key: key, ctx: context.Background()}
}

func (r *RedisIndex) Upsert(p models.VehiclePosition) {
	_, _ = r.client.GeoAdd(r.ctx, r.key, &redis.GeoLocation{Longitude: p.Loc.Lon, Latitude: p.Loc.Lat, Name: p.VehicleID}).Result()
	_ = r.client.HSet(r.ctx, metaKey(p.VehicleID), map[string]interface{}{
		"driver":  p.DriverEmail,
		"speed":   fmt.Sprintf("%f", p.SpeedKmh),
		"status":  p.Status,
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisIndex) Nearby(lat, lon float64, limit int) []models.VehiclePosition {
	res, err := r.client.GeoRadius(r.ctx, r.key, lon, lat, &redis.GeoRadiusQuery{Radius: 50000, Unit: "m", WithCoord: true, WithDist: true, Count: limit, Sort: "ASC"}).Result()
	if err != nil {
		return nil
	}
	out := make([]models.VehiclePosition, 0, len(res))
	for _, g := range res {
		p := models.VehiclePosition{VehicleID: g.Name}
		p.Loc.Lat = g.Latitude
		p.Loc.Lon = g.Longitude
		if m, err := r.client.HGetAll(r.ctx, metaKey(g.Name)).Result(); err == nil {
			p.DriverEmail = m["driver"]
			p.Status = m["status"]
			if v, ok := m["speed"]; ok {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					p.SpeedKmh = f
				}
			}
			if v, ok := m["updated"]; ok {
				if ts, err := time.Parse(time.RFC3339, v); err == nil {
					p.Updated = ts
				}
			}
		}
		out = append(out, p)
	}
	return out
}

func metaKey(id string) string { return "vehicle:meta:" + id }
