package weather

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/fleet-routing/internal/models"
)

// Cache is a tiny in-memory TTL cache for snapshots keyed by coordinate.
// Coordinates are rounded so nearby lookups share an entry.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	w  models.WeatherSnapshot
	ts time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(c models.Coord) string {
	return fmt.Sprintf("%.2f,%.2f", c.Lat, c.Lon)
}

func (c *Cache) Get(at models.Coord) (models.WeatherSnapshot, bool) {
	k := keyFor(at)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return models.WeatherSnapshot{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return models.WeatherSnapshot{}, false
	}
	return e.w, true
}

func (c *Cache) Set(at models.Coord, w models.WeatherSnapshot) {
	k := keyFor(at)
	c.mu.Lock()
	c.store[k] = cacheEntry{w: w, ts: time.Now()}
	c.mu.Unlock()
}
