package trips

import (
	"sync"

	"github.com/example/fleet-routing/internal/models"
)

// Store defines persistence operations for trips.
type Store interface {
	Save(t *models.Trip) error
	Update(t *models.Trip) error
	Get(id string) (*models.Trip, bool, error)
	List() ([]*models.Trip, error)
}

type MemoryStore struct {
	mu    sync.RWMutex
	trips map[string]*models.Trip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trips: make(map[string]*models.Trip)}
}

func (m *MemoryStore) Save(t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[t.ID] = clone(t)
	return nil
}

func (m *MemoryStore) Update(t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[t.ID] = clone(t)
	return nil
}

func (m *MemoryStore) Get(id string) (*models.Trip, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, false, nil
	}
	return clone(t), true, nil
}

func (m *MemoryStore) List() ([]*models.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		out = append(out, clone(t))
	}
	return out, nil
}

// clone keeps callers from holding mutable references into the store.
func clone(t *models.Trip) *models.Trip {
	c := *t
	if t.EndTime != nil {
		et := *t.EndTime
		c.EndTime = &et
	}
	if t.Position != nil {
		p := *t.Position
		c.Position = &p
	}
	if t.EndWeather != nil {
		w := *t.EndWeather
		c.EndWeather = &w
	}
	return &c
}
