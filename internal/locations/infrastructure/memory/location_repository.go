package memory

import (
	"context"
	"errors"
	"sync"

	locations "storeops-cloud/internal/locations/domain"
)

// LocationRepository is an in-memory location store for tests and local runs.
type LocationRepository struct {
	mu        sync.RWMutex
	locations map[string]locations.Location
}

// NewLocationRepository constructs an empty store.
func NewLocationRepository() *LocationRepository {
	return &LocationRepository{locations: make(map[string]locations.Location)}
}

// Get loads one location. A missing id returns nil without error, matching
// the database repository.
func (r *LocationRepository) Get(_ context.Context, id string) (*locations.Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	location, ok := r.locations[id]
	if !ok {
		return nil, nil
	}
	copied := location
	return &copied, nil
}

// Save upserts a location.
func (r *LocationRepository) Save(_ context.Context, location *locations.Location) error {
	if location == nil {
		return errors.New("locations: nil location")
	}
	if err := location.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[location.ID] = *location
	return nil
}
