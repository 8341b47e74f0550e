// Package geofence provides GeofenceRegistrar implementations. A registered
// geofence is identified by its reminder id; registering the same id again
// replaces the previous region.
package geofence

import (
	"context"
	"fmt"
	"sync"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/domain/geometry"
	"github.com/geominder/core/internal/ports"
)

// MemoryRegistrar keeps geofences in process memory
type MemoryRegistrar struct {
	mu     sync.RWMutex
	fences map[string]entities.Geofence
	order  []string
}

// NewMemoryRegistrar creates an empty in-memory registrar
func NewMemoryRegistrar() ports.GeofenceRegistrar {
	return &MemoryRegistrar{fences: make(map[string]entities.Geofence)}
}

func (r *MemoryRegistrar) Register(ctx context.Context, fence entities.Geofence) error {
	if err := validate(fence); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.fences[fence.ID]; !ok {
		r.order = append(r.order, fence.ID)
	}
	r.fences[fence.ID] = fence

	return nil
}

func (r *MemoryRegistrar) Remove(ctx context.Context, ids ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, ok := r.fences[id]; !ok {
			continue
		}
		delete(r.fences, id)
		for i, existing := range r.order {
			if existing == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}

	return nil
}

func (r *MemoryRegistrar) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fences = make(map[string]entities.Geofence)
	r.order = nil

	return nil
}

func (r *MemoryRegistrar) Containing(ctx context.Context, c entities.Coordinate) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := []string{}
	for _, id := range r.order {
		fence := r.fences[id]
		if geometry.Contains(fence.Center, fence.RadiusMeters, c) {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func validate(fence entities.Geofence) error {
	if fence.ID == "" {
		return fmt.Errorf("register geofence: empty id: %w", entities.ErrInvalidLocation)
	}
	if fence.RadiusMeters <= 0 {
		return fmt.Errorf("register geofence %s: radius must be positive: %w", fence.ID, entities.ErrInvalidLocation)
	}
	if fence.Center.Latitude < -90 || fence.Center.Latitude > 90 ||
		fence.Center.Longitude < -180 || fence.Center.Longitude > 180 {
		return fmt.Errorf("register geofence %s: center %s out of range: %w", fence.ID, fence.Center, entities.ErrInvalidLocation)
	}
	return nil
}
