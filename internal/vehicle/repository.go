package vehicle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for vehicle operations.
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrDuplicatePlate  = errors.New("plate already registered")
)

// Repository defines the interface for vehicle data operations.
//
// GetByPlate matches the plate exactly, case-sensitive: the scanned plate
// string must equal the registered one byte for byte.
// Lookup methods return (nil, nil) when no record matches.
type Repository interface {
	// Insert stores a new vehicle. The ID and CreatedAt fields are
	// assigned if unset. Fails with ErrDuplicatePlate if the plate is
	// already registered.
	Insert(ctx context.Context, v *Vehicle) error

	// GetByPlate retrieves a vehicle by its plate string.
	GetByPlate(ctx context.Context, plate string) (*Vehicle, error)

	// List returns all vehicles in insertion order.
	List(ctx context.Context) ([]*Vehicle, error)

	// Delete removes a vehicle by plate. Fails with ErrVehicleNotFound
	// if the plate is not registered.
	Delete(ctx context.Context, plate string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and single-gate deployments without a database.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*Vehicle // plate -> Vehicle
	order    []string
}

// NewInMemoryRepository creates a new in-memory vehicle repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		vehicles: make(map[string]*Vehicle),
	}
}

// Insert stores a new vehicle.
func (r *InMemoryRepository) Insert(ctx context.Context, v *Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.vehicles[v.Plate]; exists {
		return ErrDuplicatePlate
	}

	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	vCopy := *v
	r.vehicles[v.Plate] = &vCopy
	r.order = append(r.order, v.Plate)
	return nil
}

// GetByPlate retrieves a vehicle by its plate string.
// Returns (nil, nil) when no record matches.
func (r *InMemoryRepository) GetByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[plate]
	if !ok {
		return nil, nil
	}
	vCopy := *v
	return &vCopy, nil
}

// List returns all vehicles in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Vehicle, 0, len(r.order))
	for _, plate := range r.order {
		if v, ok := r.vehicles[plate]; ok {
			vCopy := *v
			results = append(results, &vCopy)
		}
	}
	return results, nil
}

// Delete removes a vehicle by plate.
func (r *InMemoryRepository) Delete(ctx context.Context, plate string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vehicles[plate]; !ok {
		return ErrVehicleNotFound
	}
	delete(r.vehicles, plate)
	for i, p := range r.order {
		if p == plate {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
