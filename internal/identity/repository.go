package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for identity operations.
var (
	ErrIdentityNotFound    = errors.New("identity not found")
	ErrDuplicateExternalID = errors.New("external id already registered")
)

// Repository defines the interface for identity data operations.
//
// Lookup methods return (nil, nil) when no record matches: for the
// verification path an unknown identity is a normal denial, not an error.
type Repository interface {
	// Insert stores a new identity. The ID and CreatedAt fields are
	// assigned if unset. Fails with ErrDuplicateExternalID if the
	// external ID is already registered.
	Insert(ctx context.Context, ident *Identity) error

	// GetByExternalID retrieves an identity by its campus ID.
	GetByExternalID(ctx context.Context, externalID string) (*Identity, error)

	// GetByID retrieves an identity by its internal UUID.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// List returns all identities in insertion order.
	List(ctx context.Context) ([]*Identity, error)

	// Update modifies an existing identity. Fails with ErrIdentityNotFound
	// if the identity does not exist.
	Update(ctx context.Context, ident *Identity) error

	// Deactivate clears the active flag. Records are never hard-deleted:
	// access logs keep referencing them.
	Deactivate(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and single-gate deployments without a database.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu         sync.RWMutex
	identities map[string]*Identity // UUID -> Identity
	byExternal map[string]string    // external ID -> UUID
	order      []string
}

// NewInMemoryRepository creates a new in-memory identity repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		identities: make(map[string]*Identity),
		byExternal: make(map[string]string),
	}
}

// Insert stores a new identity.
func (r *InMemoryRepository) Insert(ctx context.Context, ident *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byExternal[ident.ExternalID]; exists {
		return ErrDuplicateExternalID
	}

	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	if ident.CreatedAt.IsZero() {
		ident.CreatedAt = time.Now().UTC()
	}

	identCopy := *ident
	r.identities[ident.ID] = &identCopy
	r.byExternal[ident.ExternalID] = ident.ID
	r.order = append(r.order, ident.ID)
	return nil
}

// GetByExternalID retrieves an identity by its campus ID.
// Returns (nil, nil) when no record matches.
func (r *InMemoryRepository) GetByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byExternal[externalID]
	if !ok {
		return nil, nil
	}
	identCopy := *r.identities[id]
	return &identCopy, nil
}

// GetByID retrieves an identity by its internal UUID.
// Returns (nil, nil) when no record matches.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ident, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	identCopy := *ident
	return &identCopy, nil
}

// List returns all identities in insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Identity, 0, len(r.order))
	for _, id := range r.order {
		identCopy := *r.identities[id]
		results = append(results, &identCopy)
	}
	return results, nil
}

// Update modifies an existing identity.
func (r *InMemoryRepository) Update(ctx context.Context, ident *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.identities[ident.ID]
	if !ok {
		return ErrIdentityNotFound
	}

	// External ID changes must keep the lookup index consistent
	if existing.ExternalID != ident.ExternalID {
		if _, taken := r.byExternal[ident.ExternalID]; taken {
			return ErrDuplicateExternalID
		}
		delete(r.byExternal, existing.ExternalID)
		r.byExternal[ident.ExternalID] = ident.ID
	}

	identCopy := *ident
	identCopy.CreatedAt = existing.CreatedAt
	r.identities[ident.ID] = &identCopy
	return nil
}

// Deactivate clears the active flag.
func (r *InMemoryRepository) Deactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.identities[id]
	if !ok {
		return ErrIdentityNotFound
	}
	ident.Active = false
	return nil
}
