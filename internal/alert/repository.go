package alert

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAlertNotFound is returned when an alert doesn't exist.
var ErrAlertNotFound = errors.New("alert not found")

// DefaultRecentLimit is used by ListRecent when the caller passes limit <= 0.
const DefaultRecentLimit = 20

// Repository defines the interface for alert operations.
type Repository interface {
	// Insert stores a new alert. The ID, CreatedAt and Read fields are
	// assigned if unset. Returns the stored alert.
	Insert(ctx context.Context, a *Alert) (*Alert, error)

	// ListRecent retrieves alerts sorted by time, newest first.
	// A limit <= 0 falls back to DefaultRecentLimit.
	ListRecent(ctx context.Context, limit int) ([]*Alert, error)

	// MarkRead acknowledges an alert. Returns ErrAlertNotFound when no
	// alert has the given ID. Marking an already-read alert is a no-op.
	MarkRead(ctx context.Context, id string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
	// Maintain insertion order for newest-first listing
	order []string
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
	}
}

// Insert stores a new alert.
func (r *InMemoryRepository) Insert(ctx context.Context, a *Alert) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	alertCopy := *a
	r.alerts[a.ID] = &alertCopy
	r.order = append(r.order, a.ID)

	// Return a copy to prevent external modification
	result := alertCopy
	return &result, nil
}

// ListRecent retrieves alerts sorted by time, newest first.
func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*Alert, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Alert
	for i := len(r.order) - 1; i >= 0 && len(results) < limit; i-- {
		alertCopy := *r.alerts[r.order[i]]
		results = append(results, &alertCopy)
	}
	return results, nil
}

// MarkRead acknowledges an alert.
func (r *InMemoryRepository) MarkRead(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.alerts[id]
	if !exists {
		return ErrAlertNotFound
	}
	a.Read = true
	return nil
}
