package accesslog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRecentLimit is used by ListRecent when the caller passes limit <= 0.
const DefaultRecentLimit = 50

// Repository defines the interface for access log operations.
// The log is append-only: there is no update or delete.
type Repository interface {
	// Insert stores a new entry. The ID and CreatedAt fields are
	// assigned if unset. Returns the stored entry.
	Insert(ctx context.Context, entry *Entry) (*Entry, error)

	// ListRecent retrieves entries sorted by time, newest first.
	// A limit <= 0 falls back to DefaultRecentLimit.
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)

	// TodayStats aggregates today's entries for the dashboard.
	TodayStats(ctx context.Context) (*Stats, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and single-gate deployments without a database.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	// Maintain insertion order for newest-first listing
	order []string
}

// NewInMemoryRepository creates a new in-memory access log repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries: make(map[string]*Entry),
	}
}

// Insert stores a new entry.
func (r *InMemoryRepository) Insert(ctx context.Context, entry *Entry) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entryCopy := *entry
	r.entries[entry.ID] = &entryCopy
	r.order = append(r.order, entry.ID)

	// Return a copy to prevent external modification
	result := entryCopy
	return &result, nil
}

// ListRecent retrieves entries sorted by time, newest first.
func (r *InMemoryRepository) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Entry
	for i := len(r.order) - 1; i >= 0 && len(results) < limit; i-- {
		entryCopy := *r.entries[r.order[i]]
		results = append(results, &entryCopy)
	}
	return results, nil
}

// TodayStats aggregates today's entries for the dashboard.
func (r *InMemoryRepository) TodayStats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &Stats{}
	gates := make(map[string]bool)
	for _, entry := range r.entries {
		if entry.CreatedAt.Before(dayStart) {
			continue
		}
		stats.TotalAccess++
		switch entry.Status {
		case StatusGranted:
			stats.Granted++
		case StatusDenied:
			stats.Denied++
		}
		gates[entry.Gate] = true
	}
	stats.ActiveGates = len(gates)
	return stats, nil
}
