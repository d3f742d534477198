package memory

import (
	"context"
	"sort"
	"sync"

	reconciliation "storeops-cloud/internal/reconciliation/domain"
)

// CountRepository is an in-memory daily count store for tests and local runs.
type CountRepository struct {
	mu     sync.RWMutex
	counts []reconciliation.DailyCount
}

// NewCountRepository constructs an empty store.
func NewCountRepository() *CountRepository {
	return &CountRepository{}
}

// Append stores a copy of the count.
func (r *CountRepository) Append(_ context.Context, count *reconciliation.DailyCount) error {
	if count == nil {
		return reconciliation.ErrNilCount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, *count)
	return nil
}

// ListByBook returns counts for one book, newest first.
func (r *CountRepository) ListByBook(_ context.Context, bookID string) ([]reconciliation.DailyCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []reconciliation.DailyCount
	for _, count := range r.counts {
		if count.BookID == bookID {
			result = append(result, count)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

// ListFlagged returns flagged counts for a location, newest first.
func (r *CountRepository) ListFlagged(_ context.Context, locationID string) ([]reconciliation.DailyCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []reconciliation.DailyCount
	for _, count := range r.counts {
		if count.LocationID == locationID && count.Flagged {
			result = append(result, count)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func sortNewestFirst(counts []reconciliation.DailyCount) {
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].CreatedAt.After(counts[j].CreatedAt)
	})
}
