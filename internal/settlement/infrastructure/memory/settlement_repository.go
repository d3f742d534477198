package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	settlement "storeops-cloud/internal/settlement/domain"
)

// SettlementRepository is an in-memory settlement store for tests and
// local runs. One settlement per book is enforced like the database
// unique index would.
type SettlementRepository struct {
	mu     sync.RWMutex
	byID   map[string]settlement.Settlement
	byBook map[string]string
}

// NewSettlementRepository constructs an empty store.
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{
		byID:   make(map[string]settlement.Settlement),
		byBook: make(map[string]string),
	}
}

// Get loads one settlement by id.
func (r *SettlementRepository) Get(_ context.Context, id string) (*settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byID[id]
	if !ok {
		return nil, settlement.ErrSettlementNotFound
	}
	copied := record
	return &copied, nil
}

// FindByBook loads the settlement for a book.
func (r *SettlementRepository) FindByBook(_ context.Context, bookID string) (*settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBook[bookID]
	if !ok {
		return nil, settlement.ErrSettlementNotFound
	}
	record := r.byID[id]
	copied := record
	return &copied, nil
}

// ListByLocation returns settlements for a location within [from, to), newest first.
func (r *SettlementRepository) ListByLocation(_ context.Context, locationID string, from, to time.Time) ([]settlement.Settlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []settlement.Settlement
	for _, record := range r.byID {
		if record.LocationID != locationID {
			continue
		}
		if record.SettlementDate.Before(from) || !record.SettlementDate.Before(to) {
			continue
		}
		result = append(result, record)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SettlementDate.After(result[j].SettlementDate)
	})
	return result, nil
}

// Create stores a settlement, rejecting a second record for the same book.
func (r *SettlementRepository) Create(_ context.Context, record *settlement.Settlement) error {
	if record == nil {
		return settlement.ErrNilSettlement
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byBook[record.BookID]; exists {
		return fmt.Errorf("%w: book %s", settlement.ErrDuplicateSettlement, record.BookID)
	}
	r.byID[record.ID] = *record
	r.byBook[record.BookID] = record.ID
	return nil
}

// Update persists approval state changes.
func (r *SettlementRepository) Update(_ context.Context, record *settlement.Settlement) error {
	if record == nil {
		return settlement.ErrNilSettlement
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[record.ID]; !ok {
		return settlement.ErrSettlementNotFound
	}
	r.byID[record.ID] = *record
	return nil
}
