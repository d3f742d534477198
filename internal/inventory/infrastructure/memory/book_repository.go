package memory

import (
	"context"
	"sort"
	"sync"

	inventory "storeops-cloud/internal/inventory/domain"
)

// BookRepository is an in-memory repository for ticket books. A per-book mutex
// serializes Update calls the way the Postgres row lock does.
type BookRepository struct {
	mu    sync.RWMutex
	books map[string]inventory.Book
	locks map[string]*sync.Mutex
}

// NewBookRepository constructs a repository.
func NewBookRepository() *BookRepository {
	return &BookRepository{
		books: make(map[string]inventory.Book),
		locks: make(map[string]*sync.Mutex),
	}
}

// Get loads a book by id.
func (r *BookRepository) Get(ctx context.Context, id string) (*inventory.Book, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[id]
	if !ok {
		return nil, nil
	}
	copy := book
	return &copy, nil
}

// FindLiveByLocationAndNumber loads a non-archived book with the number at the location.
func (r *BookRepository) FindLiveByLocationAndNumber(ctx context.Context, locationID, bookNumber string) (*inventory.Book, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, book := range r.books {
		if book.LocationID == locationID && book.BookNumber == bookNumber && book.Status != inventory.StatusArchived {
			copy := book
			return &copy, nil
		}
	}
	return nil, nil
}

// Create inserts a new book.
func (r *BookRepository) Create(ctx context.Context, book *inventory.Book) error {
	_ = ctx
	if book == nil {
		return inventory.ErrNilBook
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[book.ID] = *book
	r.locks[book.ID] = &sync.Mutex{}
	return nil
}

// Update applies mutate under the per-book mutex.
func (r *BookRepository) Update(ctx context.Context, id string, mutate func(*inventory.Book) error) (*inventory.Book, error) {
	_ = ctx
	r.mu.RLock()
	lock := r.locks[id]
	r.mu.RUnlock()
	if lock == nil {
		return nil, inventory.ErrBookNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	book, ok := r.books[id]
	r.mu.RUnlock()
	if !ok {
		return nil, inventory.ErrBookNotFound
	}

	working := book
	if err := mutate(&working); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.books[id] = working
	r.mu.Unlock()

	result := working
	return &result, nil
}

// ListByLocation returns books at a location, optionally filtered by status.
func (r *BookRepository) ListByLocation(ctx context.Context, locationID, status string) ([]*inventory.Book, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*inventory.Book
	for _, book := range r.books {
		if book.LocationID != locationID {
			continue
		}
		if status != "" && book.Status != status {
			continue
		}
		copy := book
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookNumber < result[j].BookNumber })
	return result, nil
}

// CountLiveByGame reports non-archived books referencing a game.
func (r *BookRepository) CountLiveByGame(ctx context.Context, gameID string) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, book := range r.books {
		if book.GameID == gameID && book.Status != inventory.StatusArchived {
			count++
		}
	}
	return count, nil
}
