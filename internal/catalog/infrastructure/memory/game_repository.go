package memory

import (
	"context"
	"sort"
	"sync"

	catalog "storeops-cloud/internal/catalog/domain"
)

// GameRepository is an in-memory repository for lottery games.
type GameRepository struct {
	mu    sync.RWMutex
	games map[string]catalog.Game
}

// NewGameRepository constructs a repository.
func NewGameRepository() *GameRepository {
	return &GameRepository{games: make(map[string]catalog.Game)}
}

// Get loads a game by id.
func (r *GameRepository) Get(ctx context.Context, id string) (*catalog.Game, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	game, ok := r.games[id]
	if !ok {
		return nil, nil
	}
	copy := game
	return &copy, nil
}

// GetGame loads a game by id under the reader name the inventory and
// reconciliation services depend on.
func (r *GameRepository) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	return r.Get(ctx, id)
}

// FindByGameNumber loads a game by its commission game number.
func (r *GameRepository) FindByGameNumber(ctx context.Context, gameNumber string) (*catalog.Game, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, game := range r.games {
		if game.GameNumber == gameNumber {
			copy := game
			return &copy, nil
		}
	}
	return nil, nil
}

// ListActive returns games accepting new books.
func (r *GameRepository) ListActive(ctx context.Context) ([]catalog.Game, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []catalog.Game
	for _, game := range r.games {
		if game.Status == catalog.StatusActive {
			result = append(result, game)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GameNumber < result[j].GameNumber })
	return result, nil
}

// Create inserts a new game.
func (r *GameRepository) Create(ctx context.Context, game *catalog.Game) error {
	_ = ctx
	if game == nil {
		return catalog.ErrEmptyID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.games {
		if existing.GameNumber == game.GameNumber {
			return catalog.ErrDuplicateGameNumber
		}
	}
	r.games[game.ID] = *game
	return nil
}

// SetStatus updates the game status.
func (r *GameRepository) SetStatus(ctx context.Context, id, status string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[id]
	if !ok {
		return catalog.ErrGameNotFound
	}
	game.Status = status
	r.games[id] = game
	return nil
}
