package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
)

// BookCounter reports how many non-archived books reference a game.
type BookCounter interface {
	CountLiveBooksByGame(ctx context.Context, gameID string) (int, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service handles game catalog use cases.
type Service struct {
	repo  catalog.Repository
	books BookCounter
	clock Clock
}

// NewService constructs the catalog service.
func NewService(repo catalog.Repository, books BookCounter, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("catalog service: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{repo: repo, books: books, clock: clock}, nil
}

// AddGameCommand carries the fields for a new game definition.
type AddGameCommand struct {
	GameNumber     string
	Name           string
	TicketPrice    decimal.Decimal
	TicketsPerBook int
	CommissionRate decimal.Decimal
}

// AddGame registers a new game definition.
func (s *Service) AddGame(ctx context.Context, cmd AddGameCommand) (*catalog.Game, error) {
	existing, err := s.repo.FindByGameNumber(ctx, cmd.GameNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, catalog.ErrDuplicateGameNumber
	}

	now := s.clock.Now().UTC()
	game := &catalog.Game{
		ID:             NewGameID(),
		GameNumber:     cmd.GameNumber,
		Name:           cmd.Name,
		TicketPrice:    cmd.TicketPrice,
		TicketsPerBook: cmd.TicketsPerBook,
		CommissionRate: cmd.CommissionRate,
		Status:         catalog.StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := game.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// GetGame loads one game.
func (s *Service) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	game, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, catalog.ErrGameNotFound
	}
	return game, nil
}

// ListActiveGames returns games accepting new books.
func (s *Service) ListActiveGames(ctx context.Context) ([]catalog.Game, error) {
	return s.repo.ListActive(ctx)
}

// SupersedeGame retires a game definition and registers a replacement with a
// new price or rate. Pricing is never edited in place: settled books must keep
// reproducing the rate that was in effect when they settled.
func (s *Service) SupersedeGame(ctx context.Context, gameID string, cmd AddGameCommand) (*catalog.Game, error) {
	old, err := s.repo.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, catalog.ErrGameNotFound
	}
	if s.books != nil {
		live, err := s.books.CountLiveBooksByGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if live > 0 && cmd.GameNumber == old.GameNumber {
			return nil, catalog.ErrGameReferenced
		}
	}

	replacement, err := s.AddGame(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, old.ID, catalog.StatusInactive); err != nil {
		return nil, err
	}
	return replacement, nil
}

// NewGameID generates a random game identifier.
func NewGameID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "game-" + hex.EncodeToString(buf)
}
