package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	catalog "storeops-cloud/internal/catalog/domain"
	inventory "storeops-cloud/internal/inventory/domain"
)

// GameReader resolves game definitions from the catalog.
type GameReader interface {
	GetGame(ctx context.Context, id string) (*catalog.Game, error)
}

// EventPublisher emits inventory lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service owns the book lifecycle. Reconciliation and settlement mutate books
// only through this contract, never through the repository directly.
type Service struct {
	repo      inventory.Repository
	games     GameReader
	publisher EventPublisher
	clock     Clock
}

// NewService constructs the inventory service.
func NewService(repo inventory.Repository, games GameReader, publisher EventPublisher, clock Clock) (*Service, error) {
	if repo == nil {
		return nil, errors.New("inventory service: nil repository")
	}
	if games == nil {
		return nil, errors.New("inventory service: nil game reader")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{repo: repo, games: games, publisher: publisher, clock: clock}, nil
}

// ReceiveBookCommand carries the fields for a newly delivered book.
type ReceiveBookCommand struct {
	GameID      string
	BookNumber  string
	TicketStart int
	TicketEnd   int
	LocationID  string
}

// ReceiveBook registers a delivered book as in-stock inventory.
func (s *Service) ReceiveBook(ctx context.Context, cmd ReceiveBookCommand) (*inventory.Book, error) {
	if cmd.LocationID == "" {
		return nil, inventory.ErrLocationRequired
	}
	if cmd.BookNumber == "" {
		return nil, fmt.Errorf("%w: empty book number", inventory.ErrInvalidRange)
	}

	game, err := s.games.GetGame(ctx, cmd.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, catalog.ErrGameNotFound
	}
	if got := cmd.TicketEnd - cmd.TicketStart + 1; game.TicketsPerBook > 0 && got != game.TicketsPerBook {
		return nil, fmt.Errorf("%w: range holds %d tickets, game %s defines %d per book",
			inventory.ErrInvalidRange, got, game.GameNumber, game.TicketsPerBook)
	}

	existing, err := s.repo.FindLiveByLocationAndNumber(ctx, cmd.LocationID, cmd.BookNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: book %s at location %s", inventory.ErrDuplicateBookNumber, cmd.BookNumber, cmd.LocationID)
	}

	now := s.clock.Now()
	book, err := inventory.NewBook(NewBookID(), game.ID, game.Name, cmd.BookNumber, cmd.LocationID, cmd.TicketStart, cmd.TicketEnd, now)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, book); err != nil {
		return nil, err
	}
	s.publish(ctx, inventory.BookReceived{
		BookID:     book.ID,
		GameID:     book.GameID,
		BookNumber: book.BookNumber,
		LocationID: book.LocationID,
		OccurredAt: now.UTC(),
	})
	return book, nil
}

// Activate puts an in-stock book on sale at a register.
func (s *Service) Activate(ctx context.Context, bookID, register string) (*inventory.Book, error) {
	var event inventory.BookActivated
	book, err := s.repo.Update(ctx, bookID, func(b *inventory.Book) error {
		evt, err := b.Activate(register, s.clock.Now())
		if err != nil {
			return err
		}
		event = evt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event)
	return book, nil
}

// AdvanceConsumption moves the book's ticket pointer forward. Invoked only by
// the reconciliation engine with a forward-consistent count.
func (s *Service) AdvanceConsumption(ctx context.Context, bookID string, newCurrent int) (*inventory.Book, error) {
	return s.repo.Update(ctx, bookID, func(b *inventory.Book) error {
		return b.AdvanceConsumption(newCurrent, s.clock.Now())
	})
}

// MarkSoldOut retires an active book as fully consumed and queues it for settlement.
func (s *Service) MarkSoldOut(ctx context.Context, bookID string) (*inventory.Book, error) {
	var event inventory.SoldOutDetected
	book, err := s.repo.Update(ctx, bookID, func(b *inventory.Book) error {
		evt, err := b.MarkSoldOut(s.clock.Now())
		if err != nil {
			return err
		}
		event = evt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event)
	return book, nil
}

// SettleBook transitions a book to settled. Invoked only by the settlement
// calculator after the settlement record is persisted.
func (s *Service) SettleBook(ctx context.Context, bookID string) (*inventory.Book, error) {
	var event inventory.BookSettled
	book, err := s.repo.Update(ctx, bookID, func(b *inventory.Book) error {
		evt, err := b.Settle(s.clock.Now())
		if err != nil {
			return err
		}
		event = evt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event)
	return book, nil
}

// Archive retires a settled book from working inventory.
func (s *Service) Archive(ctx context.Context, bookID string) (*inventory.Book, error) {
	var event inventory.BookArchived
	book, err := s.repo.Update(ctx, bookID, func(b *inventory.Book) error {
		evt, err := b.Archive(s.clock.Now())
		if err != nil {
			return err
		}
		event = evt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event)
	return book, nil
}

// GetBook loads one book.
func (s *Service) GetBook(ctx context.Context, bookID string) (*inventory.Book, error) {
	book, err := s.repo.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, inventory.ErrBookNotFound
	}
	return book, nil
}

// ListBooks returns books at a location, optionally filtered by status.
func (s *Service) ListBooks(ctx context.Context, locationID, status string) ([]*inventory.Book, error) {
	if locationID == "" {
		return nil, inventory.ErrLocationRequired
	}
	return s.repo.ListByLocation(ctx, locationID, status)
}

// CountLiveBooksByGame reports non-archived books referencing a game.
func (s *Service) CountLiveBooksByGame(ctx context.Context, gameID string) (int, error) {
	return s.repo.CountLiveByGame(ctx, gameID)
}

func (s *Service) publish(ctx context.Context, event any) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.Publish(ctx, event)
}

// NewBookID generates a random book identifier.
func NewBookID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "book-" + hex.EncodeToString(buf)
}
