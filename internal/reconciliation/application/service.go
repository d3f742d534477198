package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
	inventory "storeops-cloud/internal/inventory/domain"
	reconciliation "storeops-cloud/internal/reconciliation/domain"
)

// BookInventory is the lifecycle contract the engine mutates books through.
type BookInventory interface {
	GetBook(ctx context.Context, bookID string) (*inventory.Book, error)
	AdvanceConsumption(ctx context.Context, bookID string, newCurrent int) (*inventory.Book, error)
	MarkSoldOut(ctx context.Context, bookID string) (*inventory.Book, error)
}

// GameReader resolves game definitions for variance pricing.
type GameReader interface {
	GetGame(ctx context.Context, id string) (*catalog.Game, error)
}

// EventPublisher emits reconciliation events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// AlertNotifier surfaces flagged counts for manager review.
type AlertNotifier interface {
	Notify(ctx context.Context, alert CountAlert)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CountFlagged is emitted when a count is recorded but cannot move the
// pointer, or carries a positive variance. It is a warning for manager
// review, never an error to the submitting operator: a miscount is an
// expected human event.
type CountFlagged struct {
	CountID        string          `json:"count_id"`
	BookID         string          `json:"book_id"`
	BookNumber     string          `json:"book_number"`
	LocationID     string          `json:"location_id"`
	Variance       int             `json:"variance"`
	VarianceAmount decimal.Decimal `json:"variance_amount"`
	ReasonCode     string          `json:"reason_code,omitempty"`
	Regressive     bool            `json:"regressive"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// CountAlert is the notification payload for a flagged count.
type CountAlert struct {
	Count      reconciliation.DailyCount
	BookNumber string
	GameName   string
	Regressive bool
}

// CountResult reports what one count submission did, including any derived
// lifecycle events, so callers assert on events rather than field diffs.
type CountResult struct {
	Count           reconciliation.DailyCount
	PointerAdvanced bool
	SoldOut         bool
	Flagged         bool
	Book            *inventory.Book
}

// Service is the reconciliation engine: it turns daily physical counts into
// variance records and forward-only pointer movement.
type Service struct {
	counts    reconciliation.Repository
	books     BookInventory
	games     GameReader
	publisher EventPublisher
	notifier  AlertNotifier
	clock     Clock
}

// ServiceOption customizes the engine.
type ServiceOption func(*Service)

// WithNotifier assigns an alert notifier.
func WithNotifier(notifier AlertNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the reconciliation engine.
func NewService(counts reconciliation.Repository, books BookInventory, games GameReader, publisher EventPublisher, opts ...ServiceOption) (*Service, error) {
	if counts == nil {
		return nil, errors.New("reconciliation service: nil count repository")
	}
	if books == nil {
		return nil, errors.New("reconciliation service: nil book inventory")
	}
	if games == nil {
		return nil, errors.New("reconciliation service: nil game reader")
	}
	service := &Service{
		counts:    counts,
		books:     books,
		games:     games,
		publisher: publisher,
		clock:     SystemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RecordCountCommand carries one operator-submitted physical count.
type RecordCountCommand struct {
	BookID            string
	Date              time.Time
	PhysicalRemaining int
	ReasonCode        string
	Notes             string
	LoggedBy          string
}

// RecordDailyCount reconciles one physical count against the book's pointer.
//
// Negative variance is the normal "sales happened" case and advances the
// pointer. Positive variance (more tickets present than expected) signals a
// bookkeeping error and must carry a reason code. A count implying a pointer
// regression is persisted flagged for audit but never mutates inventory.
func (s *Service) RecordDailyCount(ctx context.Context, cmd RecordCountCommand) (*CountResult, error) {
	if cmd.Date.IsZero() {
		return nil, reconciliation.ErrInvalidDate
	}
	if cmd.PhysicalRemaining < 0 {
		return nil, reconciliation.ErrNegativeRemaining
	}

	book, err := s.books.GetBook(ctx, cmd.BookID)
	if err != nil {
		return nil, err
	}
	if book.Status != inventory.StatusActive {
		return nil, fmt.Errorf("%w: cannot count book in status %q", inventory.ErrInvalidState, book.Status)
	}
	if cmd.PhysicalRemaining > book.TotalTickets() {
		return nil, fmt.Errorf("%w: counted %d, book holds %d", reconciliation.ErrImpossibleCount, cmd.PhysicalRemaining, book.TotalTickets())
	}

	game, err := s.games.GetGame(ctx, book.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, catalog.ErrGameNotFound
	}

	expected := book.ExpectedRemaining()
	variance := cmd.PhysicalRemaining - expected
	if variance > 0 && cmd.ReasonCode == "" {
		return nil, fmt.Errorf("%w: %d more tickets present than the pointer predicts", reconciliation.ErrReasonRequired, variance)
	}

	impliedCurrent := book.TicketEnd - cmd.PhysicalRemaining + 1
	regressive := impliedCurrent < book.CurrentTicket
	flagged := regressive || variance > 0

	now := s.clock.Now().UTC()
	count := &reconciliation.DailyCount{
		ID:                NewCountID(),
		Date:              cmd.Date,
		BookID:            book.ID,
		ExpectedRemaining: expected,
		PhysicalRemaining: cmd.PhysicalRemaining,
		Variance:          variance,
		VarianceAmount:    game.TicketPrice.Mul(decimal.NewFromInt(int64(variance))),
		ReasonCode:        cmd.ReasonCode,
		LocationID:        book.LocationID,
		Notes:             cmd.Notes,
		LoggedBy:          cmd.LoggedBy,
		Flagged:           flagged,
		CreatedAt:         now,
	}
	if err := s.counts.Append(ctx, count); err != nil {
		return nil, err
	}

	result := &CountResult{Count: *count, Flagged: flagged, Book: book}

	if impliedCurrent > book.CurrentTicket {
		updated, err := s.books.AdvanceConsumption(ctx, book.ID, impliedCurrent)
		if err != nil {
			return nil, err
		}
		result.Book = updated
		result.PointerAdvanced = true
	}

	if cmd.PhysicalRemaining == 0 {
		updated, err := s.books.MarkSoldOut(ctx, book.ID)
		if err != nil {
			return nil, err
		}
		result.Book = updated
		result.SoldOut = true
	}

	if flagged {
		event := CountFlagged{
			CountID:        count.ID,
			BookID:         book.ID,
			BookNumber:     book.BookNumber,
			LocationID:     book.LocationID,
			Variance:       variance,
			VarianceAmount: count.VarianceAmount,
			ReasonCode:     cmd.ReasonCode,
			Regressive:     regressive,
			OccurredAt:     now,
		}
		if s.publisher != nil {
			_ = s.publisher.Publish(ctx, event)
		}
		if s.notifier != nil {
			s.notifier.Notify(ctx, CountAlert{
				Count:      *count,
				BookNumber: book.BookNumber,
				GameName:   book.GameName,
				Regressive: regressive,
			})
		}
	}
	return result, nil
}

// BookLocation resolves the location a book belongs to, so callers can
// scope a submission before it mutates anything.
func (s *Service) BookLocation(ctx context.Context, bookID string) (string, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return "", err
	}
	return book.LocationID, nil
}

// ListByBook returns the count trail for one book.
func (s *Service) ListByBook(ctx context.Context, bookID string) ([]reconciliation.DailyCount, error) {
	return s.counts.ListByBook(ctx, bookID)
}

// ListFlagged returns unresolved flagged counts for manager review.
func (s *Service) ListFlagged(ctx context.Context, locationID string) ([]reconciliation.DailyCount, error) {
	if locationID == "" {
		return nil, inventory.ErrLocationRequired
	}
	return s.counts.ListFlagged(ctx, locationID)
}

// NewCountID generates a random count identifier.
func NewCountID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "count-" + hex.EncodeToString(buf)
}
