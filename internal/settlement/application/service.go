package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	catalog "storeops-cloud/internal/catalog/domain"
	inventory "storeops-cloud/internal/inventory/domain"
	settlement "storeops-cloud/internal/settlement/domain"
)

// BookInventory exposes the book operations settlement depends on.
type BookInventory interface {
	GetBook(ctx context.Context, bookID string) (*inventory.Book, error)
	SettleBook(ctx context.Context, bookID string) (*inventory.Book, error)
}

// GameReader loads game definitions.
type GameReader interface {
	Get(ctx context.Context, gameID string) (*catalog.Game, error)
}

// EventPublisher publishes settlement events.
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

// SettlementCreated is emitted once per book when its settlement record
// is written.
type SettlementCreated struct {
	SettlementID string          `json:"settlement_id"`
	BookID       string          `json:"book_id"`
	BookNumber   string          `json:"book_number"`
	GameID       string          `json:"game_id"`
	LocationID   string          `json:"location_id"`
	TicketsSold  int             `json:"tickets_sold"`
	GrossSales   decimal.Decimal `json:"gross_sales"`
	Commission   decimal.Decimal `json:"commission"`
	NetDue       decimal.Decimal `json:"net_due"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// SettlementApproved is emitted when a manager signs off a settlement.
type SettlementApproved struct {
	SettlementID string    `json:"settlement_id"`
	BookID       string    `json:"book_id"`
	LocationID   string    `json:"location_id"`
	ApprovedBy   string    `json:"approved_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Service closes out sold-out books into settlement records.
type Service struct {
	repo      settlement.Repository
	books     BookInventory
	games     GameReader
	publisher EventPublisher
	clock     Clock
}

// NewService constructs the settlement service.
func NewService(repo settlement.Repository, books BookInventory, games GameReader, publisher EventPublisher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("settlement service: nil repository")
	}
	if books == nil {
		return nil, errors.New("settlement service: nil book inventory")
	}
	if games == nil {
		return nil, errors.New("settlement service: nil game reader")
	}
	return &Service{
		repo:      repo,
		books:     books,
		games:     games,
		publisher: publisher,
		clock:     SystemClock{},
	}, nil
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(clock Clock) *Service {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// SettleBookCommand asks for a book to be settled.
type SettleBookCommand struct {
	BookID         string
	SettlementDate time.Time
}

// SettleBook produces the settlement record for a sold-out book and moves
// the book to settled. The book keeps exactly one settlement for its whole
// life: a second attempt returns ErrDuplicateSettlement.
func (s *Service) SettleBook(ctx context.Context, cmd SettleBookCommand) (*settlement.Settlement, error) {
	book, err := s.books.GetBook(ctx, cmd.BookID)
	if err != nil {
		return nil, err
	}
	if existing, err := s.repo.FindByBook(ctx, book.ID); err != nil {
		if !errors.Is(err, settlement.ErrSettlementNotFound) {
			return nil, err
		}
	} else if existing != nil {
		return nil, fmt.Errorf("%w: book %s settled as %s", settlement.ErrDuplicateSettlement, book.ID, existing.ID)
	}
	if book.Status != inventory.StatusPendingSettlement && book.Status != inventory.StatusSoldOut {
		return nil, fmt.Errorf("%w: book %s is %s", settlement.ErrNotSettleable, book.ID, book.Status)
	}

	game, err := s.games.Get(ctx, book.GameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrGameNotFound, book.GameID)
	}

	ticketsSold := book.TicketsSold()
	total := book.TotalTickets()
	if ticketsSold < 0 {
		ticketsSold = 0
	}
	if ticketsSold > total {
		ticketsSold = total
	}
	gross, commission, net := settlement.ComputeAmounts(ticketsSold, game.TicketPrice, game.CommissionRate)

	now := s.clock.Now().UTC()
	date := cmd.SettlementDate
	if date.IsZero() {
		date = now
	}

	record := &settlement.Settlement{
		ID:             NewSettlementID(),
		BookID:         book.ID,
		BookNumber:     book.BookNumber,
		GameID:         book.GameID,
		GameName:       book.GameName,
		LocationID:     book.LocationID,
		TotalTickets:   total,
		TicketsSold:    ticketsSold,
		TicketPrice:    game.TicketPrice,
		GrossSales:     gross,
		CommissionRate: game.CommissionRate,
		Commission:     commission,
		NetDue:         net,
		SettlementDate: date.UTC(),
		Status:         settlement.StatusPending,
		CreatedAt:      now,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	if _, err := s.books.SettleBook(ctx, book.ID); err != nil {
		return nil, fmt.Errorf("settlement %s written but book transition failed: %w", record.ID, err)
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, SettlementCreated{
			SettlementID: record.ID,
			BookID:       record.BookID,
			BookNumber:   record.BookNumber,
			GameID:       record.GameID,
			LocationID:   record.LocationID,
			TicketsSold:  record.TicketsSold,
			GrossSales:   record.GrossSales,
			Commission:   record.Commission,
			NetDue:       record.NetDue,
			OccurredAt:   now,
		})
	}
	return record, nil
}

// Approve marks a settlement approved by a manager.
func (s *Service) Approve(ctx context.Context, settlementID, approver string) (*settlement.Settlement, error) {
	record, err := s.repo.Get(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, settlement.ErrSettlementNotFound
	}
	now := s.clock.Now().UTC()
	if err := record.Approve(approver, now); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, SettlementApproved{
			SettlementID: record.ID,
			BookID:       record.BookID,
			LocationID:   record.LocationID,
			ApprovedBy:   approver,
			OccurredAt:   now,
		})
	}
	return record, nil
}

// Get loads one settlement.
func (s *Service) Get(ctx context.Context, settlementID string) (*settlement.Settlement, error) {
	record, err := s.repo.Get(ctx, settlementID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, settlement.ErrSettlementNotFound
	}
	return record, nil
}

// FindByBook loads the settlement for one book.
func (s *Service) FindByBook(ctx context.Context, bookID string) (*settlement.Settlement, error) {
	record, err := s.repo.FindByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, settlement.ErrSettlementNotFound
	}
	return record, nil
}

// ListByLocation returns settlements for a location within [from, to).
func (s *Service) ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]settlement.Settlement, error) {
	if locationID == "" {
		return nil, errors.New("settlement service: location id required")
	}
	return s.repo.ListByLocation(ctx, locationID, from, to)
}

// Totals sums a settlement list for report footers.
type Totals struct {
	TicketsSold int
	GrossSales  decimal.Decimal
	Commission  decimal.Decimal
	NetDue      decimal.Decimal
}

// SumTotals folds settlements into totals.
func SumTotals(records []settlement.Settlement) Totals {
	totals := Totals{
		GrossSales: decimal.Zero,
		Commission: decimal.Zero,
		NetDue:     decimal.Zero,
	}
	for _, record := range records {
		totals.TicketsSold += record.TicketsSold
		totals.GrossSales = totals.GrossSales.Add(record.GrossSales)
		totals.Commission = totals.Commission.Add(record.Commission)
		totals.NetDue = totals.NetDue.Add(record.NetDue)
	}
	return totals
}
