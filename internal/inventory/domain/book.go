package inventory

import (
	"context"
	"fmt"
	"time"
)

const (
	StatusInStock           = "in_stock"
	StatusActive            = "active"
	StatusSoldOut           = "sold_out"
	StatusPendingSettlement = "pending_settlement"
	StatusSettled           = "settled"
	StatusArchived          = "archived"
)

// Book represents one physical pack of sequentially numbered scratch tickets.
// The store is accountable to the lottery commission for every ticket in the
// closed interval [TicketStart, TicketEnd]. CurrentTicket is the next ticket
// expected to be sold; TicketEnd+1 means fully sold. All mutation goes through
// the transition methods, which enforce the forward-only lifecycle.
type Book struct {
	ID               string    `json:"id"`
	GameID           string    `json:"game_id"`
	GameName         string    `json:"game_name"`
	BookNumber       string    `json:"book_number"`
	TicketStart      int       `json:"ticket_start"`
	TicketEnd        int       `json:"ticket_end"`
	CurrentTicket    int       `json:"current_ticket"`
	Status           string    `json:"status"`
	LocationID       string    `json:"location_id"`
	AssignedRegister string    `json:"assigned_register,omitempty"`
	ReceivedDate     time.Time `json:"received_date"`
	ActivationDate   time.Time `json:"activation_date,omitempty"`
	SettledDate      time.Time `json:"settled_date,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewBook creates a book in its initial state.
func NewBook(id, gameID, gameName, bookNumber, locationID string, ticketStart, ticketEnd int, now time.Time) (*Book, error) {
	if locationID == "" {
		return nil, ErrLocationRequired
	}
	if ticketStart < 0 || ticketStart > ticketEnd {
		return nil, fmt.Errorf("%w: start %d end %d", ErrInvalidRange, ticketStart, ticketEnd)
	}
	return &Book{
		ID:            id,
		GameID:        gameID,
		GameName:      gameName,
		BookNumber:    bookNumber,
		TicketStart:   ticketStart,
		TicketEnd:     ticketEnd,
		CurrentTicket: ticketStart,
		Status:        StatusInStock,
		LocationID:    locationID,
		ReceivedDate:  now.UTC(),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}, nil
}

// TotalTickets returns the ticket count of the closed range.
func (b *Book) TotalTickets() int { return b.TicketEnd - b.TicketStart + 1 }

// TicketsSold returns how many tickets the pointer implies were sold.
func (b *Book) TicketsSold() int { return b.CurrentTicket - b.TicketStart }

// ExpectedRemaining returns tickets still owed to be sold per the pointer.
func (b *Book) ExpectedRemaining() int { return b.TicketEnd - b.CurrentTicket + 1 }

// IsLive reports whether the book still counts against its game definition.
func (b *Book) IsLive() bool { return b.Status != StatusArchived }

// Activate puts an in-stock book on sale at a register.
func (b *Book) Activate(register string, now time.Time) (BookActivated, error) {
	if b.Status != StatusInStock {
		return BookActivated{}, fmt.Errorf("%w: cannot activate book in status %q", ErrInvalidState, b.Status)
	}
	b.Status = StatusActive
	b.AssignedRegister = register
	b.ActivationDate = now.UTC()
	b.UpdatedAt = now.UTC()
	return BookActivated{
		BookID:     b.ID,
		Register:   register,
		LocationID: b.LocationID,
		OccurredAt: now.UTC(),
	}, nil
}

// AdvanceConsumption moves the pointer forward. Tickets sell strictly forward:
// a pointer regression would mask a prior miscount or a lost ticket, so it is
// rejected rather than silently applied.
func (b *Book) AdvanceConsumption(newCurrent int, now time.Time) error {
	if b.Status != StatusActive {
		return fmt.Errorf("%w: cannot advance pointer of book in status %q", ErrInvalidState, b.Status)
	}
	if newCurrent < b.CurrentTicket {
		return fmt.Errorf("%w: from %d to %d", ErrRegression, b.CurrentTicket, newCurrent)
	}
	if newCurrent > b.TicketEnd+1 {
		return fmt.Errorf("%w: pointer %d exceeds %d", ErrRangeExceeded, newCurrent, b.TicketEnd+1)
	}
	b.CurrentTicket = newCurrent
	b.UpdatedAt = now.UTC()
	return nil
}

// MarkSoldOut retires an active book as fully consumed. The pointer is forced
// to TicketEnd+1 regardless of any uncommitted count gap: once a book is
// physically empty, the store settles it as fully sold.
func (b *Book) MarkSoldOut(now time.Time) (SoldOutDetected, error) {
	if b.Status != StatusActive {
		return SoldOutDetected{}, fmt.Errorf("%w: cannot mark book in status %q sold out", ErrInvalidState, b.Status)
	}
	b.Status = StatusPendingSettlement
	b.CurrentTicket = b.TicketEnd + 1
	b.UpdatedAt = now.UTC()
	return SoldOutDetected{
		BookID:     b.ID,
		BookNumber: b.BookNumber,
		LocationID: b.LocationID,
		OccurredAt: now.UTC(),
	}, nil
}

// Settle moves the book to its terminal financial state.
func (b *Book) Settle(now time.Time) (BookSettled, error) {
	if b.Status != StatusPendingSettlement && b.Status != StatusSoldOut {
		return BookSettled{}, fmt.Errorf("%w: cannot settle book in status %q", ErrInvalidState, b.Status)
	}
	b.Status = StatusSettled
	b.SettledDate = now.UTC()
	b.UpdatedAt = now.UTC()
	return BookSettled{
		BookID:     b.ID,
		LocationID: b.LocationID,
		OccurredAt: now.UTC(),
	}, nil
}

// Archive retires a settled book from working inventory. Books are never
// deleted; the audit history stays queryable.
func (b *Book) Archive(now time.Time) (BookArchived, error) {
	if b.Status != StatusSettled {
		return BookArchived{}, fmt.Errorf("%w: cannot archive book in status %q", ErrInvalidState, b.Status)
	}
	b.Status = StatusArchived
	b.UpdatedAt = now.UTC()
	return BookArchived{
		BookID:     b.ID,
		LocationID: b.LocationID,
		OccurredAt: now.UTC(),
	}, nil
}

// Repository persists books. Update applies mutate under per-book mutual
// exclusion so pointer advancement and settlement never interleave.
type Repository interface {
	Get(ctx context.Context, id string) (*Book, error)
	FindLiveByLocationAndNumber(ctx context.Context, locationID, bookNumber string) (*Book, error)
	Create(ctx context.Context, book *Book) error
	Update(ctx context.Context, id string, mutate func(*Book) error) (*Book, error)
	ListByLocation(ctx context.Context, locationID, status string) ([]*Book, error)
	CountLiveByGame(ctx context.Context, gameID string) (int, error)
}
