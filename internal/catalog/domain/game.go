package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Game defines one instant-lottery game: ticket price, book size and the
// commission rate owed back to the store on each sold ticket.
type Game struct {
	ID             string          `json:"id"`
	GameNumber     string          `json:"game_number"`
	Name           string          `json:"name"`
	TicketPrice    decimal.Decimal `json:"ticket_price"`
	TicketsPerBook int             `json:"tickets_per_book"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Validate checks game invariants.
func (g Game) Validate() error {
	if g.ID == "" {
		return ErrEmptyID
	}
	if g.GameNumber == "" {
		return ErrEmptyGameNumber
	}
	if g.Name == "" {
		return ErrEmptyName
	}
	if !g.TicketPrice.IsPositive() {
		return ErrInvalidTicketPrice
	}
	if g.TicketsPerBook <= 0 {
		return ErrInvalidTicketsPerBook
	}
	if g.CommissionRate.IsNegative() || g.CommissionRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return ErrInvalidCommissionRate
	}
	switch g.Status {
	case StatusActive, StatusInactive:
	default:
		return ErrInvalidStatus
	}
	return nil
}

// IsActive reports whether the game accepts new books.
func (g Game) IsActive() bool { return g.Status == StatusActive }

// Repository manages game persistence.
type Repository interface {
	Get(ctx context.Context, id string) (*Game, error)
	FindByGameNumber(ctx context.Context, gameNumber string) (*Game, error)
	ListActive(ctx context.Context) ([]Game, error)
	Create(ctx context.Context, game *Game) error
	SetStatus(ctx context.Context, id, status string) error
}
