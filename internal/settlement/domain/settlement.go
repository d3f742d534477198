package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Settlement statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Settlement is the immutable financial record produced when a sold-out
// book is closed. Amounts carry two decimal places and always satisfy
// Commission + NetDue == GrossSales.
type Settlement struct {
	ID             string          `json:"id"`
	BookID         string          `json:"book_id"`
	BookNumber     string          `json:"book_number"`
	GameID         string          `json:"game_id"`
	GameName       string          `json:"game_name"`
	LocationID     string          `json:"location_id"`
	TotalTickets   int             `json:"total_tickets"`
	TicketsSold    int             `json:"tickets_sold"`
	TicketPrice    decimal.Decimal `json:"ticket_price"`
	GrossSales     decimal.Decimal `json:"gross_sales"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Commission     decimal.Decimal `json:"commission"`
	NetDue         decimal.Decimal `json:"net_due"`
	SettlementDate time.Time       `json:"settlement_date"`
	Status         string          `json:"status"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedAt     time.Time       `json:"approved_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ComputeAmounts derives gross, commission and net from ticket count,
// price and rate. Commission is rounded half-up to cents and net is the
// remainder, so the three always reconcile to the cent.
func ComputeAmounts(ticketsSold int, price, rate decimal.Decimal) (gross, commission, net decimal.Decimal) {
	gross = price.Mul(decimal.NewFromInt(int64(ticketsSold))).Round(2)
	commission = gross.Mul(rate).Round(2)
	net = gross.Sub(commission)
	return gross, commission, net
}

// Validate checks internal consistency.
func (s *Settlement) Validate() error {
	if s == nil {
		return ErrNilSettlement
	}
	if s.BookID == "" {
		return errors.New("settlement: book id required")
	}
	if s.LocationID == "" {
		return errors.New("settlement: location id required")
	}
	if s.TicketsSold < 0 || s.TicketsSold > s.TotalTickets {
		return fmt.Errorf("settlement: tickets sold %d out of range 0..%d", s.TicketsSold, s.TotalTickets)
	}
	if !s.Commission.Add(s.NetDue).Equal(s.GrossSales) {
		return fmt.Errorf("settlement: amounts do not reconcile: %s + %s != %s",
			s.Commission.StringFixed(2), s.NetDue.StringFixed(2), s.GrossSales.StringFixed(2))
	}
	return nil
}

// Approve marks a pending settlement approved.
func (s *Settlement) Approve(approver string, at time.Time) error {
	if s == nil {
		return ErrNilSettlement
	}
	if s.Status == StatusApproved {
		return ErrAlreadyApproved
	}
	s.Status = StatusApproved
	s.ApprovedBy = approver
	s.ApprovedAt = at.UTC()
	return nil
}

// Repository persists settlements.
type Repository interface {
	Get(ctx context.Context, id string) (*Settlement, error)
	FindByBook(ctx context.Context, bookID string) (*Settlement, error)
	ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]Settlement, error)
	Create(ctx context.Context, settlement *Settlement) error
	Update(ctx context.Context, settlement *Settlement) error
}
