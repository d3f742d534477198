package reconciliation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailyCount is one physical-count observation for one book on one date.
// Records are append-only: corrections are new records, never edits, so the
// reconciliation trail is never lost.
type DailyCount struct {
	ID                string          `json:"id"`
	Date              time.Time       `json:"date"`
	BookID            string          `json:"book_id"`
	ExpectedRemaining int             `json:"expected_remaining"`
	PhysicalRemaining int             `json:"physical_remaining"`
	Variance          int             `json:"variance"`
	VarianceAmount    decimal.Decimal `json:"variance_amount"`
	ReasonCode        string          `json:"reason_code,omitempty"`
	LocationID        string          `json:"location_id"`
	Notes             string          `json:"notes,omitempty"`
	LoggedBy          string          `json:"logged_by,omitempty"`
	ApprovedBy        string          `json:"approved_by,omitempty"`
	Flagged           bool            `json:"flagged"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Repository persists daily counts. Append-only by contract.
type Repository interface {
	Append(ctx context.Context, count *DailyCount) error
	ListByBook(ctx context.Context, bookID string) ([]DailyCount, error)
	ListFlagged(ctx context.Context, locationID string) ([]DailyCount, error)
}
