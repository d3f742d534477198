package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrReportNotFound indicates the daily report does not exist.
	ErrReportNotFound = errors.New("onlinesales: report not found")
	// ErrDuplicateReport indicates a report for the date already exists.
	ErrDuplicateReport = errors.New("onlinesales: report for date already exists")
	// ErrNilReport indicates a nil report was supplied.
	ErrNilReport = errors.New("onlinesales: nil report")
	// ErrInvalidReport indicates the report fails validation.
	ErrInvalidReport = errors.New("onlinesales: invalid report")
)

// ReportEntry is one game line on a daily terminal report.
type ReportEntry struct {
	GameName string          `json:"game_name"`
	Amount   decimal.Decimal `json:"amount"`
	Returns  decimal.Decimal `json:"returns"`
	Credits  decimal.Decimal `json:"credits"`
}

// Net is the entry's contribution after returns and credits.
func (e ReportEntry) Net() decimal.Decimal {
	return e.Amount.Sub(e.Returns).Sub(e.Credits)
}

// DailyReport is one day's aggregate of terminal-dispensed lottery sales
// at a location. It is a ledger entry with no relation to book state.
type DailyReport struct {
	ID         string          `json:"id"`
	Date       time.Time       `json:"date"`
	LocationID string          `json:"location_id"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Payouts    decimal.Decimal `json:"payouts"`
	Commission decimal.Decimal `json:"commission"`
	NetDue     decimal.Decimal `json:"net_due"`
	Entries    []ReportEntry   `json:"entries,omitempty"`
	Notes      string          `json:"notes,omitempty"`
	LoggedBy   string          `json:"logged_by,omitempty"`
	Verified   bool            `json:"verified"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Validate checks the report before it enters the ledger.
func (r *DailyReport) Validate() error {
	if r == nil {
		return ErrNilReport
	}
	if r.LocationID == "" {
		return errors.New("onlinesales: location id required")
	}
	if r.Date.IsZero() {
		return errors.New("onlinesales: date required")
	}
	if r.TotalSales.IsNegative() || r.Payouts.IsNegative() {
		return ErrInvalidReport
	}
	for _, entry := range r.Entries {
		if entry.GameName == "" {
			return errors.New("onlinesales: entry game name required")
		}
		if entry.Amount.IsNegative() || entry.Returns.IsNegative() || entry.Credits.IsNegative() {
			return ErrInvalidReport
		}
	}
	return nil
}

// Repository persists daily reports.
type Repository interface {
	Get(ctx context.Context, id string) (*DailyReport, error)
	FindByLocationAndDate(ctx context.Context, locationID string, date time.Time) (*DailyReport, error)
	ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]DailyReport, error)
	Create(ctx context.Context, report *DailyReport) error
	Update(ctx context.Context, report *DailyReport) error
}
