package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	onlinesales "storeops-cloud/internal/onlinesales/domain"
)

// EventPublisher publishes ledger events.
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

// ReportSubmitted is emitted when a daily report enters the ledger.
type ReportSubmitted struct {
	ReportID   string          `json:"report_id"`
	LocationID string          `json:"location_id"`
	Date       time.Time       `json:"date"`
	TotalSales decimal.Decimal `json:"total_sales"`
	NetDue     decimal.Decimal `json:"net_due"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Service maintains the online sales ledger.
type Service struct {
	repo      onlinesales.Repository
	publisher EventPublisher
	clock     Clock
}

// NewService constructs the ledger service.
func NewService(repo onlinesales.Repository, publisher EventPublisher) (*Service, error) {
	if repo == nil {
		return nil, errors.New("onlinesales service: nil repository")
	}
	return &Service{
		repo:      repo,
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

// SubmitReportCommand carries one day's terminal sales figures.
type SubmitReportCommand struct {
	LocationID string
	Date       time.Time
	TotalSales decimal.Decimal
	Payouts    decimal.Decimal
	Commission decimal.Decimal
	Entries    []onlinesales.ReportEntry
	Notes      string
	LoggedBy   string
}

// SubmitReport appends one day's aggregate to the ledger. One report per
// location and date: a second submission for the same day is rejected,
// corrections go through Verify or a new day.
func (s *Service) SubmitReport(ctx context.Context, cmd SubmitReportCommand) (*onlinesales.DailyReport, error) {
	date := truncateToDay(cmd.Date)
	if existing, err := s.repo.FindByLocationAndDate(ctx, cmd.LocationID, date); err != nil {
		if !errors.Is(err, onlinesales.ErrReportNotFound) {
			return nil, err
		}
	} else if existing != nil {
		return nil, fmt.Errorf("%w: %s at %s", onlinesales.ErrDuplicateReport, date.Format("2006-01-02"), cmd.LocationID)
	}

	totalSales := cmd.TotalSales
	if totalSales.IsZero() && len(cmd.Entries) > 0 {
		for _, entry := range cmd.Entries {
			totalSales = totalSales.Add(entry.Net())
		}
	}
	netDue := totalSales.Sub(cmd.Payouts).Sub(cmd.Commission)

	report := &onlinesales.DailyReport{
		ID:         NewReportID(),
		Date:       date,
		LocationID: cmd.LocationID,
		TotalSales: totalSales.Round(2),
		Payouts:    cmd.Payouts.Round(2),
		Commission: cmd.Commission.Round(2),
		NetDue:     netDue.Round(2),
		Entries:    cmd.Entries,
		Notes:      cmd.Notes,
		LoggedBy:   cmd.LoggedBy,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := report.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, ReportSubmitted{
			ReportID:   report.ID,
			LocationID: report.LocationID,
			Date:       report.Date,
			TotalSales: report.TotalSales,
			NetDue:     report.NetDue,
			OccurredAt: report.CreatedAt,
		})
	}
	return report, nil
}

// Verify marks a report checked against the terminal printout.
func (s *Service) Verify(ctx context.Context, reportID string) (*onlinesales.DailyReport, error) {
	report, err := s.repo.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, onlinesales.ErrReportNotFound
	}
	if report.Verified {
		return report, nil
	}
	report.Verified = true
	if err := s.repo.Update(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns reports for a location within [from, to), newest first.
func (s *Service) ListReports(ctx context.Context, locationID string, from, to time.Time) ([]onlinesales.DailyReport, error) {
	if locationID == "" {
		return nil, errors.New("onlinesales service: location id required")
	}
	return s.repo.ListByLocation(ctx, locationID, from, to)
}

// MonthTotals sums one calendar month for a location.
type MonthTotals struct {
	Month      string          `json:"month"`
	Reports    int             `json:"reports"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Payouts    decimal.Decimal `json:"payouts"`
	Commission decimal.Decimal `json:"commission"`
	NetDue     decimal.Decimal `json:"net_due"`
}

// MonthTotals aggregates the ledger for the month containing ref.
func (s *Service) MonthTotals(ctx context.Context, locationID string, ref time.Time) (MonthTotals, error) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	totals := MonthTotals{
		Month:      start.Format("2006-01"),
		TotalSales: decimal.Zero,
		Payouts:    decimal.Zero,
		Commission: decimal.Zero,
		NetDue:     decimal.Zero,
	}
	reports, err := s.ListReports(ctx, locationID, start, end)
	if err != nil {
		return totals, err
	}
	for _, report := range reports {
		totals.Reports++
		totals.TotalSales = totals.TotalSales.Add(report.TotalSales)
		totals.Payouts = totals.Payouts.Add(report.Payouts)
		totals.Commission = totals.Commission.Add(report.Commission)
		totals.NetDue = totals.NetDue.Add(report.NetDue)
	}
	return totals, nil
}

func truncateToDay(value time.Time) time.Time {
	value = value.UTC()
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

// NewReportID generates a daily report identifier.
func NewReportID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "osr-" + hex.EncodeToString(buf)
}
