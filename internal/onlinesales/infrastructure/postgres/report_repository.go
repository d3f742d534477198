package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	onlinesales "storeops-cloud/internal/onlinesales/domain"
)

const defaultReportsTable = "online_sales_reports"

// ReportRepository is a Postgres implementation of onlinesales.Repository.
// Per-game entry lines are stored as a JSONB column; a unique index on
// (location_id, report_date) enforces one report per day.
type ReportRepository struct {
	db    *sql.DB
	table string
}

// NewReportRepository constructs a repository.
func NewReportRepository(db *sql.DB, opts ...Option) *ReportRepository {
	repo := &ReportRepository{db: db, table: defaultReportsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*ReportRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *ReportRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const reportColumns = `id, report_date, location_id, total_sales, payouts, commission,
	net_due, entries, notes, logged_by, verified, created_at`

// Get loads one report by id.
func (r *ReportRepository) Get(ctx context.Context, id string) (*onlinesales.DailyReport, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, reportColumns, r.table)
	return scanReport(r.db.QueryRowContext(ctx, query, id))
}

// FindByLocationAndDate loads the report for one location and day.
func (r *ReportRepository) FindByLocationAndDate(ctx context.Context, locationID string, date time.Time) (*onlinesales.DailyReport, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE location_id = $1 AND report_date = $2`, reportColumns, r.table)
	return scanReport(r.db.QueryRowContext(ctx, query, locationID, date.UTC()))
}

// ListByLocation returns reports for a location within [from, to), newest first.
func (r *ReportRepository) ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]onlinesales.DailyReport, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("report repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE location_id = $1 AND report_date >= $2 AND report_date < $3
ORDER BY report_date DESC`, reportColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, locationID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []onlinesales.DailyReport
	for rows.Next() {
		report, err := scanReportRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *report)
	}
	return result, rows.Err()
}

// Create inserts a report. A duplicate day maps to ErrDuplicateReport.
func (r *ReportRepository) Create(ctx context.Context, report *onlinesales.DailyReport) error {
	if r == nil || r.db == nil {
		return errors.New("report repo: nil db")
	}
	if report == nil {
		return onlinesales.ErrNilReport
	}
	entries, err := json.Marshal(report.Entries)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, report_date, location_id, total_sales, payouts, commission,
	net_due, entries, notes, logged_by, verified, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)`, r.table)

	_, err = r.db.ExecContext(ctx, query,
		report.ID,
		report.Date,
		report.LocationID,
		report.TotalSales,
		report.Payouts,
		report.Commission,
		report.NetDue,
		entries,
		report.Notes,
		report.LoggedBy,
		report.Verified,
		report.CreatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "23505") {
		return fmt.Errorf("%w: %s at %s", onlinesales.ErrDuplicateReport,
			report.Date.Format("2006-01-02"), report.LocationID)
	}
	return err
}

// Update persists verification and note changes.
func (r *ReportRepository) Update(ctx context.Context, report *onlinesales.DailyReport) error {
	if r == nil || r.db == nil {
		return errors.New("report repo: nil db")
	}
	if report == nil {
		return onlinesales.ErrNilReport
	}
	query := fmt.Sprintf(`
UPDATE %s
SET verified = $2, notes = $3
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query, report.ID, report.Verified, report.Notes)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return onlinesales.ErrReportNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*onlinesales.DailyReport, error) {
	report, err := scanReportRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, onlinesales.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func scanReportRow(row rowScanner) (*onlinesales.DailyReport, error) {
	var report onlinesales.DailyReport
	var entries []byte
	if err := row.Scan(
		&report.ID,
		&report.Date,
		&report.LocationID,
		&report.TotalSales,
		&report.Payouts,
		&report.Commission,
		&report.NetDue,
		&entries,
		&report.Notes,
		&report.LoggedBy,
		&report.Verified,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		if err := json.Unmarshal(entries, &report.Entries); err != nil {
			return nil, err
		}
	}
	report.Date = report.Date.UTC()
	report.CreatedAt = report.CreatedAt.UTC()
	return &report, nil
}
