package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	reconciliation "storeops-cloud/internal/reconciliation/domain"
)

const defaultCountsTable = "lottery_daily_counts"

// CountRepository is a Postgres implementation for daily counts. Inserts only;
// the reconciliation trail is never updated in place.
type CountRepository struct {
	db    *sql.DB
	table string
}

// NewCountRepository constructs a repository.
func NewCountRepository(db *sql.DB, opts ...CountOption) *CountRepository {
	repo := &CountRepository{db: db, table: defaultCountsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// CountOption configures the repository.
type CountOption func(*CountRepository)

// WithCountsTable overrides the default table name.
func WithCountsTable(table string) CountOption {
	return func(repo *CountRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const countColumns = `id, count_date, book_id, expected_remaining, physical_remaining, variance,
	variance_amount, reason_code, location_id, notes, logged_by, approved_by, flagged, created_at`

// Append inserts one count record.
func (r *CountRepository) Append(ctx context.Context, count *reconciliation.DailyCount) error {
	if r == nil || r.db == nil {
		return errors.New("count repo: nil db")
	}
	if count == nil {
		return reconciliation.ErrNilCount
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, count_date, book_id, expected_remaining, physical_remaining, variance,
	variance_amount, reason_code, location_id, notes, logged_by, approved_by, flagged, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		count.ID,
		count.Date,
		count.BookID,
		count.ExpectedRemaining,
		count.PhysicalRemaining,
		count.Variance,
		count.VarianceAmount,
		count.ReasonCode,
		count.LocationID,
		count.Notes,
		count.LoggedBy,
		count.ApprovedBy,
		count.Flagged,
		count.CreatedAt,
	)
	return err
}

// ListByBook returns the count trail for one book, newest first.
func (r *CountRepository) ListByBook(ctx context.Context, bookID string) ([]reconciliation.DailyCount, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("count repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE book_id = $1
ORDER BY created_at DESC`, countColumns, r.table)
	return r.list(ctx, query, bookID)
}

// ListFlagged returns flagged counts for a location, newest first.
func (r *CountRepository) ListFlagged(ctx context.Context, locationID string) ([]reconciliation.DailyCount, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("count repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE location_id = $1 AND flagged
ORDER BY created_at DESC`, countColumns, r.table)
	return r.list(ctx, query, locationID)
}

func (r *CountRepository) list(ctx context.Context, query string, args ...any) ([]reconciliation.DailyCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconciliation.DailyCount
	for rows.Next() {
		var count reconciliation.DailyCount
		if err := rows.Scan(
			&count.ID,
			&count.Date,
			&count.BookID,
			&count.ExpectedRemaining,
			&count.PhysicalRemaining,
			&count.Variance,
			&count.VarianceAmount,
			&count.ReasonCode,
			&count.LocationID,
			&count.Notes,
			&count.LoggedBy,
			&count.ApprovedBy,
			&count.Flagged,
			&count.CreatedAt,
		); err != nil {
			return nil, err
		}
		count.Date = count.Date.UTC()
		count.CreatedAt = count.CreatedAt.UTC()
		result = append(result, count)
	}
	return result, rows.Err()
}
