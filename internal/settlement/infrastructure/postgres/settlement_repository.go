package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	settlement "storeops-cloud/internal/settlement/domain"
)

const defaultSettlementsTable = "lottery_settlements"

// SettlementRepository is a Postgres implementation of settlement.Repository.
// A unique index on book_id enforces one settlement per book.
type SettlementRepository struct {
	db    *sql.DB
	table string
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository(db *sql.DB, opts ...Option) *SettlementRepository {
	repo := &SettlementRepository{db: db, table: defaultSettlementsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Option configures the repository.
type Option func(*SettlementRepository)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(repo *SettlementRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const settlementColumns = `id, book_id, book_number, game_id, game_name, location_id,
	total_tickets, tickets_sold, ticket_price, gross_sales, commission_rate,
	commission, net_due, settlement_date, status, approved_by, approved_at, created_at`

// Get loads one settlement by id.
func (r *SettlementRepository) Get(ctx context.Context, id string) (*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, settlementColumns, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByBook loads the settlement for a book, or ErrSettlementNotFound.
func (r *SettlementRepository) FindByBook(ctx context.Context, bookID string) (*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE book_id = $1`, settlementColumns, r.table)
	return r.scanOne(r.db.QueryRowContext(ctx, query, bookID))
}

// ListByLocation returns settlements for a location within [from, to), newest first.
func (r *SettlementRepository) ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE location_id = $1 AND settlement_date >= $2 AND settlement_date < $3
ORDER BY settlement_date DESC, created_at DESC`, settlementColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, locationID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlement.Settlement
	for rows.Next() {
		record, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

// Create inserts a settlement. A duplicate book maps to ErrDuplicateSettlement.
func (r *SettlementRepository) Create(ctx context.Context, record *settlement.Settlement) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repo: nil db")
	}
	if record == nil {
		return settlement.ErrNilSettlement
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, book_id, book_number, game_id, game_name, location_id,
	total_tickets, tickets_sold, ticket_price, gross_sales, commission_rate,
	commission, net_due, settlement_date, status, approved_by, approved_at, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.BookID,
		record.BookNumber,
		record.GameID,
		record.GameName,
		record.LocationID,
		record.TotalTickets,
		record.TicketsSold,
		record.TicketPrice,
		record.GrossSales,
		record.CommissionRate,
		record.Commission,
		record.NetDue,
		record.SettlementDate,
		record.Status,
		nullString(record.ApprovedBy),
		nullTime(record.ApprovedAt),
		record.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: book %s", settlement.ErrDuplicateSettlement, record.BookID)
	}
	return err
}

// Update persists approval state changes.
func (r *SettlementRepository) Update(ctx context.Context, record *settlement.Settlement) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repo: nil db")
	}
	if record == nil {
		return settlement.ErrNilSettlement
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $2, approved_by = $3, approved_at = $4
WHERE id = $1`, r.table)

	result, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Status,
		nullString(record.ApprovedBy),
		nullTime(record.ApprovedAt),
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return settlement.ErrSettlementNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SettlementRepository) scanOne(row rowScanner) (*settlement.Settlement, error) {
	record, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settlement.ErrSettlementNotFound
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func scanSettlement(row rowScanner) (*settlement.Settlement, error) {
	var record settlement.Settlement
	var approvedBy sql.NullString
	var approvedAt sql.NullTime
	if err := row.Scan(
		&record.ID,
		&record.BookID,
		&record.BookNumber,
		&record.GameID,
		&record.GameName,
		&record.LocationID,
		&record.TotalTickets,
		&record.TicketsSold,
		&record.TicketPrice,
		&record.GrossSales,
		&record.CommissionRate,
		&record.Commission,
		&record.NetDue,
		&record.SettlementDate,
		&record.Status,
		&approvedBy,
		&approvedAt,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	record.ApprovedBy = approvedBy.String
	if approvedAt.Valid {
		record.ApprovedAt = approvedAt.Time.UTC()
	}
	record.SettlementDate = record.SettlementDate.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	return &record, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value time.Time) sql.NullTime {
	return sql.NullTime{Time: value.UTC(), Valid: !value.IsZero()}
}
