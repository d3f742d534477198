package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	inventory "storeops-cloud/internal/inventory/domain"
)

const defaultBooksTable = "lottery_books"

// BookRepository is a Postgres implementation for ticket books. Update runs a
// transactional read-modify-write with a row lock, which gives the per-book
// serialization required for pointer advancement racing settlement.
type BookRepository struct {
	db    *sql.DB
	table string
}

// NewBookRepository constructs a repository.
func NewBookRepository(db *sql.DB, opts ...BookOption) *BookRepository {
	repo := &BookRepository{db: db, table: defaultBooksTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// BookOption configures the repository.
type BookOption func(*BookRepository)

// WithBooksTable overrides the default table name.
func WithBooksTable(table string) BookOption {
	return func(repo *BookRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

const bookColumns = `id, game_id, game_name, book_number, ticket_start, ticket_end, current_ticket,
	status, location_id, assigned_register, received_date, activation_date, settled_date, created_at, updated_at`

// Get loads a book by id.
func (r *BookRepository) Get(ctx context.Context, id string) (*inventory.Book, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("book repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
LIMIT 1`, bookColumns, r.table)
	return scanBook(r.db.QueryRowContext(ctx, query, id))
}

// FindLiveByLocationAndNumber loads a non-archived book with the number at the location.
func (r *BookRepository) FindLiveByLocationAndNumber(ctx context.Context, locationID, bookNumber string) (*inventory.Book, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("book repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE location_id = $1 AND book_number = $2 AND status <> $3
LIMIT 1`, bookColumns, r.table)
	return scanBook(r.db.QueryRowContext(ctx, query, locationID, bookNumber, inventory.StatusArchived))
}

// Create inserts a new book.
func (r *BookRepository) Create(ctx context.Context, book *inventory.Book) error {
	if r == nil || r.db == nil {
		return errors.New("book repo: nil db")
	}
	if book == nil {
		return inventory.ErrNilBook
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, game_id, game_name, book_number, ticket_start, ticket_end, current_ticket,
	status, location_id, assigned_register, received_date, activation_date, settled_date, created_at, updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		book.ID,
		book.GameID,
		book.GameName,
		book.BookNumber,
		book.TicketStart,
		book.TicketEnd,
		book.CurrentTicket,
		book.Status,
		book.LocationID,
		book.AssignedRegister,
		book.ReceivedDate,
		nullTime(book.ActivationDate),
		nullTime(book.SettledDate),
		book.CreatedAt,
		book.UpdatedAt,
	)
	return err
}

// Update applies mutate to the book under a row lock. The transaction is
// rolled back on any error, leaving the book in its prior state.
func (r *BookRepository) Update(ctx context.Context, id string, mutate func(*inventory.Book) error) (*inventory.Book, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("book repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE id = $1
FOR UPDATE`, bookColumns, r.table)

	book, err := scanBook(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if book == nil {
		_ = tx.Rollback()
		return nil, inventory.ErrBookNotFound
	}

	if err := mutate(book); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	updateQuery := fmt.Sprintf(`
UPDATE %s
SET current_ticket = $1,
	status = $2,
	assigned_register = $3,
	activation_date = $4,
	settled_date = $5,
	updated_at = $6
WHERE id = $7`, r.table)

	if _, err := tx.ExecContext(ctx, updateQuery,
		book.CurrentTicket,
		book.Status,
		book.AssignedRegister,
		nullTime(book.ActivationDate),
		nullTime(book.SettledDate),
		book.UpdatedAt,
		book.ID,
	); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return book, nil
}

// ListByLocation returns books at a location, optionally filtered by status.
func (r *BookRepository) ListByLocation(ctx context.Context, locationID, status string) ([]*inventory.Book, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("book repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE location_id = $1 AND ($2 = '' OR status = $2)
ORDER BY received_date DESC, book_number ASC`, bookColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query, locationID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*inventory.Book
	for rows.Next() {
		book, err := scanBookRows(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, book)
	}
	return result, rows.Err()
}

// CountLiveByGame reports non-archived books referencing a game.
func (r *BookRepository) CountLiveByGame(ctx context.Context, gameID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("book repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT COUNT(*)
FROM %s
WHERE game_id = $1 AND status <> $2`, r.table)
	var count int
	if err := r.db.QueryRowContext(ctx, query, gameID, inventory.StatusArchived).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row *sql.Row) (*inventory.Book, error) {
	book, err := scanBookFrom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return book, nil
}

func scanBookRows(rows *sql.Rows) (*inventory.Book, error) {
	return scanBookFrom(rows)
}

func scanBookFrom(scanner rowScanner) (*inventory.Book, error) {
	var book inventory.Book
	var register sql.NullString
	var activation, settled sql.NullTime
	if err := scanner.Scan(
		&book.ID,
		&book.GameID,
		&book.GameName,
		&book.BookNumber,
		&book.TicketStart,
		&book.TicketEnd,
		&book.CurrentTicket,
		&book.Status,
		&book.LocationID,
		&register,
		&book.ReceivedDate,
		&activation,
		&settled,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		return nil, err
	}
	book.AssignedRegister = register.String
	if activation.Valid {
		book.ActivationDate = activation.Time.UTC()
	}
	if settled.Valid {
		book.SettledDate = settled.Time.UTC()
	}
	book.ReceivedDate = book.ReceivedDate.UTC()
	book.CreatedAt = book.CreatedAt.UTC()
	book.UpdatedAt = book.UpdatedAt.UTC()
	return &book, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
