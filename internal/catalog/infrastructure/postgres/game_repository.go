package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	catalog "storeops-cloud/internal/catalog/domain"
)

const defaultGamesTable = "lottery_games"

// GameRepository is a Postgres implementation for lottery games.
type GameRepository struct {
	db    *sql.DB
	table string
}

// NewGameRepository constructs a repository.
func NewGameRepository(db *sql.DB, opts ...GameOption) *GameRepository {
	repo := &GameRepository{db: db, table: defaultGamesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GameOption configures the repository.
type GameOption func(*GameRepository)

// WithGamesTable overrides the default table name.
func WithGamesTable(table string) GameOption {
	return func(repo *GameRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a game by id.
func (r *GameRepository) Get(ctx context.Context, id string) (*catalog.Game, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("game repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, game_number, name, ticket_price, tickets_per_book, commission_rate, status, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)
	return scanGame(r.db.QueryRowContext(ctx, query, id))
}

// GetGame loads a game by id under the reader name the inventory and
// reconciliation services depend on.
func (r *GameRepository) GetGame(ctx context.Context, id string) (*catalog.Game, error) {
	return r.Get(ctx, id)
}

// FindByGameNumber loads a game by its commission game number.
func (r *GameRepository) FindByGameNumber(ctx context.Context, gameNumber string) (*catalog.Game, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("game repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, game_number, name, ticket_price, tickets_per_book, commission_rate, status, created_at, updated_at
FROM %s
WHERE game_number = $1
LIMIT 1`, r.table)
	return scanGame(r.db.QueryRowContext(ctx, query, gameNumber))
}

// ListActive returns games accepting new books.
func (r *GameRepository) ListActive(ctx context.Context) ([]catalog.Game, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("game repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT id, game_number, name, ticket_price, tickets_per_book, commission_rate, status, created_at, updated_at
FROM %s
WHERE status = $1
ORDER BY game_number ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, catalog.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Game
	for rows.Next() {
		var game catalog.Game
		if err := rows.Scan(
			&game.ID,
			&game.GameNumber,
			&game.Name,
			&game.TicketPrice,
			&game.TicketsPerBook,
			&game.CommissionRate,
			&game.Status,
			&game.CreatedAt,
			&game.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, game)
	}
	return result, rows.Err()
}

// Create inserts a new game.
func (r *GameRepository) Create(ctx context.Context, game *catalog.Game) error {
	if r == nil || r.db == nil {
		return errors.New("game repo: nil db")
	}
	if game == nil {
		return errors.New("game repo: nil game")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, game_number, name, ticket_price, tickets_per_book, commission_rate, status, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		game.ID,
		game.GameNumber,
		game.Name,
		game.TicketPrice,
		game.TicketsPerBook,
		game.CommissionRate,
		game.Status,
		game.CreatedAt,
		game.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return catalog.ErrDuplicateGameNumber
	}
	return err
}

// SetStatus updates the game status.
func (r *GameRepository) SetStatus(ctx context.Context, id, status string) error {
	if r == nil || r.db == nil {
		return errors.New("game repo: nil db")
	}
	query := fmt.Sprintf(`
UPDATE %s
SET status = $1, updated_at = NOW()
WHERE id = $2`, r.table)
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return catalog.ErrGameNotFound
	}
	return nil
}

func scanGame(row *sql.Row) (*catalog.Game, error) {
	var game catalog.Game
	if err := row.Scan(
		&game.ID,
		&game.GameNumber,
		&game.Name,
		&game.TicketPrice,
		&game.TicketsPerBook,
		&game.CommissionRate,
		&game.Status,
		&game.CreatedAt,
		&game.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	game.CreatedAt = game.CreatedAt.UTC()
	game.UpdatedAt = game.UpdatedAt.UTC()
	return &game, nil
}

func isUniqueViolation(err error) bool {
	// pgx surfaces SQLSTATE 23505 in the error text via the stdlib driver.
	return err != nil && strings.Contains(err.Error(), "23505")
}
