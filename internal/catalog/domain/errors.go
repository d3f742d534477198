package catalog

import "errors"

var (
	// ErrEmptyID is returned when a game id is empty.
	ErrEmptyID = errors.New("catalog: empty game id")
	// ErrEmptyGameNumber is returned when the game number is empty.
	ErrEmptyGameNumber = errors.New("catalog: empty game number")
	// ErrEmptyName is returned when the game name is empty.
	ErrEmptyName = errors.New("catalog: empty game name")
	// ErrInvalidTicketPrice is returned when ticket price is not positive.
	ErrInvalidTicketPrice = errors.New("catalog: ticket price must be greater than zero")
	// ErrInvalidTicketsPerBook is returned when the book size is not positive.
	ErrInvalidTicketsPerBook = errors.New("catalog: tickets per book must be greater than zero")
	// ErrInvalidCommissionRate is returned when the rate is outside [0, 1).
	ErrInvalidCommissionRate = errors.New("catalog: commission rate must be at least 0 and below 1")
	// ErrInvalidStatus is returned for an unknown game status.
	ErrInvalidStatus = errors.New("catalog: invalid game status")
	// ErrDuplicateGameNumber is returned when another game already uses the number.
	ErrDuplicateGameNumber = errors.New("catalog: game number already registered")
	// ErrGameNotFound is returned when a game does not exist.
	ErrGameNotFound = errors.New("catalog: game not found")
	// ErrGameReferenced is returned when price or rate would change under live books.
	ErrGameReferenced = errors.New("catalog: game is referenced by non-archived books, supersede instead of editing")
)
