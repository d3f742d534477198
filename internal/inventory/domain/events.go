package inventory

import "time"

// BookReceived is emitted when a book enters inventory.
type BookReceived struct {
	BookID     string    `json:"book_id"`
	GameID     string    `json:"game_id"`
	BookNumber string    `json:"book_number"`
	LocationID string    `json:"location_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookActivated is emitted when a book goes on sale at a register.
type BookActivated struct {
	BookID     string    `json:"book_id"`
	Register   string    `json:"register"`
	LocationID string    `json:"location_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SoldOutDetected is emitted when a book is physically empty and awaits settlement.
type SoldOutDetected struct {
	BookID     string    `json:"book_id"`
	BookNumber string    `json:"book_number"`
	LocationID string    `json:"location_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookSettled is emitted when a book reaches its terminal financial state.
type BookSettled struct {
	BookID     string    `json:"book_id"`
	LocationID string    `json:"location_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookArchived is emitted when a settled book is archived.
type BookArchived struct {
	BookID     string    `json:"book_id"`
	LocationID string    `json:"location_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
