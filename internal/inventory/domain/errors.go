package inventory

import "errors"

var (
	// ErrInvalidRange is returned when a ticket range is not a valid closed interval.
	ErrInvalidRange = errors.New("inventory: invalid ticket range")
	// ErrInvalidState is returned on an illegal lifecycle transition.
	ErrInvalidState = errors.New("inventory: invalid book state for operation")
	// ErrRegression is returned when the consumption pointer would move backward.
	ErrRegression = errors.New("inventory: count would move ticket pointer backward")
	// ErrRangeExceeded is returned when the pointer would pass the end of the book.
	ErrRangeExceeded = errors.New("inventory: ticket pointer beyond end of book")
	// ErrBookNotFound is returned when a book does not exist.
	ErrBookNotFound = errors.New("inventory: book not found")
	// ErrDuplicateBookNumber is returned when a live book already uses the number at the location.
	ErrDuplicateBookNumber = errors.New("inventory: book number already in use at location")
	// ErrLocationRequired is returned when an operation arrives without a resolved location.
	ErrLocationRequired = errors.New("inventory: location id is required")
	// ErrNilBook is returned when persisting a nil book.
	ErrNilBook = errors.New("inventory: nil book")
)
