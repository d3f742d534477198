package domain

import "errors"

var (
	// ErrDuplicateSettlement indicates a book already has a settlement record.
	ErrDuplicateSettlement = errors.New("settlement: book already settled")
	// ErrSettlementNotFound indicates the settlement does not exist.
	ErrSettlementNotFound = errors.New("settlement: not found")
	// ErrNotSettleable indicates the book is not in a settleable state.
	ErrNotSettleable = errors.New("settlement: book not ready for settlement")
	// ErrAlreadyApproved indicates the settlement was approved before.
	ErrAlreadyApproved = errors.New("settlement: already approved")
	// ErrNilSettlement indicates a nil settlement was supplied.
	ErrNilSettlement = errors.New("settlement: nil settlement")
)
