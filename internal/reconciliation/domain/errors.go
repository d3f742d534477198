package reconciliation

import "errors"

var (
	// ErrReasonRequired is returned when a positive variance arrives without a reason code.
	ErrReasonRequired = errors.New("reconciliation: positive variance requires a reason code")
	// ErrNegativeRemaining is returned when a physical count is below zero.
	ErrNegativeRemaining = errors.New("reconciliation: physical remaining cannot be negative")
	// ErrImpossibleCount is returned when more tickets are counted than the book holds.
	ErrImpossibleCount = errors.New("reconciliation: physical remaining exceeds book size")
	// ErrInvalidDate is returned when the count date is zero.
	ErrInvalidDate = errors.New("reconciliation: invalid count date")
	// ErrNilCount is returned when persisting a nil count.
	ErrNilCount = errors.New("reconciliation: nil count")
)
