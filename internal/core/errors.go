package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the expected, recoverable conditions. Callers branch on
// these with errors.Is; everything else is treated as a storage failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyBought    = errors.New("purchase already marked as bought")
	ErrDuplicateExpense = errors.New("expense already recorded for this purchase")
	ErrNotInitialized   = errors.New("store not initialized")
)

// FieldError reports which input field failed validation and why. It is
// always caught before any write reaches the store.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

// IsConflict reports whether err is one of the fulfillment conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyBought) || errors.Is(err, ErrDuplicateExpense)
}
