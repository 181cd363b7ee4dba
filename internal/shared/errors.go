package shared

import "errors"

// Error classes. Domain sentinels wrap exactly one of these so transports can
// map failures without knowing every package.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks structurally invalid input rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrState marks an operation that is inconsistent with current entity state.
	ErrState = errors.New("invalid state")
	// ErrConflict is returned when lock or serialisation contention outlasted the retry budget.
	ErrConflict = errors.New("concurrent modification")
	// ErrConfirmationRequired guards destructive administrative operations.
	ErrConfirmationRequired = errors.New("explicit confirmation required")
)
