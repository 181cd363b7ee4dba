package orders

import (
	"fmt"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

var (
	// ErrOrderNotFound indicates the order does not exist.
	ErrOrderNotFound = fmt.Errorf("%w: order", shared.ErrNotFound)
	// ErrLineNotFound indicates the line is not part of the order.
	ErrLineNotFound = fmt.Errorf("%w: order line", shared.ErrNotFound)
	// ErrOrderNotEligible indicates the order status does not allow the operation.
	ErrOrderNotEligible = fmt.Errorf("%w: order not eligible", shared.ErrState)
	// ErrInvalidTransition indicates the transition is not in the table.
	ErrInvalidTransition = fmt.Errorf("%w: invalid order transition", shared.ErrState)
	// ErrOpenAllocationsRemain blocks closing an order with unpicked reservations.
	ErrOpenAllocationsRemain = fmt.Errorf("%w: open allocations remain", shared.ErrState)
	// ErrInvalidDiscount indicates a discount outside zero..subtotal or finer than cents.
	ErrInvalidDiscount = fmt.Errorf("%w: discount must be between zero and the subtotal in whole cents", shared.ErrValidation)
	// ErrInvalidPrice indicates a negative unit price or one finer than cents.
	ErrInvalidPrice = fmt.Errorf("%w: unit price must be >= 0 in whole cents", shared.ErrValidation)
	// ErrPalletMismatch indicates a pallet holding another product or warehouse.
	ErrPalletMismatch = fmt.Errorf("%w: pallet does not match the order line", shared.ErrValidation)
)

// TransitionError carries the rejected move.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// EligibilityError carries the operation and the status that forbids it.
type EligibilityError struct {
	OrderID   int64
	Operation string
	Status    Status
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%v: %s requires a different status than %s (order %d)", ErrOrderNotEligible, e.Operation, e.Status, e.OrderID)
}

func (e *EligibilityError) Unwrap() error {
	return ErrOrderNotEligible
}
