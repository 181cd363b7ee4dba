package inventory

import (
	"context"
	"fmt"
)

// NextStatus derives a pallet status. BLOCKED never moves on its own.
func NextStatus(current Status, onHand, sellable int64) Status {
	if current == StatusBlocked {
		return StatusBlocked
	}
	switch {
	case onHand <= 0:
		return StatusDepleted
	case sellable <= 0:
		return StatusReserved
	default:
		return StatusActive
	}
}

var allocationTransitions = map[AllocationStatus][]AllocationStatus{
	AllocationOpen:      {AllocationConfirmed, AllocationCancelled},
	AllocationConfirmed: {AllocationCancelled},
}

// CanTransition reports whether the allocation may move from s to next.
func (s AllocationStatus) CanTransition(next AllocationStatus) bool {
	for _, allowed := range allocationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition is the only mutator of an allocation's status.
func (a *Allocation) Transition(next AllocationStatus) error {
	if !a.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrAllocationState, a.Status, next)
	}
	a.Status = next
	return nil
}

// SetAllocationStatus applies the transition and persists it.
func SetAllocationStatus(ctx context.Context, tx TxRepository, alloc *Allocation, next AllocationStatus) error {
	if err := alloc.Transition(next); err != nil {
		return err
	}
	if err := tx.UpdateAllocationStatus(ctx, alloc.ID, alloc.Status); err != nil {
		return fmt.Errorf("inventory: update allocation %d: %w", alloc.ID, err)
	}
	return nil
}
