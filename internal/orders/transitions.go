package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

var transitions = map[Status][]Status{
	StatusCreated:         {StatusSentToWarehouse, StatusInReview, StatusCancelled},
	StatusSentToWarehouse: {StatusInReview, StatusCompleted, StatusCancelled},
	StatusInReview:        {StatusSentToWarehouse, StatusCancelled},
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition is the only mutator of an order's status. It persists the new
// status and appends an annotated note.
func Transition(ctx context.Context, tx TxRepository, order *Order, to Status, actor shared.Actor, note string, at time.Time) (StatusChange, error) {
	if !CanTransition(order.Status, to) {
		return StatusChange{}, &TransitionError{From: order.Status, To: to}
	}
	change := StatusChange{OrderID: order.ID, Number: order.Label(), From: order.Status, To: to, Actor: actor, At: at}
	if err := tx.UpdateOrderStatus(ctx, order.ID, to); err != nil {
		return StatusChange{}, fmt.Errorf("orders: update status: %w", err)
	}
	line := noteLine(at, actor, fmt.Sprintf("%s -> %s", change.From, to), note)
	if err := tx.AppendNote(ctx, order.ID, line); err != nil {
		return StatusChange{}, fmt.Errorf("orders: append note: %w", err)
	}
	order.Status = to
	order.Notes += line
	return change, nil
}

func noteLine(at time.Time, actor shared.Actor, head, note string) string {
	if note == "" {
		return fmt.Sprintf("[%s] %s %s\n", at.Format(time.RFC3339), actor, head)
	}
	return fmt.Sprintf("[%s] %s %s: %s\n", at.Format(time.RFC3339), actor, head, note)
}
