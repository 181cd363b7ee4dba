package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/payments"
)

// TxRepository spans orders, pallets and payments so one transaction covers
// an order operation end to end.
type TxRepository interface {
	inventory.TxRepository
	payments.TxRepository

	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, line Line) (int64, error)
	// GetOrder loads the order with its lines ordered by position.
	GetOrder(ctx context.Context, id int64) (Order, error)
	// LockOrder is GetOrder holding a row lock until commit.
	LockOrder(ctx context.Context, id int64) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
	AppendNote(ctx context.Context, id int64, note string) error
	UpdateLineSnapshot(ctx context.Context, lineID int64, unitCost decimal.Decimal, supplierID *int64) error
	UpdateLineFulfilled(ctx context.Context, lineID, fulfilled int64) error
	ListAllocationsByOrder(ctx context.Context, orderID int64) ([]inventory.Allocation, error)

	// FindIdempotencyKey reports the resource a key was bound to.
	FindIdempotencyKey(ctx context.Context, key, module string) (int64, bool, error)
	// InsertIdempotencyKey fails with shared.ErrIdempotencyConflict when the key exists.
	InsertIdempotencyKey(ctx context.Context, key, module string, resourceID int64) error
	DeleteIdempotencyKeys(ctx context.Context, module string, resourceID int64) error

	DeleteEventsByOrder(ctx context.Context, orderID int64) error
	DeleteAllocationsByOrder(ctx context.Context, orderID int64) error
	DeleteLines(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
}

// Store opens order transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Numberer hands out unique order sequence numbers.
type Numberer interface {
	Next(ctx context.Context) (int64, error)
}

// EventSink receives committed order and ledger activity.
type EventSink interface {
	inventory.EventSink
	OrderStatusChanged(ctx context.Context, change StatusChange) error
}

// Metrics records allocation and lifecycle activity.
type Metrics interface {
	ObserveAllocation(mode string, outcome string, created int, shortfall int64)
	ObserveOrderTransition(from, to string)
}
