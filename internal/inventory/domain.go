package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// EventKind enumerates inventory-affecting ledger events.
type EventKind string

const (
	// KindReceipt is the initial stocking event of a pallet.
	KindReceipt EventKind = "RECEIPT"
	// KindInbound returns units to a pallet (e.g. cancellation reversal).
	KindInbound EventKind = "INBOUND"
	// KindOutbound removes units that left with an order.
	KindOutbound EventKind = "OUTBOUND"
	// KindPick removes units picked outside an allocation.
	KindPick EventKind = "PICK"
	// KindAllocationPick is the historical alias of KindOutbound.
	KindAllocationPick EventKind = "ALLOCATION_PICK"
	// KindShrinkage records lost or damaged units.
	KindShrinkage EventKind = "SHRINKAGE"
	// KindAdjustmentPositive is a count correction upwards.
	KindAdjustmentPositive EventKind = "ADJUSTMENT_POSITIVE"
	// KindAdjustmentNegative is a count correction downwards.
	KindAdjustmentNegative EventKind = "ADJUSTMENT_NEGATIVE"
	// KindAdjustment carries its own sign.
	KindAdjustment EventKind = "ADJUSTMENT"
	// KindClose marks a pallet as closed out. Quantity neutral.
	KindClose EventKind = "CLOSE"
	// KindAssignment records an automatic reservation. Quantity neutral.
	KindAssignment EventKind = "ASSIGNMENT"
)

// IsValid reports whether k is a recognised kind.
func (k EventKind) IsValid() bool {
	switch k {
	case KindReceipt, KindInbound, KindOutbound, KindPick, KindAllocationPick, KindShrinkage,
		KindAdjustmentPositive, KindAdjustmentNegative, KindAdjustment, KindClose, KindAssignment:
		return true
	default:
		return false
	}
}

// Delta returns the signed effect of an event of kind k carrying qty.
func (k EventKind) Delta(qty int64) int64 {
	switch k {
	case KindReceipt, KindInbound, KindAdjustmentPositive:
		return qty
	case KindOutbound, KindPick, KindAllocationPick, KindShrinkage, KindAdjustmentNegative:
		return -qty
	case KindAdjustment:
		return qty
	default:
		return 0
	}
}

// Status is the cached projection of a pallet's ledger state.
type Status string

const (
	StatusActive   Status = "ACTIVE"   // Has sellable quantity
	StatusReserved Status = "RESERVED" // Stock on hand but fully reserved
	StatusDepleted Status = "DEPLETED" // Nothing on hand
	StatusBlocked  Status = "BLOCKED"  // Administratively frozen
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusReserved, StatusDepleted, StatusBlocked:
		return true
	default:
		return false
	}
}

// Pallet is a physical lot of one product at one warehouse.
type Pallet struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	SupplierID  *int64          `json:"supplier_id,omitempty"`
	LotCode     string          `json:"lot_code"`
	Location    string          `json:"location,omitempty"`
	ReceivedAt  time.Time       `json:"received_at"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Status      Status          `json:"status"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Event is an immutable ledger record against a pallet.
type Event struct {
	ID          int64        `json:"id"`
	PalletID    int64        `json:"pallet_id"`
	WarehouseID int64        `json:"warehouse_id"`
	Seq         int64        `json:"seq"`
	Kind        EventKind    `json:"kind"`
	Quantity    int64        `json:"quantity"`
	Actor       shared.Actor `json:"actor"`
	OrderID     *int64       `json:"order_id,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// AllocationStatus is the lifecycle of a reservation.
type AllocationStatus string

const (
	AllocationOpen      AllocationStatus = "OPEN"      // Reserved, not yet posted
	AllocationConfirmed AllocationStatus = "CONFIRMED" // OUTBOUND posted
	AllocationCancelled AllocationStatus = "CANCELLED" // Reversed
)

// Allocation links one order line to one pallet.
type Allocation struct {
	ID          int64            `json:"id"`
	OrderID     int64            `json:"order_id"`
	OrderLineID int64            `json:"order_line_id"`
	PalletID    int64            `json:"pallet_id"`
	Quantity    int64            `json:"quantity"`
	Status      AllocationStatus `json:"status"`
	Location    string           `json:"location,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// StatusChange describes a pallet status re-evaluation.
type StatusChange struct {
	PalletID int64  `json:"pallet_id"`
	From     Status `json:"from"`
	To       Status `json:"to"`
	OnHand   int64  `json:"on_hand"`
	Sellable int64  `json:"sellable"`
}

// Changed reports whether the evaluation moved the pallet.
func (c StatusChange) Changed() bool {
	return c.From != c.To
}

// ReceiveInput describes a pallet being received into a warehouse.
type ReceiveInput struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64           `json:"warehouse_id" validate:"required,gt=0"`
	SupplierID  *int64          `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	LotCode     string          `json:"lot_code" validate:"max=64"`
	Location    string          `json:"location" validate:"max=64"`
	ReceivedAt  time.Time       `json:"received_at"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Quantity    int64           `json:"quantity" validate:"gt=0"`
	Actor       shared.Actor    `json:"-"`
}

// PostInput describes a manual ledger movement.
type PostInput struct {
	PalletID   int64        `json:"pallet_id" validate:"required,gt=0"`
	Kind       EventKind    `json:"kind" validate:"required"`
	Quantity   int64        `json:"quantity"`
	OrderID    *int64       `json:"order_id,omitempty"`
	Reason     string       `json:"reason" validate:"max=500"`
	OccurredAt time.Time    `json:"occurred_at"`
	Actor      shared.Actor `json:"-"`
}

// PalletDetail is the read model of a pallet with ledger-derived quantities.
type PalletDetail struct {
	Pallet   Pallet  `json:"pallet"`
	OnHand   int64   `json:"on_hand"`
	Sellable int64   `json:"sellable"`
	Events   []Event `json:"events"`
	Anomaly  bool    `json:"anomaly"`
}

// ReconcileReport summarises a status reconciliation pass.
type ReconcileReport struct {
	Checked   int            `json:"checked"`
	Corrected []StatusChange `json:"corrected"`
	Negative  []int64        `json:"negative"`
}

// costScale is the number of decimal places stored for unit costs.
const costScale = 4

// Domain errors.
var (
	ErrInvalidEventKind  = fmt.Errorf("%w: unrecognised ledger event kind", shared.ErrValidation)
	ErrInvalidQuantity   = fmt.Errorf("%w: quantity must be a non-negative integer", shared.ErrValidation)
	ErrInvalidUnitCost   = fmt.Errorf("%w: unit cost must be >= 0 with at most four decimals", shared.ErrValidation)
	ErrPalletNotFound    = fmt.Errorf("%w: pallet", shared.ErrNotFound)
	ErrAllocationMissing = fmt.Errorf("%w: allocation", shared.ErrNotFound)
	ErrPalletBlocked     = fmt.Errorf("%w: pallet is blocked", shared.ErrState)
	ErrPalletNotBlocked  = fmt.Errorf("%w: pallet is not blocked", shared.ErrState)
	ErrPalletReserved    = fmt.Errorf("%w: pallet has open reservations", shared.ErrState)
	ErrPalletInUse       = fmt.Errorf("%w: pallet is referenced by allocations", shared.ErrState)
	ErrInsufficientStock = fmt.Errorf("%w: insufficient sellable quantity", shared.ErrState)
	ErrAllocationState   = fmt.Errorf("%w: allocation transition not allowed", shared.ErrState)
)
