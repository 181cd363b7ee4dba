// Package orders implements the order lifecycle and the allocation engine
// that reserves pallets for order lines.
package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/payments"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Status represents order lifecycle status.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusSentToWarehouse Status = "SENT_TO_WAREHOUSE"
	StatusInReview        Status = "IN_REVIEW"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusSentToWarehouse, StatusInReview, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DeliveryMode is how the customer receives the goods.
type DeliveryMode string

const (
	DeliveryPickup   DeliveryMode = "PICKUP"
	DeliveryDelivery DeliveryMode = "DELIVERY"
)

// Order is a customer purchase.
type Order struct {
	ID            int64           `json:"id"`
	Number        int64           `json:"number"`
	CustomerID    int64           `json:"customer_id"`
	WarehouseID   int64           `json:"warehouse_id"`
	DeliveryMode  DeliveryMode    `json:"delivery_mode"`
	Address       string          `json:"address,omitempty"`
	Status        Status          `json:"status"`
	PaymentStatus payments.Status `json:"payment_status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	CreatedBy     shared.Actor    `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Lines         []Line          `json:"lines"`
}

// Label renders the human readable order number.
func (o Order) Label() string {
	return FormatNumber(o.Number)
}

// FormatNumber renders an order sequence number for display.
func FormatNumber(n int64) string {
	return fmt.Sprintf("PED-%06d", n)
}

// Line is one product entry of an order.
type Line struct {
	ID          int64                  `json:"id"`
	OrderID     int64                  `json:"order_id"`
	Position    int                    `json:"position"`
	ProductID   int64                  `json:"product_id"`
	Requested   int64                  `json:"requested"`
	Fulfilled   int64                  `json:"fulfilled"`
	UnitPrice   decimal.Decimal        `json:"unit_price"`
	UnitCost    *decimal.Decimal       `json:"unit_cost,omitempty"`
	SupplierID  *int64                 `json:"supplier_id,omitempty"`
	Allocations []inventory.Allocation `json:"allocations,omitempty"`
}

// ManualAllocation is a caller-chosen pallet for a line at creation.
type ManualAllocation struct {
	PalletID int64 `json:"pallet_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity"`
}

// LineInput describes a requested line.
type LineInput struct {
	ProductID   int64              `json:"product_id" validate:"required,gt=0"`
	Quantity    int64              `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
	Allocations []ManualAllocation `json:"allocations,omitempty" validate:"dive"`
}

// CreateInput describes a new order submission.
type CreateInput struct {
	CustomerID     int64           `json:"customer_id" validate:"required,gt=0"`
	WarehouseID    int64           `json:"warehouse_id" validate:"required,gt=0"`
	DeliveryMode   DeliveryMode    `json:"delivery_mode" validate:"required,oneof=PICKUP DELIVERY"`
	Address        string          `json:"address,omitempty" validate:"max=500"`
	Discount       decimal.Decimal `json:"discount"`
	Lines          []LineInput     `json:"lines" validate:"required,min=1,dive"`
	Payments       []payments.Line `json:"payments,omitempty" validate:"dive"`
	IdempotencyKey string          `json:"-"`
	Actor          shared.Actor    `json:"-"`
}

// Shortfall is the part of a line automatic allocation could not cover.
type Shortfall struct {
	LineID      int64  `json:"line_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Shortfall   int64  `json:"shortfall"`
}

// Outcome summarises an automatic allocation.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomePartial  Outcome = "partial"
)

// AllocationResult is returned by automatic allocation. Shortfalls are a
// successful partial outcome.
type AllocationResult struct {
	Created    int         `json:"created"`
	Shortfalls []Shortfall `json:"shortfalls"`
	Outcome    Outcome     `json:"outcome"`
	Status     Status      `json:"status"`
}

// ReversalResult reports what a cancellation pass did per allocation.
type ReversalResult struct {
	Released int `json:"released"`
	Reversed int `json:"reversed"`
	Skipped  int `json:"skipped"`
}

// DeleteResult reports what a hard delete removed besides the order.
type DeleteResult struct {
	ReversalResult
	Payments int `json:"payments"`
	Credits  int `json:"credits"`
}

// StatusChange is published after an order moves.
type StatusChange struct {
	OrderID int64        `json:"order_id"`
	Number  string       `json:"number"`
	From    Status       `json:"from"`
	To      Status       `json:"to"`
	Actor   shared.Actor `json:"actor"`
	At      time.Time    `json:"at"`
}

// Detail is the order read model.
type Detail struct {
	Order    Order               `json:"order"`
	Label    string              `json:"label"`
	Money    payments.OrderMoney `json:"money"`
	// Replayed is set when an idempotency key matched an earlier create.
	Replayed bool                `json:"replayed,omitempty"`
}
