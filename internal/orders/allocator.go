package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/dos-laredos/dos-laredos/internal/catalog"
	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Allocator assigns pallets to order lines. It runs inside the caller's
// transaction, which must already hold the order lock.
type Allocator struct {
	ledger  *inventory.Ledger
	catalog catalog.Catalog
}

// NewAllocator constructs Allocator.
func NewAllocator(ledger *inventory.Ledger, cat catalog.Catalog) *Allocator {
	return &Allocator{ledger: ledger, catalog: cat}
}

// Manual books caller-chosen pallets for a line: each non-zero request
// becomes a CONFIRMED allocation with an OUTBOUND event. Sellable quantity is
// not checked. Requests must have been validated with ValidateManual.
func (a *Allocator) Manual(ctx context.Context, tx TxRepository, order *Order, line *Line, reqs []ManualAllocation, actor shared.Actor) ([]inventory.Event, error) {
	var events []inventory.Event
	for _, req := range reqs {
		if req.Quantity == 0 {
			continue
		}
		pallet, err := tx.LockPallet(ctx, req.PalletID)
		if err != nil {
			return nil, err
		}
		if pallet.ProductID != line.ProductID || pallet.WarehouseID != order.WarehouseID {
			return nil, fmt.Errorf("%w: pallet %d", ErrPalletMismatch, pallet.ID)
		}
		alloc := inventory.Allocation{
			OrderID:     order.ID,
			OrderLineID: line.ID,
			PalletID:    pallet.ID,
			Quantity:    req.Quantity,
			Status:      inventory.AllocationConfirmed,
			Location:    a.location(ctx, pallet),
		}
		if alloc.ID, err = tx.InsertAllocation(ctx, alloc); err != nil {
			return nil, fmt.Errorf("orders: insert allocation: %w", err)
		}
		evt, _, err := a.ledger.Append(ctx, tx, inventory.Event{
			PalletID: pallet.ID,
			Kind:     inventory.KindOutbound,
			Quantity: req.Quantity,
			Actor:    actor,
			OrderID:  &order.ID,
			Reason:   "manual allocation " + order.Label(),
		})
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
		if err := a.snapshot(ctx, tx, line, pallet); err != nil {
			return nil, err
		}
		line.Fulfilled += req.Quantity
		line.Allocations = append(line.Allocations, alloc)
	}
	if err := tx.UpdateLineFulfilled(ctx, line.ID, line.Fulfilled); err != nil {
		return nil, fmt.Errorf("orders: update fulfilled: %w", err)
	}
	return events, nil
}

// Auto reserves ACTIVE pallets for every line, oldest received first, as
// OPEN allocations. Lines that cannot be covered are reported as shortfalls.
func (a *Allocator) Auto(ctx context.Context, tx TxRepository, order *Order, actor shared.Actor) (AllocationResult, []inventory.Event, error) {
	existing, err := tx.ListAllocationsByOrder(ctx, order.ID)
	if err != nil {
		return AllocationResult{}, nil, fmt.Errorf("orders: list allocations: %w", err)
	}
	reserved := make(map[int64]int64, len(order.Lines))
	for _, alloc := range existing {
		if alloc.Status != inventory.AllocationCancelled {
			reserved[alloc.OrderLineID] += alloc.Quantity
		}
	}

	var result AllocationResult
	var events []inventory.Event
	for i := range order.Lines {
		line := &order.Lines[i]
		remaining := line.Requested - reserved[line.ID]
		if remaining <= 0 {
			continue
		}
		candidates, err := tx.ListCandidatePallets(ctx, order.WarehouseID, line.ProductID)
		if err != nil {
			return AllocationResult{}, nil, fmt.Errorf("orders: list candidate pallets: %w", err)
		}
		for _, candidate := range candidates {
			if remaining == 0 {
				break
			}
			taken, evt, err := a.reserve(ctx, tx, order, line, candidate.ID, remaining, actor)
			if err != nil {
				return AllocationResult{}, nil, err
			}
			if taken == 0 {
				continue
			}
			remaining -= taken
			result.Created++
			events = append(events, evt)
		}
		if remaining > 0 {
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				LineID:      line.ID,
				ProductID:   line.ProductID,
				ProductName: a.productName(ctx, line.ProductID),
				Shortfall:   remaining,
			})
		}
	}

	result.Outcome = OutcomeComplete
	if len(result.Shortfalls) > 0 {
		result.Outcome = OutcomePartial
	}
	return result, events, nil
}

// Reserve books qty units of one pallet for a line as an OPEN allocation,
// re-checking sellable quantity under the pallet lock. qty may not exceed what
// the line still lacks after its non-cancelled allocations.
func (a *Allocator) Reserve(ctx context.Context, tx TxRepository, order *Order, line *Line, palletID, qty int64, actor shared.Actor) (inventory.Event, error) {
	outstanding, err := a.outstanding(ctx, tx, order.ID, line)
	if err != nil {
		return inventory.Event{}, err
	}
	if qty > outstanding {
		return inventory.Event{}, fmt.Errorf("%w: line %d needs %d, requested %d", inventory.ErrInvalidQuantity, line.ID, outstanding, qty)
	}
	pallet, err := tx.LockPallet(ctx, palletID)
	if err != nil {
		return inventory.Event{}, err
	}
	if pallet.ProductID != line.ProductID || pallet.WarehouseID != order.WarehouseID {
		return inventory.Event{}, fmt.Errorf("%w: pallet %d", ErrPalletMismatch, pallet.ID)
	}
	if pallet.Status == inventory.StatusBlocked {
		return inventory.Event{}, inventory.ErrPalletBlocked
	}
	sellable, err := a.ledger.SellableQuantity(ctx, tx, palletID)
	if err != nil {
		return inventory.Event{}, err
	}
	if sellable < qty {
		return inventory.Event{}, fmt.Errorf("%w: pallet %d has %d, requested %d", inventory.ErrInsufficientStock, palletID, sellable, qty)
	}
	taken, evt, err := a.reserve(ctx, tx, order, line, palletID, qty, actor)
	if err != nil {
		return inventory.Event{}, err
	}
	if taken < qty {
		return inventory.Event{}, fmt.Errorf("%w: pallet %d is %s", inventory.ErrInsufficientStock, palletID, pallet.Status)
	}
	return evt, nil
}

// reserve locks the pallet, takes min(sellable, want) and records the
// ASSIGNMENT. Pallets no longer ACTIVE once locked yield zero.
func (a *Allocator) reserve(ctx context.Context, tx TxRepository, order *Order, line *Line, palletID, want int64, actor shared.Actor) (int64, inventory.Event, error) {
	pallet, err := tx.LockPallet(ctx, palletID)
	if err != nil {
		return 0, inventory.Event{}, err
	}
	if pallet.Status != inventory.StatusActive {
		return 0, inventory.Event{}, nil
	}
	sellable, err := a.ledger.SellableQuantity(ctx, tx, palletID)
	if err != nil {
		return 0, inventory.Event{}, err
	}
	if sellable == 0 {
		return 0, inventory.Event{}, nil
	}
	take := min(sellable, want)

	alloc := inventory.Allocation{
		OrderID:     order.ID,
		OrderLineID: line.ID,
		PalletID:    palletID,
		Quantity:    take,
		Status:      inventory.AllocationOpen,
		Location:    a.location(ctx, pallet),
	}
	if alloc.ID, err = tx.InsertAllocation(ctx, alloc); err != nil {
		return 0, inventory.Event{}, fmt.Errorf("orders: insert allocation: %w", err)
	}
	evt, _, err := a.ledger.Append(ctx, tx, inventory.Event{
		PalletID: palletID,
		Kind:     inventory.KindAssignment,
		Quantity: take,
		Actor:    actor,
		OrderID:  &order.ID,
		Reason:   "assigned to " + order.Label(),
	})
	if err != nil {
		return 0, inventory.Event{}, err
	}
	if err := a.snapshot(ctx, tx, line, pallet); err != nil {
		return 0, inventory.Event{}, err
	}
	line.Allocations = append(line.Allocations, alloc)
	return take, evt, nil
}

// outstanding is the requested quantity of line not yet covered by OPEN or
// CONFIRMED allocations.
func (a *Allocator) outstanding(ctx context.Context, tx TxRepository, orderID int64, line *Line) (int64, error) {
	allocs, err := tx.ListAllocationsByOrder(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("orders: list allocations: %w", err)
	}
	covered := int64(0)
	for _, alloc := range allocs {
		if alloc.OrderLineID == line.ID && alloc.Status != inventory.AllocationCancelled {
			covered += alloc.Quantity
		}
	}
	return max(line.Requested-covered, 0), nil
}

// snapshot copies cost and supplier of the first allocated pallet onto the line.
func (a *Allocator) snapshot(ctx context.Context, tx TxRepository, line *Line, pallet inventory.Pallet) error {
	if line.UnitCost != nil {
		return nil
	}
	cost := pallet.UnitCost
	supplierID := pallet.SupplierID
	if supplierID != nil && a.catalog != nil {
		if _, err := a.catalog.Supplier(ctx, *supplierID); err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("orders: supplier lookup: %w", err)
			}
			supplierID = nil
		}
	}
	if err := tx.UpdateLineSnapshot(ctx, line.ID, cost, supplierID); err != nil {
		return fmt.Errorf("orders: update line snapshot: %w", err)
	}
	line.UnitCost = &cost
	line.SupplierID = supplierID
	return nil
}

func (a *Allocator) location(ctx context.Context, pallet inventory.Pallet) string {
	if a.catalog == nil {
		return pallet.Location
	}
	loc, err := a.catalog.WarehouseLocation(ctx, pallet.ID)
	if err != nil || loc == "" {
		return pallet.Location
	}
	return loc
}

func (a *Allocator) productName(ctx context.Context, productID int64) string {
	if a.catalog != nil {
		if p, err := a.catalog.Product(ctx, productID); err == nil {
			return p.Name
		}
	}
	return fmt.Sprintf("product %d", productID)
}

// ValidateManual rejects negative quantities before anything is written.
func ValidateManual(lines []LineInput) error {
	for i, line := range lines {
		for _, req := range line.Allocations {
			if req.Quantity < 0 {
				return fmt.Errorf("%w: line %d pallet %d: %d", inventory.ErrInvalidQuantity, i, req.PalletID, req.Quantity)
			}
		}
	}
	return nil
}
