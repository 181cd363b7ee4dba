package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/payments"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Tx is one in-memory transaction. It satisfies orders.TxRepository and with
// it the inventory and payments ports.
type Tx struct {
	st  *state
	now func() time.Time
}

var _ orders.TxRepository = (*Tx)(nil)

// Pallets

func (tx *Tx) InsertPallet(_ context.Context, p inventory.Pallet) (int64, error) {
	p.ID = tx.st.id()
	p.Version = 1
	p.CreatedAt = tx.now()
	p.UpdatedAt = p.CreatedAt
	tx.st.pallets[p.ID] = p
	return p.ID, nil
}

func (tx *Tx) GetPallet(_ context.Context, id int64) (inventory.Pallet, error) {
	p, ok := tx.st.pallets[id]
	if !ok {
		return inventory.Pallet{}, fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	return p, nil
}

func (tx *Tx) LockPallet(ctx context.Context, id int64) (inventory.Pallet, error) {
	return tx.GetPallet(ctx, id)
}

func (tx *Tx) SavePalletStatus(_ context.Context, id int64, status inventory.Status) error {
	p, ok := tx.st.pallets[id]
	if !ok {
		return fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	p.Status = status
	p.Version++
	p.UpdatedAt = tx.now()
	tx.st.pallets[id] = p
	return nil
}

func (tx *Tx) UpdatePalletLocation(_ context.Context, id, warehouseID int64, location string) error {
	p, ok := tx.st.pallets[id]
	if !ok {
		return fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	p.WarehouseID = warehouseID
	p.Location = location
	p.Version++
	p.UpdatedAt = tx.now()
	tx.st.pallets[id] = p
	return nil
}

func (tx *Tx) ListPalletIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(tx.st.pallets))
	for id := range tx.st.pallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (tx *Tx) ListCandidatePallets(_ context.Context, warehouseID, productID int64) ([]inventory.Pallet, error) {
	var out []inventory.Pallet
	for _, p := range tx.st.pallets {
		if p.WarehouseID == warehouseID && p.ProductID == productID && p.Status == inventory.StatusActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *Tx) DeletePallet(_ context.Context, id int64) error {
	delete(tx.st.pallets, id)
	delete(tx.st.palletSeq, id)
	return nil
}

// Ledger events

func (tx *Tx) InsertEvent(_ context.Context, evt inventory.Event) (inventory.Event, error) {
	if _, ok := tx.st.pallets[evt.PalletID]; !ok {
		return inventory.Event{}, fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, evt.PalletID)
	}
	tx.st.palletSeq[evt.PalletID]++
	evt.Seq = tx.st.palletSeq[evt.PalletID]
	evt.ID = tx.st.id()
	tx.st.events[evt.ID] = evt
	return evt, nil
}

func (tx *Tx) ListEvents(_ context.Context, palletID int64) ([]inventory.Event, error) {
	var out []inventory.Event
	for _, evt := range tx.st.events {
		if evt.PalletID == palletID {
			out = append(out, evt)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (tx *Tx) DeleteEvents(_ context.Context, palletID int64) error {
	for id, evt := range tx.st.events {
		if evt.PalletID == palletID {
			delete(tx.st.events, id)
		}
	}
	return nil
}

func (tx *Tx) DeleteEventsByOrder(_ context.Context, orderID int64) error {
	for id, evt := range tx.st.events {
		if evt.OrderID != nil && *evt.OrderID == orderID {
			delete(tx.st.events, id)
		}
	}
	return nil
}

// Allocations

func (tx *Tx) InsertAllocation(_ context.Context, a inventory.Allocation) (int64, error) {
	a.ID = tx.st.id()
	a.CreatedAt = tx.now()
	a.UpdatedAt = a.CreatedAt
	tx.st.allocations[a.ID] = a
	return a.ID, nil
}

func (tx *Tx) GetAllocation(_ context.Context, id int64) (inventory.Allocation, error) {
	a, ok := tx.st.allocations[id]
	if !ok {
		return inventory.Allocation{}, fmt.Errorf("%w: %d", inventory.ErrAllocationMissing, id)
	}
	return a, nil
}

func (tx *Tx) UpdateAllocationStatus(_ context.Context, id int64, status inventory.AllocationStatus) error {
	a, ok := tx.st.allocations[id]
	if !ok {
		return fmt.Errorf("%w: %d", inventory.ErrAllocationMissing, id)
	}
	a.Status = status
	a.UpdatedAt = tx.now()
	tx.st.allocations[id] = a
	return nil
}

func (tx *Tx) SumOpenAllocations(_ context.Context, palletID int64) (int64, error) {
	var sum int64
	for _, a := range tx.st.allocations {
		if a.PalletID == palletID && a.Status == inventory.AllocationOpen {
			sum += a.Quantity
		}
	}
	return sum, nil
}

func (tx *Tx) CountAllocations(_ context.Context, palletID int64) (int, error) {
	n := 0
	for _, a := range tx.st.allocations {
		if a.PalletID == palletID {
			n++
		}
	}
	return n, nil
}

func (tx *Tx) ListAllocationsByOrder(_ context.Context, orderID int64) ([]inventory.Allocation, error) {
	var out []inventory.Allocation
	for _, a := range tx.st.allocations {
		if a.OrderID == orderID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *Tx) DeleteAllocationsByOrder(_ context.Context, orderID int64) error {
	for id, a := range tx.st.allocations {
		if a.OrderID == orderID {
			delete(tx.st.allocations, id)
		}
	}
	return nil
}

// Orders

func (tx *Tx) InsertOrder(_ context.Context, o orders.Order) (int64, error) {
	for _, existing := range tx.st.orders {
		if existing.Number == o.Number {
			return 0, fmt.Errorf("memory: duplicate order number %d", o.Number)
		}
	}
	o.ID = tx.st.id()
	o.Lines = nil
	tx.st.orders[o.ID] = o
	return o.ID, nil
}

func (tx *Tx) InsertLine(_ context.Context, l orders.Line) (int64, error) {
	l.ID = tx.st.id()
	l.Allocations = nil
	tx.st.lines[l.ID] = l
	return l.ID, nil
}

func (tx *Tx) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	o, ok := tx.st.orders[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %d", orders.ErrOrderNotFound, id)
	}
	for _, l := range tx.st.lines {
		if l.OrderID == id {
			o.Lines = append(o.Lines, l)
		}
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].Position < o.Lines[j].Position })
	return o, nil
}

func (tx *Tx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	return tx.GetOrder(ctx, id)
}

func (tx *Tx) UpdateOrderStatus(_ context.Context, id int64, status orders.Status) error {
	o, ok := tx.st.orders[id]
	if !ok {
		return fmt.Errorf("%w: %d", orders.ErrOrderNotFound, id)
	}
	o.Status = status
	o.UpdatedAt = tx.now()
	tx.st.orders[id] = o
	return nil
}

func (tx *Tx) AppendNote(_ context.Context, id int64, note string) error {
	o, ok := tx.st.orders[id]
	if !ok {
		return fmt.Errorf("%w: %d", orders.ErrOrderNotFound, id)
	}
	o.Notes += note
	tx.st.orders[id] = o
	return nil
}

func (tx *Tx) UpdateLineSnapshot(_ context.Context, lineID int64, unitCost decimal.Decimal, supplierID *int64) error {
	l, ok := tx.st.lines[lineID]
	if !ok {
		return fmt.Errorf("%w: %d", orders.ErrLineNotFound, lineID)
	}
	l.UnitCost = &unitCost
	l.SupplierID = supplierID
	tx.st.lines[lineID] = l
	return nil
}

func (tx *Tx) UpdateLineFulfilled(_ context.Context, lineID, fulfilled int64) error {
	l, ok := tx.st.lines[lineID]
	if !ok {
		return fmt.Errorf("%w: %d", orders.ErrLineNotFound, lineID)
	}
	l.Fulfilled = fulfilled
	tx.st.lines[lineID] = l
	return nil
}

func (tx *Tx) DeleteLines(_ context.Context, orderID int64) error {
	for id, l := range tx.st.lines {
		if l.OrderID == orderID {
			delete(tx.st.lines, id)
		}
	}
	return nil
}

func (tx *Tx) DeleteOrder(_ context.Context, orderID int64) error {
	delete(tx.st.orders, orderID)
	return nil
}

// Payments and credits

func (tx *Tx) InsertPayment(_ context.Context, p payments.Payment) (int64, error) {
	p.ID = tx.st.id()
	p.CreatedAt = tx.now()
	tx.st.payments[p.ID] = p
	return p.ID, nil
}

func (tx *Tx) ListPayments(_ context.Context, orderID int64) ([]payments.Payment, error) {
	var out []payments.Payment
	for _, p := range tx.st.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *Tx) InsertCredit(_ context.Context, c payments.Credit) (int64, error) {
	c.ID = tx.st.id()
	c.CreatedAt = tx.now()
	c.UpdatedAt = c.CreatedAt
	tx.st.credits[c.ID] = c
	return c.ID, nil
}

func (tx *Tx) GetCredit(_ context.Context, id int64) (payments.Credit, error) {
	c, ok := tx.st.credits[id]
	if !ok {
		return payments.Credit{}, fmt.Errorf("%w: %d", payments.ErrCreditNotFound, id)
	}
	return c, nil
}

func (tx *Tx) LockCredit(ctx context.Context, id int64) (payments.Credit, error) {
	return tx.GetCredit(ctx, id)
}

func (tx *Tx) ListCredits(_ context.Context, orderID int64) ([]payments.Credit, error) {
	var out []payments.Credit
	for _, c := range tx.st.credits {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *Tx) UpdateCredit(_ context.Context, id int64, remaining decimal.Decimal, status payments.CreditStatus) error {
	c, ok := tx.st.credits[id]
	if !ok {
		return fmt.Errorf("%w: %d", payments.ErrCreditNotFound, id)
	}
	c.Remaining = remaining
	c.Status = status
	c.UpdatedAt = tx.now()
	tx.st.credits[id] = c
	return nil
}

func (tx *Tx) InsertInstallment(_ context.Context, inst payments.Installment) (int64, error) {
	inst.ID = tx.st.id()
	tx.st.installments[inst.ID] = inst
	return inst.ID, nil
}

func (tx *Tx) ListInstallments(_ context.Context, creditID int64) ([]payments.Installment, error) {
	var out []payments.Installment
	for _, inst := range tx.st.installments {
		if inst.CreditID == creditID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *Tx) OrderTotal(_ context.Context, orderID int64) (decimal.Decimal, error) {
	o, ok := tx.st.orders[orderID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", orders.ErrOrderNotFound, orderID)
	}
	return o.Total, nil
}

func (tx *Tx) UpdateOrderPaymentStatus(_ context.Context, orderID int64, status payments.Status) error {
	o, ok := tx.st.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", orders.ErrOrderNotFound, orderID)
	}
	o.PaymentStatus = status
	tx.st.orders[orderID] = o
	return nil
}

func (tx *Tx) DeleteInstallmentsByOrder(_ context.Context, orderID int64) error {
	for id, inst := range tx.st.installments {
		if c, ok := tx.st.credits[inst.CreditID]; ok && c.OrderID == orderID {
			delete(tx.st.installments, id)
		}
	}
	return nil
}

func (tx *Tx) DeleteCreditsByOrder(_ context.Context, orderID int64) error {
	for id, c := range tx.st.credits {
		if c.OrderID == orderID {
			delete(tx.st.credits, id)
		}
	}
	return nil
}

func (tx *Tx) DeletePaymentsByOrder(_ context.Context, orderID int64) error {
	for id, p := range tx.st.payments {
		if p.OrderID == orderID {
			delete(tx.st.payments, id)
		}
	}
	return nil
}

func (tx *Tx) FindIdempotencyKey(_ context.Context, key, module string) (int64, bool, error) {
	id, ok := tx.st.idempotency[idempotencyKey{key, module}]
	return id, ok, nil
}

func (tx *Tx) InsertIdempotencyKey(_ context.Context, key, module string, resourceID int64) error {
	k := idempotencyKey{key, module}
	if _, ok := tx.st.idempotency[k]; ok {
		return fmt.Errorf("%w: %s", shared.ErrIdempotencyConflict, key)
	}
	tx.st.idempotency[k] = resourceID
	return nil
}

func (tx *Tx) DeleteIdempotencyKeys(_ context.Context, module string, resourceID int64) error {
	for k, id := range tx.st.idempotency {
		if k.module == module && id == resourceID {
			delete(tx.st.idempotency, k)
		}
	}
	return nil
}
