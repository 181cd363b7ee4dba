package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
)

// Tx is one database transaction. It satisfies orders.TxRepository and with
// it the inventory and payments ports.
type Tx struct {
	tx pgx.Tx
}

var _ orders.TxRepository = (*Tx)(nil)

const palletColumns = `id, product_id, warehouse_id, supplier_id, lot_code, location, received_at, unit_cost, status, version, created_at, updated_at`

func scanPallet(row pgx.Row) (inventory.Pallet, error) {
	var p inventory.Pallet
	err := row.Scan(&p.ID, &p.ProductID, &p.WarehouseID, &p.SupplierID, &p.LotCode, &p.Location,
		&p.ReceivedAt, &p.UnitCost, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *Tx) InsertPallet(ctx context.Context, p inventory.Pallet) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO pallets (product_id, warehouse_id, supplier_id, lot_code, location, received_at, unit_cost, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.ProductID, p.WarehouseID, p.SupplierID, p.LotCode, p.Location, p.ReceivedAt, p.UnitCost, p.Status).Scan(&id)
	return id, err
}

func (t *Tx) GetPallet(ctx context.Context, id int64) (inventory.Pallet, error) {
	p, err := scanPallet(t.tx.QueryRow(ctx, `SELECT `+palletColumns+` FROM pallets WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Pallet{}, fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	return p, err
}

func (t *Tx) LockPallet(ctx context.Context, id int64) (inventory.Pallet, error) {
	p, err := scanPallet(t.tx.QueryRow(ctx, `SELECT `+palletColumns+` FROM pallets WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Pallet{}, fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	return p, err
}

func (t *Tx) SavePalletStatus(ctx context.Context, id int64, status inventory.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE pallets SET status=$2, version=version+1, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	return nil
}

func (t *Tx) UpdatePalletLocation(ctx context.Context, id, warehouseID int64, location string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE pallets SET warehouse_id=$2, location=$3, version=version+1, updated_at=NOW() WHERE id=$1`, id, warehouseID, location)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, id)
	}
	return nil
}

func (t *Tx) ListPalletIDs(ctx context.Context) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `SELECT id FROM pallets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *Tx) ListCandidatePallets(ctx context.Context, warehouseID, productID int64) ([]inventory.Pallet, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+palletColumns+` FROM pallets
WHERE warehouse_id=$1 AND product_id=$2 AND status='ACTIVE'
ORDER BY received_at ASC, id ASC`, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []inventory.Pallet
	for rows.Next() {
		p, err := scanPallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *Tx) DeletePallet(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM pallets WHERE id=$1`, id)
	return err
}

func (t *Tx) InsertEvent(ctx context.Context, evt inventory.Event) (inventory.Event, error) {
	if err := t.tx.QueryRow(ctx, `UPDATE pallets SET next_seq=next_seq+1 WHERE id=$1 RETURNING next_seq`, evt.PalletID).Scan(&evt.Seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Event{}, fmt.Errorf("%w: %d", inventory.ErrPalletNotFound, evt.PalletID)
		}
		return inventory.Event{}, err
	}
	err := t.tx.QueryRow(ctx, `INSERT INTO ledger_events (pallet_id, warehouse_id, seq, kind, quantity, actor_id, actor_role, order_id, reason, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		evt.PalletID, evt.WarehouseID, evt.Seq, evt.Kind, evt.Quantity, evt.Actor.ID, evt.Actor.Role, evt.OrderID, evt.Reason, evt.OccurredAt).Scan(&evt.ID)
	if err != nil {
		return inventory.Event{}, err
	}
	return evt, nil
}

func (t *Tx) ListEvents(ctx context.Context, palletID int64) ([]inventory.Event, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, pallet_id, warehouse_id, seq, kind, quantity, actor_id, actor_role, order_id, reason, occurred_at
FROM ledger_events WHERE pallet_id=$1 ORDER BY occurred_at ASC, seq ASC`, palletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []inventory.Event
	for rows.Next() {
		var e inventory.Event
		if err := rows.Scan(&e.ID, &e.PalletID, &e.WarehouseID, &e.Seq, &e.Kind, &e.Quantity,
			&e.Actor.ID, &e.Actor.Role, &e.OrderID, &e.Reason, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *Tx) DeleteEvents(ctx context.Context, palletID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM ledger_events WHERE pallet_id=$1`, palletID)
	return err
}

func (t *Tx) DeleteEventsByOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM ledger_events WHERE order_id=$1`, orderID)
	return err
}

const allocationColumns = `id, order_id, order_line_id, pallet_id, quantity, status, location, created_at, updated_at`

func scanAllocation(row pgx.Row) (inventory.Allocation, error) {
	var a inventory.Allocation
	err := row.Scan(&a.ID, &a.OrderID, &a.OrderLineID, &a.PalletID, &a.Quantity, &a.Status, &a.Location, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (t *Tx) InsertAllocation(ctx context.Context, a inventory.Allocation) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO allocations (order_id, order_line_id, pallet_id, quantity, status, location)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, a.OrderID, a.OrderLineID, a.PalletID, a.Quantity, a.Status, a.Location).Scan(&id)
	return id, err
}

func (t *Tx) GetAllocation(ctx context.Context, id int64) (inventory.Allocation, error) {
	a, err := scanAllocation(t.tx.QueryRow(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.Allocation{}, fmt.Errorf("%w: %d", inventory.ErrAllocationMissing, id)
	}
	return a, err
}

func (t *Tx) UpdateAllocationStatus(ctx context.Context, id int64, status inventory.AllocationStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE allocations SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return err
}

func (t *Tx) SumOpenAllocations(ctx context.Context, palletID int64) (int64, error) {
	var sum int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0)::BIGINT FROM allocations WHERE pallet_id=$1 AND status='OPEN'`, palletID).Scan(&sum)
	return sum, err
}

func (t *Tx) CountAllocations(ctx context.Context, palletID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM allocations WHERE pallet_id=$1`, palletID).Scan(&n)
	return n, err
}

func (t *Tx) ListAllocationsByOrder(ctx context.Context, orderID int64) ([]inventory.Allocation, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+allocationColumns+` FROM allocations WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []inventory.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *Tx) DeleteAllocationsByOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM allocations WHERE order_id=$1`, orderID)
	return err
}
