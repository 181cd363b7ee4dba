package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/orders"
)

const orderColumns = `id, number, customer_id, warehouse_id, delivery_mode, address, status, payment_status,
subtotal, discount, total, notes, created_by, created_role, created_at, updated_at`

func (t *Tx) InsertOrder(ctx context.Context, o orders.Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO orders (number, customer_id, warehouse_id, delivery_mode, address, status, payment_status,
subtotal, discount, total, notes, created_by, created_role, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14) RETURNING id`,
		o.Number, o.CustomerID, o.WarehouseID, o.DeliveryMode, o.Address, o.Status, o.PaymentStatus,
		o.Subtotal, o.Discount, o.Total, o.Notes, o.CreatedBy.ID, o.CreatedBy.Role, o.CreatedAt).Scan(&id)
	return id, err
}

func (t *Tx) InsertLine(ctx context.Context, l orders.Line) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO order_lines (order_id, position, product_id, requested, fulfilled, unit_price)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, l.OrderID, l.Position, l.ProductID, l.Requested, l.Fulfilled, l.UnitPrice).Scan(&id)
	return id, err
}

func (t *Tx) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	return t.loadOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (t *Tx) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	return t.loadOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (t *Tx) loadOrder(ctx context.Context, query string, id int64) (orders.Order, error) {
	var o orders.Order
	err := t.tx.QueryRow(ctx, query, id).Scan(&o.ID, &o.Number, &o.CustomerID, &o.WarehouseID, &o.DeliveryMode, &o.Address,
		&o.Status, &o.PaymentStatus, &o.Subtotal, &o.Discount, &o.Total, &o.Notes, &o.CreatedBy.ID, &o.CreatedBy.Role,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, fmt.Errorf("%w: %d", orders.ErrOrderNotFound, id)
	}
	if err != nil {
		return orders.Order{}, err
	}

	rows, err := t.tx.Query(ctx, `SELECT id, order_id, position, product_id, requested, fulfilled, unit_price, unit_cost, supplier_id
FROM order_lines WHERE order_id=$1 ORDER BY position`, id)
	if err != nil {
		return orders.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l orders.Line
		var cost decimal.NullDecimal
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Position, &l.ProductID, &l.Requested, &l.Fulfilled, &l.UnitPrice, &cost, &l.SupplierID); err != nil {
			return orders.Order{}, err
		}
		if cost.Valid {
			l.UnitCost = &cost.Decimal
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (t *Tx) UpdateOrderStatus(ctx context.Context, id int64, status orders.Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", orders.ErrOrderNotFound, id)
	}
	return nil
}

func (t *Tx) AppendNote(ctx context.Context, id int64, note string) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET notes=notes || $2, updated_at=NOW() WHERE id=$1`, id, note)
	return err
}

func (t *Tx) UpdateLineSnapshot(ctx context.Context, lineID int64, unitCost decimal.Decimal, supplierID *int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE order_lines SET unit_cost=$2, supplier_id=$3 WHERE id=$1`, lineID, unitCost, supplierID)
	return err
}

func (t *Tx) UpdateLineFulfilled(ctx context.Context, lineID, fulfilled int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE order_lines SET fulfilled=$2 WHERE id=$1`, lineID, fulfilled)
	return err
}

func (t *Tx) DeleteLines(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM order_lines WHERE order_id=$1`, orderID)
	return err
}

func (t *Tx) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	return err
}
