package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/payments"
)

func (t *Tx) InsertPayment(ctx context.Context, p payments.Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO payments (order_id, method, amount, reference, actor_id, actor_role)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, p.OrderID, p.Method, p.Amount, p.Reference, p.Actor.ID, p.Actor.Role).Scan(&id)
	return id, err
}

func (t *Tx) ListPayments(ctx context.Context, orderID int64) ([]payments.Payment, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, order_id, method, amount, reference, actor_id, actor_role, created_at
FROM payments WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []payments.Payment
	for rows.Next() {
		var p payments.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Method, &p.Amount, &p.Reference, &p.Actor.ID, &p.Actor.Role, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const creditColumns = `id, order_id, customer_id, original_amount, remaining_amount, status, created_at, updated_at`

func scanCredit(row pgx.Row) (payments.Credit, error) {
	var c payments.Credit
	err := row.Scan(&c.ID, &c.OrderID, &c.CustomerID, &c.Original, &c.Remaining, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (t *Tx) InsertCredit(ctx context.Context, c payments.Credit) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO credits (order_id, customer_id, original_amount, remaining_amount, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id`, c.OrderID, c.CustomerID, c.Original, c.Remaining, c.Status).Scan(&id)
	return id, err
}

func (t *Tx) GetCredit(ctx context.Context, id int64) (payments.Credit, error) {
	c, err := scanCredit(t.tx.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return payments.Credit{}, fmt.Errorf("%w: %d", payments.ErrCreditNotFound, id)
	}
	return c, err
}

func (t *Tx) LockCredit(ctx context.Context, id int64) (payments.Credit, error) {
	c, err := scanCredit(t.tx.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return payments.Credit{}, fmt.Errorf("%w: %d", payments.ErrCreditNotFound, id)
	}
	return c, err
}

func (t *Tx) ListCredits(ctx context.Context, orderID int64) ([]payments.Credit, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+creditColumns+` FROM credits WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []payments.Credit
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *Tx) UpdateCredit(ctx context.Context, id int64, remaining decimal.Decimal, status payments.CreditStatus) error {
	_, err := t.tx.Exec(ctx, `UPDATE credits SET remaining_amount=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, remaining, status)
	return err
}

func (t *Tx) InsertInstallment(ctx context.Context, inst payments.Installment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO credit_installments (credit_id, method, amount, actor_id, actor_role, posted_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, inst.CreditID, inst.Method, inst.Amount, inst.Actor.ID, inst.Actor.Role, inst.PostedAt).Scan(&id)
	return id, err
}

func (t *Tx) ListInstallments(ctx context.Context, creditID int64) ([]payments.Installment, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, credit_id, method, amount, actor_id, actor_role, posted_at
FROM credit_installments WHERE credit_id=$1 ORDER BY id`, creditID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []payments.Installment
	for rows.Next() {
		var i payments.Installment
		if err := rows.Scan(&i.ID, &i.CreditID, &i.Method, &i.Amount, &i.Actor.ID, &i.Actor.Role, &i.PostedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (t *Tx) OrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT total FROM orders WHERE id=$1`, orderID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %d", orders.ErrOrderNotFound, orderID)
	}
	return total, err
}

func (t *Tx) UpdateOrderPaymentStatus(ctx context.Context, orderID int64, status payments.Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET payment_status=$2, updated_at=NOW() WHERE id=$1`, orderID, status)
	return err
}

func (t *Tx) DeleteInstallmentsByOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM credit_installments WHERE credit_id IN (SELECT id FROM credits WHERE order_id=$1)`, orderID)
	return err
}

func (t *Tx) DeleteCreditsByOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM credits WHERE order_id=$1`, orderID)
	return err
}

func (t *Tx) DeletePaymentsByOrder(ctx context.Context, orderID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE order_id=$1`, orderID)
	return err
}
