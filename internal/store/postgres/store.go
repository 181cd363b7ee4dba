// Package postgres implements the inventory, order and payment repositories
// on PostgreSQL. Every transaction runs at RepeatableRead and is replayed on
// serialisation failures.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/payments"
	"github.com/dos-laredos/dos-laredos/internal/platform/db"
)

// Store persists fulfillment data in PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	retry db.RetryPolicy
}

// New constructs Store.
func New(pool *pgxpool.Pool, retry db.RetryPolicy) *Store {
	return &Store{pool: pool, retry: retry}
}

// WithTx runs fn in a retried RepeatableRead transaction. fn may run more than once.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	return db.RunInTx(ctx, s.pool, s.retry, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{tx: tx})
	})
}

// Inventory adapts the store to inventory.Store.
func (s *Store) Inventory() inventory.Store {
	return inventoryStore{s}
}

// Orders adapts the store to orders.Store.
func (s *Store) Orders() orders.Store {
	return ordersStore{s}
}

// Payments adapts the store to payments.Store.
func (s *Store) Payments() payments.Store {
	return paymentsStore{s}
}

type inventoryStore struct{ s *Store }

func (a inventoryStore) WithTx(ctx context.Context, fn func(context.Context, inventory.TxRepository) error) error {
	return a.s.WithTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type ordersStore struct{ s *Store }

func (a ordersStore) WithTx(ctx context.Context, fn func(context.Context, orders.TxRepository) error) error {
	return a.s.WithTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type paymentsStore struct{ s *Store }

func (a paymentsStore) WithTx(ctx context.Context, fn func(context.Context, payments.TxRepository) error) error {
	return a.s.WithTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

// Sequence issues order numbers from the order_number_seq sequence.
type Sequence struct {
	pool *pgxpool.Pool
}

// NewSequence constructs Sequence.
func NewSequence(pool *pgxpool.Pool) *Sequence {
	return &Sequence{pool: pool}
}

// Next returns nextval of the order number sequence.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store/postgres: next order number: %w", err)
	}
	return n, nil
}
