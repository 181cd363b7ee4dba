// Package memory is an in-process implementation of the inventory, order and
// payment repositories. Transactions are serialised by one mutex and applied
// copy-on-write, so a failing callback leaves no partial writes.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/payments"
)

type state struct {
	nextID       int64
	pallets      map[int64]inventory.Pallet
	palletSeq    map[int64]int64
	events       map[int64]inventory.Event
	allocations  map[int64]inventory.Allocation
	orders       map[int64]orders.Order
	lines        map[int64]orders.Line
	payments     map[int64]payments.Payment
	credits      map[int64]payments.Credit
	installments map[int64]payments.Installment
	idempotency  map[idempotencyKey]int64
}

type idempotencyKey struct{ key, module string }

func newState() *state {
	return &state{
		pallets:      make(map[int64]inventory.Pallet),
		palletSeq:    make(map[int64]int64),
		events:       make(map[int64]inventory.Event),
		allocations:  make(map[int64]inventory.Allocation),
		orders:       make(map[int64]orders.Order),
		lines:        make(map[int64]orders.Line),
		payments:     make(map[int64]payments.Payment),
		credits:      make(map[int64]payments.Credit),
		installments: make(map[int64]payments.Installment),
		idempotency:  make(map[idempotencyKey]int64),
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		nextID:       s.nextID,
		pallets:      cloneMap(s.pallets),
		palletSeq:    cloneMap(s.palletSeq),
		events:       cloneMap(s.events),
		allocations:  cloneMap(s.allocations),
		orders:       cloneMap(s.orders),
		lines:        cloneMap(s.lines),
		payments:     cloneMap(s.payments),
		credits:      cloneMap(s.credits),
		installments: cloneMap(s.installments),
		idempotency:  cloneMap(s.idempotency),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps every entity in memory.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// WithTx runs fn against a private copy of the state and publishes the copy
// only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &Tx{st: s.st.clone(), now: s.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
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

// Numberer hands out order numbers from an in-process counter.
type Numberer struct {
	n atomic.Int64
}

// Next returns the next number, starting at 1.
func (n *Numberer) Next(context.Context) (int64, error) {
	return n.n.Add(1), nil
}
