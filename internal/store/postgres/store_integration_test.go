//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/catalog"
	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
	"github.com/dos-laredos/dos-laredos/internal/platform/db"
	"github.com/dos-laredos/dos-laredos/internal/shared"
	"github.com/dos-laredos/dos-laredos/internal/store/postgres"
	"github.com/dos-laredos/dos-laredos/migrations"
)

var clerk = shared.Actor{ID: 1, Role: "supervisor"}

// TestConcurrentAutoAllocateNeverOverbooks races FIFO allocation across
// orders against one pallet with no distributed lock, so only row locks and
// serialisable retries keep the reservations within stock.
func TestConcurrentAutoAllocateNeverOverbooks(t *testing.T) {
	dsn := os.Getenv("LAREDOS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LAREDOS_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.New(ctx, dsn, 16)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = migrations.Apply(ctx, pool)
	require.NoError(t, err)

	// Unique ids keep reruns against the same database independent.
	product := time.Now().UnixNano() % 1_000_000_000
	warehouse := product + 1

	store := postgres.New(pool, db.DefaultRetryPolicy)
	ledger := inventory.NewLedger(nil, nil)
	cat := catalog.Static{Products: map[int64]catalog.Product{product: {ID: product, SKU: "RACE", Name: "Race tile"}}}
	inv := inventory.NewService(store.Inventory(), ledger, nil, nil, nil)
	svc := orders.NewService(store.Orders(), ledger, orders.NewAllocator(ledger, cat), postgres.NewSequence(pool), orders.ServiceConfig{}, nil)

	const stock, perOrder, workers = 10, 3, 8
	pallet, err := inv.Receive(ctx, inventory.ReceiveInput{
		ProductID:   product,
		WarehouseID: warehouse,
		Location:    "R-1",
		ReceivedAt:  time.Now().UTC(),
		UnitCost:    decimal.NewFromInt(4),
		Quantity:    stock,
		Actor:       clerk,
	})
	require.NoError(t, err)

	ids := make([]int64, workers)
	for i := range ids {
		detail, err := svc.Create(ctx, orders.CreateInput{
			CustomerID:   int64(100 + i),
			WarehouseID:  warehouse,
			DeliveryMode: orders.DeliveryPickup,
			Lines:        []orders.LineInput{{ProductID: product, Quantity: perOrder, UnitPrice: decimal.NewFromInt(10)}},
			Actor:        clerk,
		})
		require.NoError(t, err)
		ids[i] = detail.Order.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.AutoAllocate(ctx, id, clerk)
		}()
	}
	wg.Wait()

	var reserved int64
	for i, id := range ids {
		if errs[i] != nil {
			require.True(t, errors.Is(errs[i], shared.ErrConflict), "order %d: %v", id, errs[i])
			continue
		}
		detail, err := svc.Get(ctx, id)
		require.NoError(t, err)
		for _, line := range detail.Order.Lines {
			for _, a := range line.Allocations {
				if a.Status == inventory.AllocationOpen {
					reserved += a.Quantity
				}
			}
		}
	}

	after, err := inv.Detail(ctx, pallet.ID)
	require.NoError(t, err)
	require.EqualValues(t, stock, after.OnHand)
	require.LessOrEqual(t, reserved, int64(stock))
	require.EqualValues(t, stock-reserved, after.Sellable)
	require.GreaterOrEqual(t, after.Sellable, int64(0))
}
