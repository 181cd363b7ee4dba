package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/shared"
	"github.com/dos-laredos/dos-laredos/internal/store/memory"
)

var clerk = shared.Actor{ID: 7, Role: "warehouse"}

type recordingAudit struct {
	mu      sync.Mutex
	actions []string
}

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, log.Action)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []inventory.Event
}

func (r *recordingSink) LedgerEventsCommitted(_ context.Context, events []inventory.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

type fixture struct {
	store   *memory.Store
	service *inventory.Service
	audit   *recordingAudit
	sink    *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	audit := &recordingAudit{}
	sink := &recordingSink{}
	ledger := inventory.NewLedger(nil, nil)
	return &fixture{
		store:   store,
		service: inventory.NewService(store.Inventory(), ledger, audit, sink, nil),
		audit:   audit,
		sink:    sink,
	}
}

func (f *fixture) receive(t *testing.T, qty int64) inventory.Pallet {
	t.Helper()
	pallet, err := f.service.Receive(context.Background(), inventory.ReceiveInput{
		ProductID:   1,
		WarehouseID: 1,
		LotCode:     "L-1",
		Location:    "A-01",
		ReceivedAt:  time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		UnitCost:    decimal.NewFromInt(12),
		Quantity:    qty,
		Actor:       clerk,
	})
	require.NoError(t, err)
	return pallet
}

func (f *fixture) openAllocation(t *testing.T, palletID, qty int64) {
	t.Helper()
	err := f.store.WithTx(context.Background(), func(ctx context.Context, tx *memory.Tx) error {
		_, err := tx.InsertAllocation(ctx, inventory.Allocation{
			OrderID: 1, OrderLineID: 1, PalletID: palletID, Quantity: qty, Status: inventory.AllocationOpen,
		})
		return err
	})
	require.NoError(t, err)
}

func TestReceiveStocksPallet(t *testing.T) {
	f := newFixture(t)
	pallet := f.receive(t, 100)

	require.Equal(t, inventory.StatusActive, pallet.Status)
	detail, err := f.service.Detail(context.Background(), pallet.ID)
	require.NoError(t, err)
	require.EqualValues(t, 100, detail.OnHand)
	require.EqualValues(t, 100, detail.Sellable)
	require.Len(t, detail.Events, 1)
	require.Equal(t, inventory.KindReceipt, detail.Events[0].Kind)
	require.True(t, detail.Events[0].OccurredAt.Equal(pallet.ReceivedAt))
	require.False(t, detail.Anomaly)
	require.Contains(t, f.audit.actions, "pallet.receive")
	require.Len(t, f.sink.events, 1)
}

func TestReceiveRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Receive(ctx, inventory.ReceiveInput{ProductID: 1, WarehouseID: 1, Quantity: 0})
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	_, err = f.service.Receive(ctx, inventory.ReceiveInput{ProductID: 1, WarehouseID: 1, Quantity: 3, UnitCost: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, inventory.ErrInvalidUnitCost)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.service.Receive(ctx, inventory.ReceiveInput{ProductID: 1, WarehouseID: 1, Quantity: 3, UnitCost: decimal.RequireFromString("1.23456")})
	require.ErrorIs(t, err, inventory.ErrInvalidUnitCost)

	pallet, err := f.service.Receive(ctx, inventory.ReceiveInput{ProductID: 1, WarehouseID: 1, Quantity: 3, UnitCost: decimal.RequireFromString("1.2345")})
	require.NoError(t, err)
	require.True(t, pallet.UnitCost.Equal(decimal.RequireFromString("1.2345")))
}

func TestPostMovesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pallet := f.receive(t, 10)

	_, err := f.service.RecordShrinkage(ctx, pallet.ID, 4, "crushed", clerk)
	require.NoError(t, err)
	_, err = f.service.Post(ctx, inventory.PostInput{PalletID: pallet.ID, Kind: inventory.KindPick, Quantity: 6, Actor: clerk})
	require.NoError(t, err)

	detail, err := f.service.Detail(ctx, pallet.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, detail.OnHand)
	require.Equal(t, inventory.StatusDepleted, detail.Pallet.Status)

	_, err = f.service.Adjust(ctx, pallet.ID, 3, "recount", clerk)
	require.NoError(t, err)
	detail, err = f.service.Detail(ctx, pallet.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, detail.OnHand)
	require.Equal(t, inventory.StatusActive, detail.Pallet.Status)
}

func TestPostRejectsReservedKinds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pallet := f.receive(t, 10)

	for _, kind := range []inventory.EventKind{inventory.KindReceipt, inventory.KindAssignment, "BOGUS"} {
		_, err := f.service.Post(ctx, inventory.PostInput{PalletID: pallet.ID, Kind: kind, Quantity: 1, Actor: clerk})
		require.ErrorIs(t, err, inventory.ErrInvalidEventKind, string(kind))
	}
	_, err := f.service.Post(ctx, inventory.PostInput{PalletID: pallet.ID, Kind: inventory.KindPick, Quantity: -1, Actor: clerk})
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	_, err = f.service.Adjust(ctx, pallet.ID, 0, "noop", clerk)
	require.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestPostToMissingPallet(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Post(context.Background(), inventory.PostInput{PalletID: 404, Kind: inventory.KindPick, Quantity: 1})
	require.ErrorIs(t, err, inventory.ErrPalletNotFound)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBlockAndUnblock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pallet := f.receive(t, 10)

	change, err := f.service.Block(ctx, pallet.ID, "quality hold", clerk)
	require.NoError(t, err)
	require.Equal(t, inventory.StatusBlocked, change.To)

	_, err = f.service.Block(ctx, pallet.ID, "again", clerk)
	require.ErrorIs(t, err, inventory.ErrPalletBlocked)

	// Ledger movements do not release a block.
	_, err = f.service.RecordShrinkage(ctx, pallet.ID, 10, "spoiled", clerk)
	require.NoError(t, err)
	detail, err := f.service.Detail(ctx, pallet.ID)
	require.NoError(t, err)
	require.Equal(t, inventory.StatusBlocked, detail.Pallet.Status)

	change, err = f.service.Unblock(ctx, pallet.ID, clerk)
	require.NoError(t, err)
	require.Equal(t, inventory.StatusBlocked, change.From)
	require.Equal(t, inventory.StatusDepleted, change.To)

	_, err = f.service.Unblock(ctx, pallet.ID, clerk)
	require.ErrorIs(t, err, inventory.ErrPalletNotBlocked)
}

func TestOpenAllocationReservesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pallet := f.receive(t, 10)
	f.openAllocation(t, pallet.ID, 10)

	_, err := f.service.Relocate(ctx, pallet.ID, 2, "B-07", clerk)
	require.ErrorIs(t, err, inventory.ErrPalletReserved)

	err = f.service.HardDelete(ctx, pallet.ID, clerk)
	require.ErrorIs(t, err, inventory.ErrPalletInUse)

	report, err := f.service.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Checked)
	require.Len(t, report.Corrected, 1)
	require.Equal(t, inventory.StatusReserved, report.Corrected[0].To)
	require.EqualValues(t, 0, report.Corrected[0].Sellable)
}

func TestRelocateAndHardDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pallet := f.receive(t, 10)

	moved, err := f.service.Relocate(ctx, pallet.ID, 2, "B-07", clerk)
	require.NoError(t, err)
	require.EqualValues(t, 2, moved.WarehouseID)
	require.Equal(t, "B-07", moved.Location)
	require.Greater(t, moved.Version, pallet.Version)

	require.NoError(t, f.service.HardDelete(ctx, pallet.ID, clerk))
	_, err = f.service.Detail(ctx, pallet.ID)
	require.ErrorIs(t, err, inventory.ErrPalletNotFound)
}

func TestReconcileFlagsNegativeAndDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	healthy := f.receive(t, 10)
	short := f.receive(t, 5)

	_, err := f.service.Post(ctx, inventory.PostInput{PalletID: short.ID, Kind: inventory.KindPick, Quantity: 8, Actor: clerk})
	require.NoError(t, err)
	detail, err := f.service.Detail(ctx, short.ID)
	require.NoError(t, err)
	require.EqualValues(t, -3, detail.OnHand)
	require.True(t, detail.Anomaly)

	err = f.store.WithTx(ctx, func(ctx context.Context, tx *memory.Tx) error {
		return tx.SavePalletStatus(ctx, healthy.ID, inventory.StatusDepleted)
	})
	require.NoError(t, err)

	report, err := f.service.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.Checked)
	require.Equal(t, []int64{short.ID}, report.Negative)
	require.Len(t, report.Corrected, 1)
	require.Equal(t, healthy.ID, report.Corrected[0].PalletID)
	require.Equal(t, inventory.StatusActive, report.Corrected[0].To)
}

func TestSequenceIsPerPallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.receive(t, 10)
	b := f.receive(t, 10)

	evt, err := f.service.Post(ctx, inventory.PostInput{PalletID: a.ID, Kind: inventory.KindPick, Quantity: 1, Actor: clerk})
	require.NoError(t, err)
	require.EqualValues(t, 2, evt.Seq)
	evt, err = f.service.Post(ctx, inventory.PostInput{PalletID: b.ID, Kind: inventory.KindPick, Quantity: 1, Actor: clerk})
	require.NoError(t, err)
	require.EqualValues(t, 2, evt.Seq)
}
