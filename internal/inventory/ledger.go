package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Replay folds events into a quantity, ordering by occurrence time and
// breaking ties with the per-pallet sequence. The input slice is not modified.
func Replay(events []Event) int64 {
	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].OccurredAt.Equal(ordered[j].OccurredAt) {
			return ordered[i].OccurredAt.Before(ordered[j].OccurredAt)
		}
		return ordered[i].Seq < ordered[j].Seq
	})
	var qty int64
	for _, evt := range ordered {
		qty += evt.Kind.Delta(evt.Quantity)
	}
	return qty
}

// Sellable subtracts open reservations from the on-hand quantity, floored at zero.
func Sellable(onHand, open int64) int64 {
	if sellable := onHand - open; sellable > 0 {
		return sellable
	}
	return 0
}

// Ledger is the only writer of pallet events. Every method runs inside the
// caller's transaction.
type Ledger struct {
	now     func() time.Time
	metrics Metrics
}

// NewLedger constructs Ledger. A nil clock defaults to UTC wall time.
func NewLedger(now func() time.Time, metrics Metrics) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{now: now, metrics: metrics}
}

// Now returns the ledger clock.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Append writes evt and re-evaluates the pallet status. Only the kind is
// validated; a resulting negative quantity is an anomaly for reconciliation,
// not a rejected write.
func (l *Ledger) Append(ctx context.Context, tx TxRepository, evt Event) (Event, StatusChange, error) {
	if !evt.Kind.IsValid() {
		return Event{}, StatusChange{}, fmt.Errorf("%w: %q", ErrInvalidEventKind, evt.Kind)
	}
	pallet, err := tx.LockPallet(ctx, evt.PalletID)
	if err != nil {
		return Event{}, StatusChange{}, err
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = l.now()
	}
	if evt.WarehouseID == 0 {
		evt.WarehouseID = pallet.WarehouseID
	}
	stored, err := tx.InsertEvent(ctx, evt)
	if err != nil {
		return Event{}, StatusChange{}, fmt.Errorf("inventory: insert event: %w", err)
	}
	if l.metrics != nil {
		l.metrics.ObserveLedgerEvent(string(stored.Kind))
	}
	change, err := l.evaluate(ctx, tx, pallet)
	if err != nil {
		return Event{}, StatusChange{}, err
	}
	return stored, change, nil
}

// CurrentQuantity replays every event of the pallet.
func (l *Ledger) CurrentQuantity(ctx context.Context, tx TxRepository, palletID int64) (int64, error) {
	events, err := tx.ListEvents(ctx, palletID)
	if err != nil {
		return 0, fmt.Errorf("inventory: list events: %w", err)
	}
	return Replay(events), nil
}

// SellableQuantity is the current quantity minus OPEN allocations, never negative.
func (l *Ledger) SellableQuantity(ctx context.Context, tx TxRepository, palletID int64) (int64, error) {
	onHand, err := l.CurrentQuantity(ctx, tx, palletID)
	if err != nil {
		return 0, err
	}
	open, err := tx.SumOpenAllocations(ctx, palletID)
	if err != nil {
		return 0, fmt.Errorf("inventory: sum open allocations: %w", err)
	}
	return Sellable(onHand, open), nil
}

// Reevaluate locks the pallet and stores the status derived from the ledger
// and its OPEN allocations. Callers invoke it after changing an allocation.
func (l *Ledger) Reevaluate(ctx context.Context, tx TxRepository, palletID int64) (StatusChange, error) {
	pallet, err := tx.LockPallet(ctx, palletID)
	if err != nil {
		return StatusChange{}, err
	}
	return l.evaluate(ctx, tx, pallet)
}

func (l *Ledger) evaluate(ctx context.Context, tx TxRepository, pallet Pallet) (StatusChange, error) {
	onHand, err := l.CurrentQuantity(ctx, tx, pallet.ID)
	if err != nil {
		return StatusChange{}, err
	}
	open, err := tx.SumOpenAllocations(ctx, pallet.ID)
	if err != nil {
		return StatusChange{}, fmt.Errorf("inventory: sum open allocations: %w", err)
	}
	sellable := Sellable(onHand, open)
	change := StatusChange{
		PalletID: pallet.ID,
		From:     pallet.Status,
		To:       NextStatus(pallet.Status, onHand, sellable),
		OnHand:   onHand,
		Sellable: sellable,
	}
	if err := tx.SavePalletStatus(ctx, pallet.ID, change.To); err != nil {
		return StatusChange{}, fmt.Errorf("inventory: save pallet status: %w", err)
	}
	if change.Changed() && l.metrics != nil {
		l.metrics.ObservePalletStatus(string(change.From), string(change.To))
	}
	return change, nil
}
