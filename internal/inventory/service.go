package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Service coordinates pallet operations.
type Service struct {
	store  Store
	ledger *Ledger
	audit  shared.AuditRecorder
	sink   EventSink
	logger *slog.Logger
	detail singleflight.Group
}

// NewService builds Service. audit and sink are optional.
func NewService(store Store, ledger *Ledger, audit shared.AuditRecorder, sink EventSink, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, ledger: ledger, audit: audit, sink: sink, logger: logger}
}

// Ledger exposes the ledger used by the service.
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// Receive creates a pallet and stocks it with a RECEIPT event.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (Pallet, error) {
	if input.ProductID == 0 || input.WarehouseID == 0 {
		return Pallet{}, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return Pallet{}, ErrInvalidQuantity
	}
	if input.UnitCost.IsNegative() || !input.UnitCost.Equal(input.UnitCost.Round(costScale)) {
		return Pallet{}, ErrInvalidUnitCost
	}
	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.ledger.Now()
	}

	var pallet Pallet
	var events []Event
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPallet(ctx, Pallet{
			ProductID:   input.ProductID,
			WarehouseID: input.WarehouseID,
			SupplierID:  input.SupplierID,
			LotCode:     input.LotCode,
			Location:    input.Location,
			ReceivedAt:  receivedAt,
			UnitCost:    input.UnitCost,
			Status:      StatusDepleted,
		})
		if err != nil {
			return fmt.Errorf("inventory: insert pallet: %w", err)
		}
		evt, _, err := s.ledger.Append(ctx, tx, Event{
			PalletID:   id,
			Kind:       KindReceipt,
			Quantity:   input.Quantity,
			Actor:      input.Actor,
			OccurredAt: receivedAt,
		})
		if err != nil {
			return err
		}
		events = []Event{evt}
		pallet, err = tx.GetPallet(ctx, id)
		return err
	})
	if err != nil {
		return Pallet{}, err
	}
	s.committed(ctx, input.Actor, "pallet.receive", pallet.ID, map[string]any{"quantity": input.Quantity}, events)
	return pallet, nil
}

// Post appends a manual movement. RECEIPT and ASSIGNMENT are reserved for
// receiving and the allocation engine.
func (s *Service) Post(ctx context.Context, input PostInput) (Event, error) {
	if !input.Kind.IsValid() || input.Kind == KindReceipt || input.Kind == KindAssignment {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidEventKind, input.Kind)
	}
	if input.Kind != KindAdjustment && input.Quantity < 0 {
		return Event{}, ErrInvalidQuantity
	}
	var stored Event
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		evt, _, err := s.ledger.Append(ctx, tx, Event{
			PalletID:   input.PalletID,
			Kind:       input.Kind,
			Quantity:   input.Quantity,
			Actor:      input.Actor,
			OrderID:    input.OrderID,
			Reason:     input.Reason,
			OccurredAt: input.OccurredAt,
		})
		stored = evt
		return err
	})
	if err != nil {
		return Event{}, err
	}
	s.committed(ctx, input.Actor, "pallet.post", input.PalletID, map[string]any{"kind": input.Kind, "quantity": input.Quantity}, []Event{stored})
	return stored, nil
}

// Adjust posts a signed count correction.
func (s *Service) Adjust(ctx context.Context, palletID, delta int64, reason string, actor shared.Actor) (Event, error) {
	switch {
	case delta > 0:
		return s.Post(ctx, PostInput{PalletID: palletID, Kind: KindAdjustmentPositive, Quantity: delta, Reason: reason, Actor: actor})
	case delta < 0:
		return s.Post(ctx, PostInput{PalletID: palletID, Kind: KindAdjustmentNegative, Quantity: -delta, Reason: reason, Actor: actor})
	default:
		return Event{}, ErrInvalidQuantity
	}
}

// RecordShrinkage posts lost or damaged units.
func (s *Service) RecordShrinkage(ctx context.Context, palletID, qty int64, reason string, actor shared.Actor) (Event, error) {
	if qty <= 0 {
		return Event{}, ErrInvalidQuantity
	}
	return s.Post(ctx, PostInput{PalletID: palletID, Kind: KindShrinkage, Quantity: qty, Reason: reason, Actor: actor})
}

// Block freezes a pallet out of automatic allocation.
func (s *Service) Block(ctx context.Context, palletID int64, reason string, actor shared.Actor) (StatusChange, error) {
	var change StatusChange
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pallet, err := tx.LockPallet(ctx, palletID)
		if err != nil {
			return err
		}
		if pallet.Status == StatusBlocked {
			return ErrPalletBlocked
		}
		change = StatusChange{PalletID: palletID, From: pallet.Status, To: StatusBlocked}
		return tx.SavePalletStatus(ctx, palletID, StatusBlocked)
	})
	if err != nil {
		return StatusChange{}, err
	}
	s.committed(ctx, actor, "pallet.block", palletID, map[string]any{"reason": reason}, nil)
	return change, nil
}

// Unblock releases a blocked pallet and re-derives its status from the ledger.
func (s *Service) Unblock(ctx context.Context, palletID int64, actor shared.Actor) (StatusChange, error) {
	var change StatusChange
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pallet, err := tx.LockPallet(ctx, palletID)
		if err != nil {
			return err
		}
		if pallet.Status != StatusBlocked {
			return ErrPalletNotBlocked
		}
		if err := tx.SavePalletStatus(ctx, palletID, StatusActive); err != nil {
			return err
		}
		change, err = s.ledger.Reevaluate(ctx, tx, palletID)
		change.From = StatusBlocked
		return err
	})
	if err != nil {
		return StatusChange{}, err
	}
	s.committed(ctx, actor, "pallet.unblock", palletID, map[string]any{"status": change.To}, nil)
	return change, nil
}

// Relocate moves a pallet. Pallets with OPEN reservations cannot move.
func (s *Service) Relocate(ctx context.Context, palletID, warehouseID int64, location string, actor shared.Actor) (Pallet, error) {
	if warehouseID == 0 {
		return Pallet{}, fmt.Errorf("%w: warehouse required", shared.ErrValidation)
	}
	var pallet Pallet
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockPallet(ctx, palletID); err != nil {
			return err
		}
		open, err := tx.SumOpenAllocations(ctx, palletID)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: %d units reserved", ErrPalletReserved, open)
		}
		if err := tx.UpdatePalletLocation(ctx, palletID, warehouseID, location); err != nil {
			return err
		}
		pallet, err = tx.GetPallet(ctx, palletID)
		return err
	})
	if err != nil {
		return Pallet{}, err
	}
	s.committed(ctx, actor, "pallet.relocate", palletID, map[string]any{"warehouse_id": warehouseID, "location": location}, nil)
	return pallet, nil
}

// HardDelete removes a pallet and its events. Pallets referenced by any
// allocation must be released through their orders first.
func (s *Service) HardDelete(ctx context.Context, palletID int64, actor shared.Actor) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockPallet(ctx, palletID); err != nil {
			return err
		}
		n, err := tx.CountAllocations(ctx, palletID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %d allocations", ErrPalletInUse, n)
		}
		if err := tx.DeleteEvents(ctx, palletID); err != nil {
			return err
		}
		return tx.DeletePallet(ctx, palletID)
	})
	if err != nil {
		return err
	}
	s.committed(ctx, actor, "pallet.hard_delete", palletID, nil, nil)
	return nil
}

// Detail returns the pallet with its replayed quantities. Concurrent reads of
// the same pallet share one replay.
func (s *Service) Detail(ctx context.Context, palletID int64) (PalletDetail, error) {
	v, err, _ := s.detail.Do(strconv.FormatInt(palletID, 10), func() (any, error) {
		var detail PalletDetail
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			pallet, err := tx.GetPallet(ctx, palletID)
			if err != nil {
				return err
			}
			events, err := tx.ListEvents(ctx, palletID)
			if err != nil {
				return err
			}
			open, err := tx.SumOpenAllocations(ctx, palletID)
			if err != nil {
				return err
			}
			onHand := Replay(events)
			detail = PalletDetail{
				Pallet:   pallet,
				OnHand:   onHand,
				Sellable: Sellable(onHand, open),
				Events:   events,
				Anomaly:  onHand < 0 || pallet.Status != NextStatus(pallet.Status, onHand, Sellable(onHand, open)),
			}
			return nil
		})
		return detail, err
	})
	if err != nil {
		return PalletDetail{}, err
	}
	return v.(PalletDetail), nil
}

// Reconcile re-derives every cached pallet status, one transaction per pallet.
// Pallets that vanish mid-run are skipped.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var ids []int64
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		ids, err = tx.ListPalletIDs(ctx)
		return err
	})
	if err != nil {
		return ReconcileReport{}, err
	}

	report := ReconcileReport{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var change StatusChange
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			var err error
			change, err = s.ledger.Reevaluate(ctx, tx, id)
			return err
		})
		if errors.Is(err, ErrPalletNotFound) {
			continue
		}
		if err != nil {
			return report, fmt.Errorf("inventory: reconcile pallet %d: %w", id, err)
		}
		report.Checked++
		if change.Changed() {
			report.Corrected = append(report.Corrected, change)
		}
		if change.OnHand < 0 {
			report.Negative = append(report.Negative, id)
			s.logger.Warn("negative pallet quantity", slog.Int64("pallet_id", id), slog.Int64("on_hand", change.OnHand))
		}
	}
	return report, nil
}

func (s *Service) committed(ctx context.Context, actor shared.Actor, action string, palletID int64, meta map[string]any, events []Event) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   action,
			Entity:   "pallet",
			EntityID: strconv.FormatInt(palletID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.sink != nil && len(events) > 0 {
		if err := s.sink.LedgerEventsCommitted(ctx, events); err != nil {
			s.logger.Warn("publish ledger events failed", slog.Int64("pallet_id", palletID), slog.Any("error", err))
		}
	}
}
