package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/payments"
	"github.com/dos-laredos/dos-laredos/internal/shared"
)

const idempotencyModule = "orders.create"

// Service coordinates the order lifecycle.
type Service struct {
	store     Store
	allocator *Allocator
	ledger    *inventory.Ledger
	numberer  Numberer
	locker    shared.Locker
	lockTTL   time.Duration
	audit     shared.AuditRecorder
	sink      EventSink
	metrics   Metrics
	logger    *slog.Logger
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Locker  shared.Locker
	LockTTL time.Duration
	Audit   shared.AuditRecorder
	Sink    EventSink
	Metrics Metrics
}

// NewService builds Service.
func NewService(store Store, ledger *inventory.Ledger, allocator *Allocator, numberer Numberer, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		allocator: allocator,
		ledger:    ledger,
		numberer:  numberer,
		locker:    cfg.Locker,
		lockTTL:   cfg.LockTTL,
		audit:     cfg.Audit,
		sink:      cfg.Sink,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// outbox collects what a committed operation must announce.
type outbox struct {
	events  []inventory.Event
	changes []StatusChange
}

func (o *outbox) reset() {
	o.events = nil
	o.changes = nil
}

// Create records a new order with its payments and credits. Lines carrying
// manual allocations are booked immediately and the order starts in
// SENT_TO_WAREHOUSE. A repeated idempotency key returns the order the key was
// first bound to, marked Replayed.
func (s *Service) Create(ctx context.Context, input CreateInput) (Detail, error) {
	if len(input.Lines) == 0 {
		return Detail{}, fmt.Errorf("%w: order requires at least one line", shared.ErrValidation)
	}
	subtotal := decimal.Zero
	manual := false
	for i, line := range input.Lines {
		if line.Quantity <= 0 {
			return Detail{}, fmt.Errorf("%w: line %d: %d", inventory.ErrInvalidQuantity, i, line.Quantity)
		}
		if line.UnitPrice.IsNegative() || !payments.IsCents(line.UnitPrice) {
			return Detail{}, fmt.Errorf("%w: line %d", ErrInvalidPrice, i)
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
		for _, req := range line.Allocations {
			if req.Quantity > 0 {
				manual = true
			}
		}
	}
	if err := ValidateManual(input.Lines); err != nil {
		return Detail{}, err
	}
	if input.Discount.IsNegative() || !payments.IsCents(input.Discount) || input.Discount.GreaterThan(subtotal) {
		return Detail{}, ErrInvalidDiscount
	}
	total := subtotal.Sub(input.Discount)
	preview, err := payments.Reconcile(0, input.CustomerID, total, input.Payments, input.Actor)
	if err != nil {
		return Detail{}, err
	}

	key, err := shared.ParseIdempotencyKey(input.IdempotencyKey)
	if err != nil {
		return Detail{}, err
	}
	if key != "" {
		if detail, ok, err := s.replay(ctx, key); err != nil || ok {
			return detail, err
		}
	}

	number, err := s.numberer.Next(ctx)
	if err != nil {
		return Detail{}, fmt.Errorf("orders: next number: %w", err)
	}

	var order Order
	var plan payments.Plan
	var out outbox
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		now := s.ledger.Now()
		order = Order{
			Number:        number,
			CustomerID:    input.CustomerID,
			WarehouseID:   input.WarehouseID,
			DeliveryMode:  input.DeliveryMode,
			Address:       input.Address,
			Status:        StatusCreated,
			PaymentStatus: preview.Status,
			Subtotal:      subtotal,
			Discount:      input.Discount,
			Total:         total,
			Notes:         noteLine(now, input.Actor, "created", ""),
			CreatedBy:     input.Actor,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("orders: insert order: %w", err)
		}
		order.ID = id
		if key != "" {
			if err := tx.InsertIdempotencyKey(ctx, key, idempotencyModule, order.ID); err != nil {
				return err
			}
		}

		for i, in := range input.Lines {
			line := Line{
				OrderID:   order.ID,
				Position:  i + 1,
				ProductID: in.ProductID,
				Requested: in.Quantity,
				UnitPrice: in.UnitPrice,
			}
			if line.ID, err = tx.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("orders: insert line: %w", err)
			}
			order.Lines = append(order.Lines, line)
		}

		if manual {
			for i := range order.Lines {
				events, err := s.allocator.Manual(ctx, tx, &order, &order.Lines[i], input.Lines[i].Allocations, input.Actor)
				if err != nil {
					return err
				}
				out.events = append(out.events, events...)
			}
			change, err := Transition(ctx, tx, &order, StatusSentToWarehouse, input.Actor, "manual allocation", now)
			if err != nil {
				return err
			}
			out.changes = append(out.changes, change)
		}

		plan, err = payments.Reconcile(order.ID, order.CustomerID, total, input.Payments, input.Actor)
		if err != nil {
			return err
		}
		return payments.Persist(ctx, tx, &plan)
	})
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		// A concurrent request committed the key first.
		if detail, ok, rerr := s.replay(ctx, key); rerr == nil && ok {
			return detail, nil
		}
	}
	if err != nil {
		return Detail{}, err
	}

	if manual && s.metrics != nil {
		s.metrics.ObserveAllocation("manual", string(OutcomeComplete), countAllocations(order), 0)
	}
	s.committed(ctx, input.Actor, "order.create", order.ID, map[string]any{"number": order.Label(), "payment_status": plan.Status}, out)

	money := payments.OrderMoney{Payments: plan.Payments}
	for _, c := range plan.Credits {
		money.Credits = append(money.Credits, payments.CreditDetail{Credit: c})
	}
	return Detail{Order: order, Label: order.Label(), Money: money}, nil
}

// AutoAllocate reserves pallets FIFO for an order still in CREATED. The order
// moves to SENT_TO_WAREHOUSE, or IN_REVIEW when any line falls short.
func (s *Service) AutoAllocate(ctx context.Context, orderID int64, actor shared.Actor) (AllocationResult, error) {
	var result AllocationResult
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusCreated {
			return &EligibilityError{OrderID: orderID, Operation: "automatic allocation", Status: order.Status}
		}
		res, events, err := s.allocator.Auto(ctx, tx, &order, actor)
		if err != nil {
			return err
		}
		out.events = events

		target, note := StatusSentToWarehouse, "all lines allocated"
		if res.Outcome == OutcomePartial {
			target, note = StatusInReview, fmt.Sprintf("shortfall on %d line(s)", len(res.Shortfalls))
		}
		change, err := Transition(ctx, tx, &order, target, actor, note, s.ledger.Now())
		if err != nil {
			return err
		}
		out.changes = append(out.changes, change)
		res.Status = order.Status
		result = res
		return nil
	})
	if err != nil {
		return AllocationResult{}, err
	}

	if s.metrics != nil {
		var short int64
		for _, sf := range result.Shortfalls {
			short += sf.Shortfall
		}
		s.metrics.ObserveAllocation("auto", string(result.Outcome), result.Created, short)
	}
	s.committed(ctx, actor, "order.auto_allocate", orderID, map[string]any{"created": result.Created, "outcome": result.Outcome}, out)
	return result, nil
}

// ConfirmAllocation records the pick of an OPEN allocation: it becomes
// CONFIRMED and the units leave the pallet with an OUTBOUND event.
func (s *Service) ConfirmAllocation(ctx context.Context, orderID, allocationID int64, actor shared.Actor) (inventory.Allocation, error) {
	var alloc inventory.Allocation
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusSentToWarehouse {
			return &EligibilityError{OrderID: orderID, Operation: "pick confirmation", Status: order.Status}
		}
		alloc, err = orderAllocation(ctx, tx, orderID, allocationID)
		if err != nil {
			return err
		}
		if err := inventory.SetAllocationStatus(ctx, tx, &alloc, inventory.AllocationConfirmed); err != nil {
			return err
		}
		evt, _, err := s.ledger.Append(ctx, tx, inventory.Event{
			PalletID: alloc.PalletID,
			Kind:     inventory.KindOutbound,
			Quantity: alloc.Quantity,
			Actor:    actor,
			OrderID:  &orderID,
			Reason:   "picked for " + order.Label(),
		})
		if err != nil {
			return err
		}
		out.events = append(out.events, evt)
		return adjustFulfilled(ctx, tx, &order, alloc.OrderLineID, alloc.Quantity)
	})
	if err != nil {
		return inventory.Allocation{}, err
	}
	s.committed(ctx, actor, "order.confirm_allocation", orderID, map[string]any{"allocation_id": allocationID, "quantity": alloc.Quantity}, out)
	return alloc, nil
}

// AddAllocation lets a supervisor reserve a specific pallet for a line while
// the order is IN_REVIEW.
func (s *Service) AddAllocation(ctx context.Context, orderID, lineID, palletID, qty int64, actor shared.Actor) (inventory.Allocation, error) {
	if qty <= 0 {
		return inventory.Allocation{}, inventory.ErrInvalidQuantity
	}
	var alloc inventory.Allocation
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusInReview {
			return &EligibilityError{OrderID: orderID, Operation: "allocation override", Status: order.Status}
		}
		line := order.line(lineID)
		if line == nil {
			return fmt.Errorf("%w: %d", ErrLineNotFound, lineID)
		}
		evt, err := s.allocator.Reserve(ctx, tx, &order, line, palletID, qty, actor)
		if err != nil {
			return err
		}
		out.events = append(out.events, evt)
		alloc = line.Allocations[len(line.Allocations)-1]
		return nil
	})
	if err != nil {
		return inventory.Allocation{}, err
	}
	s.committed(ctx, actor, "order.add_allocation", orderID, map[string]any{"pallet_id": palletID, "quantity": qty}, out)
	return alloc, nil
}

// ReleaseAllocation reverses one allocation of a non-terminal order.
func (s *Service) ReleaseAllocation(ctx context.Context, orderID, allocationID int64, reason string, actor shared.Actor) (ReversalResult, error) {
	var result ReversalResult
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return &EligibilityError{OrderID: orderID, Operation: "allocation release", Status: order.Status}
		}
		alloc, err := orderAllocation(ctx, tx, orderID, allocationID)
		if err != nil {
			return err
		}
		result, out.events, err = s.reverse(ctx, tx, &order, []inventory.Allocation{alloc}, reason, actor)
		return err
	})
	if err != nil {
		return ReversalResult{}, err
	}
	s.committed(ctx, actor, "order.release_allocation", orderID, map[string]any{"allocation_id": allocationID, "reason": reason}, out)
	return result, nil
}

// ReportProblem moves an order at the warehouse into review.
func (s *Service) ReportProblem(ctx context.Context, orderID int64, note string, actor shared.Actor) (Order, error) {
	return s.move(ctx, orderID, StatusSentToWarehouse, StatusInReview, "problem report", note, actor)
}

// Resolve sends a reviewed order back to the warehouse.
func (s *Service) Resolve(ctx context.Context, orderID int64, note string, actor shared.Actor) (Order, error) {
	return s.move(ctx, orderID, StatusInReview, StatusSentToWarehouse, "review resolution", note, actor)
}

func (s *Service) move(ctx context.Context, orderID int64, from, to Status, operation, note string, actor shared.Actor) (Order, error) {
	var order Order
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != from {
			return &EligibilityError{OrderID: orderID, Operation: operation, Status: order.Status}
		}
		change, err := Transition(ctx, tx, &order, to, actor, note, s.ledger.Now())
		if err != nil {
			return err
		}
		out.changes = append(out.changes, change)
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.committed(ctx, actor, "order."+string(to), orderID, map[string]any{"note": note}, out)
	return order, nil
}

// Close completes an order once no allocation is still OPEN.
func (s *Service) Close(ctx context.Context, orderID int64, note string, actor shared.Actor) (Order, error) {
	var order Order
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, StatusCompleted) {
			return &TransitionError{From: order.Status, To: StatusCompleted}
		}
		allocs, err := tx.ListAllocationsByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders: list allocations: %w", err)
		}
		open := 0
		for _, alloc := range allocs {
			if alloc.Status == inventory.AllocationOpen {
				open++
			}
		}
		if open > 0 {
			return fmt.Errorf("%w: %d allocation(s) on order %s", ErrOpenAllocationsRemain, open, order.Label())
		}
		change, err := Transition(ctx, tx, &order, StatusCompleted, actor, note, s.ledger.Now())
		if err != nil {
			return err
		}
		out.changes = append(out.changes, change)
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.committed(ctx, actor, "order.close", orderID, map[string]any{"note": note}, out)
	return order, nil
}

// Cancel reverses every allocation of a non-terminal order and moves it to
// CANCELLED. Already cancelled allocations are skipped.
func (s *Service) Cancel(ctx context.Context, orderID int64, reason string, actor shared.Actor) (ReversalResult, error) {
	var result ReversalResult
	var out outbox
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		out.reset()
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return &TransitionError{From: order.Status, To: StatusCancelled}
		}
		allocs, err := tx.ListAllocationsByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders: list allocations: %w", err)
		}
		result, out.events, err = s.reverse(ctx, tx, &order, allocs, reason, actor)
		if err != nil {
			return err
		}
		change, err := Transition(ctx, tx, &order, StatusCancelled, actor, reason, s.ledger.Now())
		if err != nil {
			return err
		}
		out.changes = append(out.changes, change)
		return nil
	})
	if err != nil {
		return ReversalResult{}, err
	}
	s.committed(ctx, actor, "order.cancel", orderID, map[string]any{"reason": reason, "reversed": result.Reversed, "released": result.Released}, out)
	return result, nil
}

// HardDelete reverses the order's allocations and then physically removes the
// order with its events, allocations and money. Orders holding payments or
// credits require confirm.
func (s *Service) HardDelete(ctx context.Context, orderID int64, confirm bool, actor shared.Actor) (DeleteResult, error) {
	var result DeleteResult
	err := s.locked(ctx, orderID, func(ctx context.Context, tx TxRepository) error {
		result = DeleteResult{}
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		money, err := payments.ForOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		result.Payments, result.Credits = len(money.Payments), len(money.Credits)
		if !confirm && result.Payments+result.Credits > 0 {
			return fmt.Errorf("%w: order %s has %d payment(s) and %d credit(s)", shared.ErrConfirmationRequired, order.Label(), result.Payments, result.Credits)
		}

		allocs, err := tx.ListAllocationsByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("orders: list allocations: %w", err)
		}
		if result.ReversalResult, _, err = s.reverse(ctx, tx, &order, allocs, "order deleted", actor); err != nil {
			return err
		}

		if err := tx.DeleteEventsByOrder(ctx, orderID); err != nil {
			return fmt.Errorf("orders: delete events: %w", err)
		}
		if err := tx.DeleteAllocationsByOrder(ctx, orderID); err != nil {
			return fmt.Errorf("orders: delete allocations: %w", err)
		}
		if err := tx.DeleteIdempotencyKeys(ctx, idempotencyModule, orderID); err != nil {
			return fmt.Errorf("orders: delete idempotency keys: %w", err)
		}
		if err := payments.Purge(ctx, tx, orderID); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, orderID); err != nil {
			return fmt.Errorf("orders: delete lines: %w", err)
		}
		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return fmt.Errorf("orders: delete order: %w", err)
		}

		seen := make(map[int64]bool)
		for _, alloc := range allocs {
			if seen[alloc.PalletID] {
				continue
			}
			seen[alloc.PalletID] = true
			if _, err := s.ledger.Reevaluate(ctx, tx, alloc.PalletID); err != nil && !errors.Is(err, inventory.ErrPalletNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	s.committed(ctx, actor, "order.hard_delete", orderID, map[string]any{"payments": result.Payments, "credits": result.Credits, "confirmed": confirm}, outbox{})
	return result, nil
}

// Get returns the order with its allocations and money.
func (s *Service) Get(ctx context.Context, orderID int64) (Detail, error) {
	var detail Detail
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		allocs, err := tx.ListAllocationsByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, alloc := range allocs {
			if line := order.line(alloc.OrderLineID); line != nil {
				line.Allocations = append(line.Allocations, alloc)
			}
		}
		money, err := payments.ForOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		detail = Detail{Order: order, Label: order.Label(), Money: money}
		return nil
	})
	return detail, err
}

// reverse undoes allocations: OPEN ones are released, CONFIRMED ones get a
// compensating INBOUND first. Each touched pallet is re-evaluated.
func (s *Service) reverse(ctx context.Context, tx TxRepository, order *Order, allocs []inventory.Allocation, reason string, actor shared.Actor) (ReversalResult, []inventory.Event, error) {
	var result ReversalResult
	var events []inventory.Event
	for _, alloc := range allocs {
		switch alloc.Status {
		case inventory.AllocationCancelled:
			result.Skipped++
			continue
		case inventory.AllocationConfirmed:
			evt, _, err := s.ledger.Append(ctx, tx, inventory.Event{
				PalletID: alloc.PalletID,
				Kind:     inventory.KindInbound,
				Quantity: alloc.Quantity,
				Actor:    actor,
				OrderID:  &order.ID,
				Reason:   fmt.Sprintf("cancellation of %s: %s", order.Label(), reason),
			})
			if err != nil {
				return ReversalResult{}, nil, err
			}
			events = append(events, evt)
			if err := adjustFulfilled(ctx, tx, order, alloc.OrderLineID, -alloc.Quantity); err != nil {
				return ReversalResult{}, nil, err
			}
			result.Reversed++
		default:
			result.Released++
		}
		if err := inventory.SetAllocationStatus(ctx, tx, &alloc, inventory.AllocationCancelled); err != nil {
			return ReversalResult{}, nil, err
		}
		if _, err := s.ledger.Reevaluate(ctx, tx, alloc.PalletID); err != nil {
			return ReversalResult{}, nil, err
		}
	}
	return result, events, nil
}

func (s *Service) locked(ctx context.Context, orderID int64, fn func(context.Context, TxRepository) error) error {
	return shared.WithLock(ctx, s.locker, shared.OrderLockKey(orderID), s.lockTTL, func(ctx context.Context) error {
		return s.store.WithTx(ctx, fn)
	})
}

// replay loads the order an idempotency key was bound to, if any.
func (s *Service) replay(ctx context.Context, key string) (Detail, bool, error) {
	var id int64
	var found bool
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, found, err = tx.FindIdempotencyKey(ctx, key, idempotencyModule)
		return err
	})
	if err != nil || !found {
		return Detail{}, false, err
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return Detail{}, false, err
	}
	detail.Replayed = true
	s.logger.Info("order create replayed", slog.String("key", key), slog.Int64("order_id", id))
	return detail, true, nil
}

func (s *Service) committed(ctx context.Context, actor shared.Actor, action string, orderID int64, meta map[string]any, out outbox) {
	for _, change := range out.changes {
		if s.metrics != nil {
			s.metrics.ObserveOrderTransition(string(change.From), string(change.To))
		}
		s.logger.Info("order status changed",
			slog.Int64("order_id", change.OrderID),
			slog.String("from", string(change.From)),
			slog.String("to", string(change.To)),
			slog.String("actor", change.Actor.String()))
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   action,
			Entity:   "order",
			EntityID: strconv.FormatInt(orderID, 10),
			Meta:     meta,
		}); err != nil {
			s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	}
	if s.sink == nil {
		return
	}
	if len(out.events) > 0 {
		if err := s.sink.LedgerEventsCommitted(ctx, out.events); err != nil {
			s.logger.Warn("publish ledger events failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		}
	}
	for _, change := range out.changes {
		if err := s.sink.OrderStatusChanged(ctx, change); err != nil {
			s.logger.Warn("publish order status failed", slog.Int64("order_id", orderID), slog.Any("error", err))
		}
	}
}

func orderAllocation(ctx context.Context, tx TxRepository, orderID, allocationID int64) (inventory.Allocation, error) {
	alloc, err := tx.GetAllocation(ctx, allocationID)
	if err != nil {
		return inventory.Allocation{}, err
	}
	if alloc.OrderID != orderID {
		return inventory.Allocation{}, fmt.Errorf("%w: %d on order %d", inventory.ErrAllocationMissing, allocationID, orderID)
	}
	return alloc, nil
}

func adjustFulfilled(ctx context.Context, tx TxRepository, order *Order, lineID, delta int64) error {
	line := order.line(lineID)
	if line == nil {
		return fmt.Errorf("%w: %d", ErrLineNotFound, lineID)
	}
	line.Fulfilled += delta
	if line.Fulfilled < 0 {
		line.Fulfilled = 0
	}
	if err := tx.UpdateLineFulfilled(ctx, lineID, line.Fulfilled); err != nil {
		return fmt.Errorf("orders: update fulfilled: %w", err)
	}
	return nil
}

func (o *Order) line(id int64) *Line {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

func countAllocations(order Order) int {
	n := 0
	for _, line := range order.Lines {
		n += len(line.Allocations)
	}
	return n
}
