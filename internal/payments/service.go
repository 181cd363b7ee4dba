package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Persist writes the payments and credits of a reconciled plan, filling in
// their ids.
func Persist(ctx context.Context, tx TxRepository, plan *Plan) error {
	for i := range plan.Payments {
		id, err := tx.InsertPayment(ctx, plan.Payments[i])
		if err != nil {
			return fmt.Errorf("payments: insert payment: %w", err)
		}
		plan.Payments[i].ID = id
	}
	for i := range plan.Credits {
		id, err := tx.InsertCredit(ctx, plan.Credits[i])
		if err != nil {
			return fmt.Errorf("payments: insert credit: %w", err)
		}
		plan.Credits[i].ID = id
	}
	return nil
}

// Service posts installments against credits.
type Service struct {
	store   Store
	locker  shared.Locker
	lockTTL time.Duration
	audit   shared.AuditRecorder
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Locker  shared.Locker
	LockTTL time.Duration
	Audit   shared.AuditRecorder
	Metrics Metrics
	Now     func() time.Time
}

// NewService builds Service.
func NewService(store Store, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		locker:  cfg.Locker,
		lockTTL: cfg.LockTTL,
		audit:   cfg.Audit,
		metrics: cfg.Metrics,
		logger:  logger,
		now:     cfg.Now,
	}
}

// PostInstallment appends an installment and recomputes the credit. Posting is
// serialised per credit by the distributed lock and the credit row lock.
func (s *Service) PostInstallment(ctx context.Context, creditID int64, method Method, amount decimal.Decimal, actor shared.Actor) (CreditDetail, error) {
	if !method.IsValid() || method == MethodCredit {
		return CreditDetail{}, fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	if !ValidAmount(amount) {
		return CreditDetail{}, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	var detail CreditDetail
	err := shared.WithLock(ctx, s.locker, shared.CreditLockKey(creditID), s.lockTTL, func(ctx context.Context) error {
		return s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			credit, err := tx.LockCredit(ctx, creditID)
			if err != nil {
				return err
			}
			installments, err := tx.ListInstallments(ctx, creditID)
			if err != nil {
				return fmt.Errorf("payments: list installments: %w", err)
			}
			remaining := Remaining(credit.Original, installments)
			if amount.GreaterThan(remaining) {
				return &ExcessPaymentError{CreditID: creditID, Amount: amount, Remaining: remaining}
			}

			inst := Installment{CreditID: creditID, Method: method, Amount: amount, Actor: actor, PostedAt: s.now()}
			if inst.ID, err = tx.InsertInstallment(ctx, inst); err != nil {
				return fmt.Errorf("payments: insert installment: %w", err)
			}
			installments = append(installments, inst)

			credit.Remaining = Remaining(credit.Original, installments)
			credit.Status = CreditStatusFor(credit.Original, credit.Remaining)
			if err := tx.UpdateCredit(ctx, creditID, credit.Remaining, credit.Status); err != nil {
				return fmt.Errorf("payments: update credit: %w", err)
			}
			if credit.Status == CreditPaid {
				if err := settleOrder(ctx, tx, credit.OrderID); err != nil {
					return err
				}
			}
			detail = CreditDetail{Credit: credit, Installments: installments}
			return nil
		})
	})
	if err != nil {
		return CreditDetail{}, err
	}

	if s.metrics != nil {
		s.metrics.ObserveInstallment(string(detail.Credit.Status))
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   "credit.installment",
			Entity:   "credit",
			EntityID: strconv.FormatInt(creditID, 10),
			Meta:     map[string]any{"amount": amount.String(), "method": method, "remaining": detail.Credit.Remaining.String()},
		}); err != nil {
			s.logger.Warn("audit record failed", slog.Int64("credit_id", creditID), slog.Any("error", err))
		}
	}
	return detail, nil
}

// settleOrder re-derives the order payment status once every credit is paid:
// PAID when payments and credits cover the total, PARTIAL otherwise.
func settleOrder(ctx context.Context, tx TxRepository, orderID int64) error {
	credits, err := tx.ListCredits(ctx, orderID)
	if err != nil {
		return fmt.Errorf("payments: list credits: %w", err)
	}
	covered := decimal.Zero
	for _, c := range credits {
		if c.Status != CreditPaid {
			return nil
		}
		covered = covered.Add(c.Original)
	}
	paid, err := tx.ListPayments(ctx, orderID)
	if err != nil {
		return fmt.Errorf("payments: list payments: %w", err)
	}
	for _, p := range paid {
		covered = covered.Add(p.Amount)
	}
	total, err := tx.OrderTotal(ctx, orderID)
	if err != nil {
		return err
	}
	if err := tx.UpdateOrderPaymentStatus(ctx, orderID, ComputeStatus(total, covered, decimal.Zero)); err != nil {
		return fmt.Errorf("payments: update order payment status: %w", err)
	}
	return nil
}

// Credit returns a credit with its installments.
func (s *Service) Credit(ctx context.Context, creditID int64) (CreditDetail, error) {
	var detail CreditDetail
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		credit, err := tx.GetCredit(ctx, creditID)
		if err != nil {
			return err
		}
		installments, err := tx.ListInstallments(ctx, creditID)
		if err != nil {
			return err
		}
		detail = CreditDetail{Credit: credit, Installments: installments}
		return nil
	})
	return detail, err
}

// ForOrder loads every payment and credit of an order.
func ForOrder(ctx context.Context, tx TxRepository, orderID int64) (OrderMoney, error) {
	payments, err := tx.ListPayments(ctx, orderID)
	if err != nil {
		return OrderMoney{}, fmt.Errorf("payments: list payments: %w", err)
	}
	credits, err := tx.ListCredits(ctx, orderID)
	if err != nil {
		return OrderMoney{}, fmt.Errorf("payments: list credits: %w", err)
	}
	money := OrderMoney{Payments: payments}
	for _, c := range credits {
		installments, err := tx.ListInstallments(ctx, c.ID)
		if err != nil {
			return OrderMoney{}, fmt.Errorf("payments: list installments: %w", err)
		}
		money.Credits = append(money.Credits, CreditDetail{Credit: c, Installments: installments})
	}
	return money, nil
}

// Purge deletes installments, credits and payments of an order in dependency order.
func Purge(ctx context.Context, tx TxRepository, orderID int64) error {
	if err := tx.DeleteInstallmentsByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("payments: delete installments: %w", err)
	}
	if err := tx.DeleteCreditsByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("payments: delete credits: %w", err)
	}
	if err := tx.DeletePaymentsByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("payments: delete payments: %w", err)
	}
	return nil
}
