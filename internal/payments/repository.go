package payments

import (
	"context"

	"github.com/shopspring/decimal"
)

// TxRepository exposes the transactional persistence of payments and credits.
type TxRepository interface {
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	ListPayments(ctx context.Context, orderID int64) ([]Payment, error)
	InsertCredit(ctx context.Context, c Credit) (int64, error)
	GetCredit(ctx context.Context, id int64) (Credit, error)
	LockCredit(ctx context.Context, id int64) (Credit, error)
	ListCredits(ctx context.Context, orderID int64) ([]Credit, error)
	UpdateCredit(ctx context.Context, id int64, remaining decimal.Decimal, status CreditStatus) error
	InsertInstallment(ctx context.Context, inst Installment) (int64, error)
	ListInstallments(ctx context.Context, creditID int64) ([]Installment, error)
	OrderTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	UpdateOrderPaymentStatus(ctx context.Context, orderID int64, status Status) error

	DeleteInstallmentsByOrder(ctx context.Context, orderID int64) error
	DeleteCreditsByOrder(ctx context.Context, orderID int64) error
	DeletePaymentsByOrder(ctx context.Context, orderID int64) error
}

// Store opens payment transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Metrics records installment activity.
type Metrics interface {
	ObserveInstallment(status string)
}
