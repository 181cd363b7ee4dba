// Package payments splits order totals across payment methods and store
// credit, and posts installments against outstanding credit.
package payments

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// Method is how a payment line is settled.
type Method string

const (
	MethodCash     Method = "CASH"
	MethodTransfer Method = "TRANSFER"
	MethodCard     Method = "CARD"
	MethodCredit   Method = "CREDIT"
)

// IsValid reports whether m is a known method.
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodTransfer, MethodCard, MethodCredit:
		return true
	default:
		return false
	}
}

// Status is the payment status of an order.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPartial  Status = "PARTIAL"
	StatusPaid     Status = "PAID"
	StatusOnCredit Status = "ON_CREDIT"
)

// CreditStatus tracks repayment of a credit.
type CreditStatus string

const (
	CreditPending CreditStatus = "PENDING"
	CreditPartial CreditStatus = "PARTIAL"
	CreditPaid    CreditStatus = "PAID"
)

// Line is one payment line supplied with a new order.
type Line struct {
	Method    Method          `json:"method" validate:"required,oneof=CASH TRANSFER CARD CREDIT"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty" validate:"max=128"`
}

// Payment is money collected against an order.
type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Method    Method          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	Actor     shared.Actor    `json:"actor"`
	CreatedAt time.Time       `json:"created_at"`
}

// Credit is a deferred payment obligation. Remaining is always
// Original minus the sum of its installments.
type Credit struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	Original   decimal.Decimal `json:"original_amount"`
	Remaining  decimal.Decimal `json:"remaining_amount"`
	Status     CreditStatus    `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Installment is a payment posted against a credit.
type Installment struct {
	ID       int64           `json:"id"`
	CreditID int64           `json:"credit_id"`
	Method   Method          `json:"method"`
	Amount   decimal.Decimal `json:"amount"`
	Actor    shared.Actor    `json:"actor"`
	PostedAt time.Time       `json:"posted_at"`
}

// Plan is the outcome of reconciling payment lines against an order total.
type Plan struct {
	Status      Status          `json:"status"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Payments    []Payment       `json:"payments"`
	Credits     []Credit        `json:"credits"`
}

// CreditDetail is a credit with its installment history.
type CreditDetail struct {
	Credit       Credit        `json:"credit"`
	Installments []Installment `json:"installments"`
}

// OrderMoney groups everything collected or owed for one order.
type OrderMoney struct {
	Payments []Payment      `json:"payments"`
	Credits  []CreditDetail `json:"credits"`
}

// MoneyScale is the number of decimal places stored for monetary amounts.
const MoneyScale = 2

// IsCents reports whether d fits MoneyScale without rounding.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// ValidAmount reports whether d is a positive amount in whole cents.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && IsCents(d)
}

// Domain errors.
var (
	ErrInvalidAmount  = fmt.Errorf("%w: amount must be positive with at most two decimals", shared.ErrValidation)
	ErrInvalidMethod  = fmt.Errorf("%w: unknown payment method", shared.ErrValidation)
	ErrExcessPayment  = fmt.Errorf("%w: installment exceeds remaining credit", shared.ErrState)
	ErrCreditNotFound = fmt.Errorf("%w: credit", shared.ErrNotFound)
)

// ExcessPaymentError carries the offending amount and the remaining balance.
type ExcessPaymentError struct {
	CreditID  int64
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *ExcessPaymentError) Error() string {
	return fmt.Sprintf("%v: credit %d amount %s remaining %s", ErrExcessPayment, e.CreditID, e.Amount, e.Remaining)
}

func (e *ExcessPaymentError) Unwrap() error {
	return ErrExcessPayment
}
