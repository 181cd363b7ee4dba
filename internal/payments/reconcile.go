package payments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

// ComputeStatus derives the order payment status. It depends only on its inputs.
func ComputeStatus(total, paid, credit decimal.Decimal) Status {
	switch {
	case credit.IsPositive():
		return StatusOnCredit
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusPending
	}
}

// Reconcile splits lines into payments and credits for a new order. It does
// not require the lines to add up to total.
func Reconcile(orderID, customerID int64, total decimal.Decimal, lines []Line, actor shared.Actor) (Plan, error) {
	plan := Plan{TotalPaid: decimal.Zero, TotalCredit: decimal.Zero}
	for i, line := range lines {
		if !line.Method.IsValid() {
			return Plan{}, fmt.Errorf("%w: line %d: %q", ErrInvalidMethod, i, line.Method)
		}
		if !ValidAmount(line.Amount) {
			return Plan{}, fmt.Errorf("%w: line %d: %s", ErrInvalidAmount, i, line.Amount)
		}
		if line.Method == MethodCredit {
			plan.TotalCredit = plan.TotalCredit.Add(line.Amount)
			plan.Credits = append(plan.Credits, Credit{
				OrderID:    orderID,
				CustomerID: customerID,
				Original:   line.Amount,
				Remaining:  line.Amount,
				Status:     CreditPending,
			})
			continue
		}
		plan.TotalPaid = plan.TotalPaid.Add(line.Amount)
		plan.Payments = append(plan.Payments, Payment{
			OrderID:   orderID,
			Method:    line.Method,
			Amount:    line.Amount,
			Reference: line.Reference,
			Actor:     actor,
		})
	}
	plan.Status = ComputeStatus(total, plan.TotalPaid, plan.TotalCredit)
	return plan, nil
}

// CreditStatusFor derives a credit status from its remaining balance.
func CreditStatusFor(original, remaining decimal.Decimal) CreditStatus {
	switch {
	case !remaining.IsPositive():
		return CreditPaid
	case remaining.LessThan(original):
		return CreditPartial
	default:
		return CreditPending
	}
}

// Remaining is original minus every installment.
func Remaining(original decimal.Decimal, installments []Installment) decimal.Decimal {
	remaining := original
	for _, inst := range installments {
		remaining = remaining.Sub(inst.Amount)
	}
	return remaining
}
