package payments

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeStatus(t *testing.T) {
	cases := []struct {
		name                string
		total, paid, credit string
		want                Status
	}{
		{"nothing paid", "1000", "0", "0", StatusPending},
		{"partly paid", "1000", "400", "0", StatusPartial},
		{"fully paid", "1000", "1000", "0", StatusPaid},
		{"overpaid", "1000", "1200", "0", StatusPaid},
		{"credit wins", "1000", "1000", "0.01", StatusOnCredit},
		{"credit without payment", "1000", "0", "1000", StatusOnCredit},
		{"free order", "0", "0", "0", StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeStatus(d(tc.total), d(tc.paid), d(tc.credit))
			require.Equal(t, tc.want, got)
			require.Equal(t, got, ComputeStatus(d(tc.total), d(tc.paid), d(tc.credit)))
		})
	}
}

func TestReconcileCashOnly(t *testing.T) {
	plan, err := Reconcile(1, 9, d("1000"), []Line{{Method: MethodCash, Amount: d("1000")}}, shared.Actor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, plan.Status)
	require.Empty(t, plan.Credits)
	require.Len(t, plan.Payments, 1)
	require.True(t, plan.TotalPaid.Equal(d("1000")))
}

func TestReconcileSplitsCredit(t *testing.T) {
	lines := []Line{
		{Method: MethodCash, Amount: d("400")},
		{Method: MethodCredit, Amount: d("600")},
	}
	plan, err := Reconcile(1, 9, d("1000"), lines, shared.Actor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusOnCredit, plan.Status)
	require.Len(t, plan.Payments, 1)
	require.Len(t, plan.Credits, 1)

	credit := plan.Credits[0]
	require.True(t, credit.Original.Equal(d("600")))
	require.True(t, credit.Remaining.Equal(d("600")))
	require.Equal(t, CreditPending, credit.Status)
	require.EqualValues(t, 9, credit.CustomerID)
}

func TestReconcileRejectsBadLines(t *testing.T) {
	_, err := Reconcile(1, 1, d("10"), []Line{{Method: "BARTER", Amount: d("10")}}, shared.Actor{})
	require.ErrorIs(t, err, ErrInvalidMethod)

	_, err = Reconcile(1, 1, d("10"), []Line{{Method: MethodCard, Amount: d("0")}}, shared.Actor{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Reconcile(1, 1, d("10"), []Line{{Method: MethodTransfer, Amount: d("-5")}}, shared.Actor{})
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestReconcileRejectsFractionalCents(t *testing.T) {
	_, err := Reconcile(1, 1, d("1000"), []Line{
		{Method: MethodCash, Amount: d("399.995")},
		{Method: MethodCredit, Amount: d("600.005")},
	}, shared.Actor{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	plan, err := Reconcile(1, 1, d("1000"), []Line{
		{Method: MethodCash, Amount: d("399.990")},
		{Method: MethodCredit, Amount: d("600.01")},
	}, shared.Actor{})
	require.NoError(t, err)
	require.True(t, plan.Credits[0].Original.Equal(d("600.01")))

	require.True(t, IsCents(d("12.30")))
	require.False(t, IsCents(d("0.001")))
	require.False(t, ValidAmount(d("0")))
}

func TestRemainingIsOriginalMinusInstallments(t *testing.T) {
	installments := []Installment{{Amount: d("100.10")}, {Amount: d("0.20")}, {Amount: d("99.70")}}
	require.True(t, Remaining(d("600"), installments).Equal(d("400")))
	require.True(t, Remaining(d("600"), nil).Equal(d("600")))
}

func TestCreditStatusFor(t *testing.T) {
	require.Equal(t, CreditPending, CreditStatusFor(d("600"), d("600")))
	require.Equal(t, CreditPartial, CreditStatusFor(d("600"), d("0.01")))
	require.Equal(t, CreditPaid, CreditStatusFor(d("600"), d("0")))
}
