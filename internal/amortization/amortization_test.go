package amortization

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMonthlyPayment(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		apr       string
		term      int
		want      string
	}{
		{"one year at 12%", "100000", "12", 12, "8884.88"},
		{"car loan", "300000", "7.5", 60, "6011.38"},
		{"short loan at 10%", "10000", "10", 12, "879.16"},
		{"zero rate is straight line", "1200", "0", 12, "100.00"},
		{"zero principal", "0", "5", 24, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyPayment(d(tt.principal), d(tt.apr), tt.term)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestMonthlyPayment_Bounds(t *testing.T) {
	got := MonthlyPayment(d("100000"), d("12"), 12)
	assert.True(t, got.GreaterThan(d("8000")))
	assert.True(t, got.LessThan(d("9000")))
}

func TestGenerateSchedule_PaysOffWithinTerm(t *testing.T) {
	s := GenerateSchedule(d("10000"), d("10"), 12)
	require.NotEmpty(t, s)
	require.LessOrEqual(t, len(s), 12)

	last := s[len(s)-1]
	assert.True(t, last.Balance.LessThanOrEqual(d("0.01")), "last balance %s", last.Balance)

	first := s[0]
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, "879.16", first.Payment.StringFixed(2))
	assert.Equal(t, "83.33", first.Interest.StringFixed(2))
	assert.Equal(t, "795.83", first.Principal.StringFixed(2))
	assert.Equal(t, "9204.17", first.Balance.StringFixed(2))
}

func TestGenerateSchedule_MonotonicBalance(t *testing.T) {
	s := GenerateSchedule(d("300000"), d("7.5"), 60)
	require.Len(t, s, 60)
	prev := d("300000")
	for i, row := range s {
		assert.Equal(t, i+1, row.Month)
		assert.True(t, row.Balance.LessThanOrEqual(prev), "month %d balance rose", row.Month)
		assert.False(t, row.Balance.IsNegative())
		prev = row.Balance
	}
	assert.True(t, s[59].Balance.IsZero())
}

func TestGenerateSchedule_ZeroRate(t *testing.T) {
	s := GenerateSchedule(d("1200"), decimal.Zero, 12)
	require.Len(t, s, 12)
	for _, row := range s {
		assert.True(t, row.Interest.IsZero())
		assert.Equal(t, "100.00", row.Payment.StringFixed(2))
	}
	assert.True(t, s[11].Balance.IsZero())
}

func TestGenerateScheduleWithPayment_EarlyPayoff(t *testing.T) {
	s := GenerateScheduleWithPayment(d("1000"), d("12"), 60, d("600"))
	require.Len(t, s, 2)

	assert.Equal(t, "10.00", s[0].Interest.StringFixed(2))
	assert.Equal(t, "590.00", s[0].Principal.StringFixed(2))
	assert.Equal(t, "410.00", s[0].Balance.StringFixed(2))

	// principal capped at the remaining balance
	assert.Equal(t, "600.00", s[1].Payment.StringFixed(2))
	assert.Equal(t, "410.00", s[1].Principal.StringFixed(2))
	assert.Equal(t, "4.10", s[1].Interest.StringFixed(2))
	assert.True(t, s[1].Balance.IsZero())
}

func TestGenerateScheduleWithPayment_BalloonBalance(t *testing.T) {
	s := GenerateScheduleWithPayment(d("10000"), d("12"), 3, d("100"))
	require.Len(t, s, 3)
	for _, row := range s {
		assert.True(t, row.Principal.IsZero())
		assert.Equal(t, "10000.00", row.Balance.StringFixed(2))
	}
	assert.False(t, Summarize(s).PaidOff)
}

func TestGenerateSchedule_RoundsHalfUpOnEmission(t *testing.T) {
	s := GenerateScheduleWithPayment(d("0.125"), decimal.Zero, 1, d("0.125"))
	require.Len(t, s, 1)
	assert.Equal(t, "0.13", s[0].Payment.StringFixed(2))
	assert.Equal(t, "0.13", s[0].Principal.StringFixed(2))
	assert.True(t, s[0].Balance.IsZero())
}

func TestGenerateSchedule_NoRoundingCarriedForward(t *testing.T) {
	// Summing rounded interest differs from the unrounded total by well under
	// a cent per row, so rounding never compounds month to month.
	s := GenerateSchedule(d("10000"), d("10"), 12)
	total := Summarize(s).TotalInterest
	assert.True(t, total.Sub(d("549.91")).Abs().LessThanOrEqual(d("0.06")), "total interest %s", total)
}

func TestGenerateSchedule_ZeroPrincipal(t *testing.T) {
	s := GenerateSchedule(decimal.Zero, d("5"), 12)
	require.Len(t, s, 1)
	assert.True(t, s[0].Balance.IsZero())
}

func TestGenerateSchedule_Concurrent(t *testing.T) {
	want := GenerateSchedule(d("240000"), d("7.5"), 48)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := GenerateSchedule(d("240000"), d("7.5"), 48)
			assert.Equal(t, len(want), len(got))
			assert.True(t, want[len(want)-1].Balance.Equal(got[len(got)-1].Balance))
		}()
	}
	wg.Wait()
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(d("1000"), d("5"), 12))
	assert.NoError(t, Validate(decimal.Zero, decimal.Zero, 1))
	assert.ErrorIs(t, Validate(d("1000"), d("5"), 0), ErrInvalidArgument)
	assert.ErrorIs(t, Validate(d("1000"), d("5"), -3), ErrInvalidArgument)
	assert.ErrorIs(t, Validate(d("-1"), d("5"), 12), ErrInvalidArgument)
	assert.ErrorIs(t, Validate(d("1000"), d("-0.5"), 12), ErrInvalidArgument)
}

func TestSummarize(t *testing.T) {
	s := GenerateScheduleWithPayment(d("1000"), d("12"), 60, d("600"))
	sum := Summarize(s)
	assert.Equal(t, 2, sum.Months)
	assert.Equal(t, "14.10", sum.TotalInterest.StringFixed(2))
	assert.Equal(t, "1014.10", sum.TotalPaid.StringFixed(2))
	assert.True(t, sum.PaidOff)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Months)
	assert.True(t, empty.PaidOff)
}
