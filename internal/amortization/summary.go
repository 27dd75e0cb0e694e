package amortization

import "github.com/shopspring/decimal"

// Summary aggregates a schedule's rows.
type Summary struct {
	Months        int             `json:"months"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TotalInterest decimal.Decimal `json:"totalInterest"`
	FinalBalance  decimal.Decimal `json:"finalBalance"`
	PaidOff       bool            `json:"paidOff"`
}

// Summarize totals the rounded rows. TotalPaid is principal plus interest,
// so a capped final month counts only what was actually owed.
func Summarize(s Schedule) Summary {
	sum := Summary{Months: len(s), TotalPaid: decimal.Zero, TotalInterest: decimal.Zero, FinalBalance: decimal.Zero}
	for _, row := range s {
		sum.TotalPaid = sum.TotalPaid.Add(row.Principal).Add(row.Interest)
		sum.TotalInterest = sum.TotalInterest.Add(row.Interest)
	}
	if len(s) > 0 {
		sum.FinalBalance = s[len(s)-1].Balance
	}
	sum.PaidOff = sum.FinalBalance.IsZero()
	return sum
}
