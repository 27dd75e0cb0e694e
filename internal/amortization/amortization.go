// Package amortization computes fixed-payment loan schedules.
//
// Internal state is carried at a fixed working precision; only emitted rows
// are rounded, half away from zero, to two decimal places. The calculators
// do not check their arguments. Call Validate first when the input comes
// from a user.
package amortization

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// precision is the number of decimal places kept between iterations.
const precision = 20

var ErrInvalidArgument = errors.New("invalid argument")

var (
	hundred = decimal.NewFromInt(100)
	months  = decimal.NewFromInt(12)
)

// Row is one month of a schedule.
type Row struct {
	Month     int             `json:"month"`
	Payment   decimal.Decimal `json:"payment"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"balance"`
}

// Schedule is ordered by month ascending.
type Schedule []Row

// Validate rejects a non-positive term and a negative principal or APR.
func Validate(principal, aprPercent decimal.Decimal, termMonths int) error {
	switch {
	case termMonths <= 0:
		return fmt.Errorf("%w: term must be at least one month, got %d", ErrInvalidArgument, termMonths)
	case principal.IsNegative():
		return fmt.Errorf("%w: principal cannot be negative", ErrInvalidArgument)
	case aprPercent.IsNegative():
		return fmt.Errorf("%w: apr cannot be negative", ErrInvalidArgument)
	}
	return nil
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(aprPercent decimal.Decimal) decimal.Decimal {
	return aprPercent.DivRound(hundred, precision).DivRound(months, precision)
}

// MonthlyPayment returns the annuity payment that amortizes principal over
// termMonths. A zero rate gives a straight-line payment. The result is not
// rounded.
func MonthlyPayment(principal, aprPercent decimal.Decimal, termMonths int) decimal.Decimal {
	term := decimal.NewFromInt(int64(termMonths))
	rate := MonthlyRate(aprPercent)
	if rate.IsZero() {
		return principal.DivRound(term, precision)
	}
	growth := pow(decimal.NewFromInt(1).Add(rate), termMonths)
	numerator := principal.Mul(rate).Mul(growth)
	return numerator.DivRound(growth.Sub(decimal.NewFromInt(1)), precision)
}

// GenerateSchedule builds the schedule using the payment from MonthlyPayment.
func GenerateSchedule(principal, aprPercent decimal.Decimal, termMonths int) Schedule {
	return GenerateScheduleWithPayment(principal, aprPercent, termMonths, MonthlyPayment(principal, aprPercent, termMonths))
}

// GenerateScheduleWithPayment builds the schedule for a caller-supplied fixed
// payment. It stops early once the balance reaches zero and stops at
// termMonths otherwise, leaving any remaining balance on the last row.
func GenerateScheduleWithPayment(principal, aprPercent decimal.Decimal, termMonths int, payment decimal.Decimal) Schedule {
	rate := MonthlyRate(aprPercent)
	balance := principal
	schedule := make(Schedule, 0, max(termMonths, 0))

	for month := 1; month <= termMonths; month++ {
		interest := balance.Mul(rate).Round(precision)
		principalPaid := decimal.Min(payment.Sub(interest), balance)
		balance = decimal.Max(balance.Sub(principalPaid), decimal.Zero)

		schedule = append(schedule, Row{
			Month:     month,
			Payment:   payment.Round(2),
			Principal: principalPaid.Round(2),
			Interest:  interest.Round(2),
			Balance:   balance.Round(2),
		})

		if !balance.IsPositive() {
			break
		}
	}
	return schedule
}

// pow raises base to a non-negative integer power by squaring, holding each
// intermediate at the working precision.
func pow(base decimal.Decimal, exp int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for exp > 0 {
		if exp&1 == 1 {
			result = result.Mul(base).Round(precision)
		}
		base = base.Mul(base).Round(precision)
		exp >>= 1
	}
	return result
}
