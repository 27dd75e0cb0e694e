// Package core provides money parsing and handling utilities.
//
// Amounts are decimal values rather than floats so that sums and loan
// arithmetic stay exact at cent precision.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "MUR"

var SupportedCurrencies = []string{"MUR", "USD", "EUR", "GBP", "ZAR"}

// ParseAmountStrict parses a user-entered amount.
//
// Thousands separators (commas) and any whitespace are stripped before
// parsing, so "1,250.50" and " 1 250.50 " both yield 1250.50.
// Returns ErrInvalidAmount for empty or malformed input.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmount is the lenient form parser: anything unparsable becomes zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := ParseAmountStrict(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeCurrency upper-cases a currency code and falls back to the
// default currency for unknown codes.
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range SupportedCurrencies {
		if c == code {
			return c
		}
	}
	return DefaultCurrency
}

// FormatMoney renders an amount with two decimals and a currency prefix.
func FormatMoney(amount decimal.Decimal, currency string) string {
	return NormalizeCurrency(currency) + " " + amount.StringFixed(2)
}

// Percent returns part/whole*100 rounded to one decimal place, or zero when
// whole is not positive.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1)
}
