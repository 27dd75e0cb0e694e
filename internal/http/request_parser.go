// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data.
// Amounts travel as strings so they reach the decimal parser untouched.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// maxImportBytes bounds CSV uploads.
const maxImportBytes = 10 << 20

// decodeJSON reads r's body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return nil
}

// FieldParser converts request strings to domain values, collecting every
// failure so one response can report them all.
type FieldParser struct {
	loc  *time.Location
	errs core.ValidationErrors
}

func NewFieldParser(loc *time.Location) *FieldParser {
	return &FieldParser{loc: loc}
}

func (p *FieldParser) fail(field string, err error) {
	p.errs = append(p.errs, core.ValidationError{Field: field, Err: err})
}

// Amount parses a required amount.
func (p *FieldParser) Amount(field, value string) decimal.Decimal {
	d, err := core.ParseAmountStrict(value)
	if err != nil {
		p.fail(field, err)
	}
	return d
}

// OptionalAmount returns zero for an empty value.
func (p *FieldParser) OptionalAmount(field, value string) decimal.Decimal {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero
	}
	return p.Amount(field, value)
}

// Date parses a required date in dd/mm/yyyy, ISO or RFC3339 form.
func (p *FieldParser) Date(field, value string) time.Time {
	t, err := core.ParseDateInput(value, p.loc)
	if err != nil {
		p.fail(field, err)
	}
	return t
}

// OptionalDate returns the zero time for an empty value.
func (p *FieldParser) OptionalDate(field, value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	return p.Date(field, value)
}

// DateOr returns fallback for an empty value.
func (p *FieldParser) DateOr(field, value string, fallback time.Time) time.Time {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return p.Date(field, value)
}

// Err returns the collected failures, or nil.
func (p *FieldParser) Err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return p.errs
}

// ParseMonth reads "month" as YYYY-MM, or "year" and "month" as numbers,
// defaulting to the month containing now.
func ParseMonth(query url.Values, now time.Time) (time.Time, error) {
	loc := now.Location()
	raw := strings.TrimSpace(query.Get("month"))
	if raw != "" && strings.Contains(raw, "-") {
		t, err := time.ParseInLocation("2006-01", raw, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: month must be YYYY-MM", errBadRequest)
		}
		return t, nil
	}

	year, month := now.Year(), int(now.Month())
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid year", errBadRequest)
		}
		year = y
	}
	if raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			return time.Time{}, fmt.Errorf("%w: invalid month", errBadRequest)
		}
		month = m
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc), nil
}

// ParseLimit reads a positive "limit" query value capped at max.
func ParseLimit(query url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
