// Package importer turns bank CSV exports into transaction records and
// writes transactions back out as CSV.
package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// DefaultDescription is used for rows whose description column is blank.
const DefaultDescription = "Imported transaction"

const (
	MsgInvalidDate   = "Invalid date"
	MsgInvalidAmount = "Invalid amount"
)

// Mapping names the CSV column holding each transaction field. Empty names
// leave the field blank.
type Mapping struct {
	Date          string `json:"date"`
	Description   string `json:"description"`
	Merchant      string `json:"merchant"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Account       string `json:"account"`
	PaymentMethod string `json:"paymentMethod"`
	Category      string `json:"category"`
}

// Record is one parsed row. Category holds the raw category name from the
// file, if any; resolving it to an ID is up to the caller.
type Record struct {
	Row           int
	Date          time.Time
	Description   string
	Merchant      string
	Amount        decimal.Decimal
	Currency      string
	Account       string
	PaymentMethod string
	Category      string
}

// RowError reports why a row was rejected. Row is 1-based.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ReadCSV reads a CSV with a header line into one map per data row.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	rows, err := gocsv.CSVToMaps(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// Parse converts rows using m. Rows with a missing or unparseable date or a
// zero amount are reported in the errors and left out of the records.
func Parse(rows []map[string]string, m Mapping, loc *time.Location) ([]Record, []RowError) {
	var (
		records []Record
		errs    []RowError
	)
	for i, row := range rows {
		n := i + 1
		dateRaw := field(row, m.Date)
		date, err := core.ParseDateInput(dateRaw, loc)
		if dateRaw == "" || err != nil {
			errs = append(errs, RowError{Row: n, Message: MsgInvalidDate})
			continue
		}
		amount := core.ParseAmount(field(row, m.Amount))
		if amount.IsZero() {
			errs = append(errs, RowError{Row: n, Message: MsgInvalidAmount})
			continue
		}
		description := field(row, m.Description)
		if description == "" {
			description = DefaultDescription
		}
		records = append(records, Record{
			Row:           n,
			Date:          date,
			Description:   description,
			Merchant:      field(row, m.Merchant),
			Amount:        amount,
			Currency:      core.NormalizeCurrency(field(row, m.Currency)),
			Account:       field(row, m.Account),
			PaymentMethod: field(row, m.PaymentMethod),
			Category:      field(row, m.Category),
		})
	}
	return records, errs
}

func field(row map[string]string, column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(row[column])
}
