package importer

import (
	"fmt"
	"io"

	"fintrack/internal/core"

	"github.com/gocarina/gocsv"
)

type exportRow struct {
	Date          string `csv:"date"`
	Description   string `csv:"description"`
	Merchant      string `csv:"merchant"`
	Amount        string `csv:"amount"`
	Currency      string `csv:"currency"`
	Category      string `csv:"category"`
	Account       string `csv:"account"`
	PaymentMethod string `csv:"paymentMethod"`
	Source        string `csv:"source"`
}

// Export writes txs as CSV. categoryNames maps category IDs to display
// names; unknown IDs are written as-is. The header matches the column
// names Parse expects with an identity Mapping.
func Export(w io.Writer, txs []core.Transaction, categoryNames map[string]string) error {
	rows := make([]*exportRow, 0, len(txs))
	for _, t := range txs {
		category := t.CategoryID
		if name, ok := categoryNames[category]; ok {
			category = name
		}
		rows = append(rows, &exportRow{
			Date:          t.Date.Format(core.ISODate),
			Description:   t.Description,
			Merchant:      t.Merchant,
			Amount:        t.Amount.StringFixed(2),
			Currency:      t.Currency,
			Category:      category,
			Account:       t.Account,
			PaymentMethod: t.PaymentMethod,
			Source:        string(t.Source),
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// IdentityMapping maps every field to the column Export writes for it.
func IdentityMapping() Mapping {
	return Mapping{
		Date:          "date",
		Description:   "description",
		Merchant:      "merchant",
		Amount:        "amount",
		Currency:      "currency",
		Account:       "account",
		PaymentMethod: "paymentMethod",
		Category:      "category",
	}
}
