package importer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bankCSV = `Posted,Details,Payee,Value,Ccy
05/03/2024,Weekly groceries,Winners,"1,250.50",
06/03/2024,,,300,usd
not a date,Cinema,,200,MUR
07/03/2024,Refund pending,,0,MUR
`

var bankMapping = Mapping{
	Date:        "Posted",
	Description: "Details",
	Merchant:    "Payee",
	Amount:      "Value",
	Currency:    "Ccy",
}

func TestParse(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(bankCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	loc := core.LoadLocation(core.DefaultTimezone)
	records, errs := Parse(rows, bankMapping, loc)

	require.Len(t, records, 2)
	first := records[0]
	assert.Equal(t, 1, first.Row)
	assert.True(t, first.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, loc)))
	assert.Equal(t, "Weekly groceries", first.Description)
	assert.Equal(t, "Winners", first.Merchant)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("1250.50")))
	assert.Equal(t, "MUR", first.Currency)

	second := records[1]
	assert.Equal(t, DefaultDescription, second.Description)
	assert.Equal(t, "USD", second.Currency)
	assert.Empty(t, second.Merchant)

	assert.Equal(t, []RowError{
		{Row: 3, Message: MsgInvalidDate},
		{Row: 4, Message: MsgInvalidAmount},
	}, errs)
}

func TestParse_MissingColumns(t *testing.T) {
	rows := []map[string]string{{"when": "01/02/2024"}}
	_, errs := Parse(rows, Mapping{Date: "when"}, time.UTC)
	assert.Equal(t, []RowError{{Row: 1, Message: MsgInvalidAmount}}, errs)

	_, errs = Parse(rows, Mapping{}, time.UTC)
	assert.Equal(t, []RowError{{Row: 1, Message: MsgInvalidDate}}, errs)
}

func TestExportReimports(t *testing.T) {
	txs := []core.Transaction{{
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Description: "Electricity",
		Merchant:    "CEB",
		Amount:      decimal.RequireFromString("1800"),
		Currency:    "MUR",
		CategoryID:  "cat-utilities",
		Source:      core.SourceBill,
	}}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, txs, map[string]string{"cat-utilities": "Utilities"}))
	assert.True(t, strings.HasPrefix(buf.String(), "date,description,merchant,amount,currency,category"))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	records, errs := Parse(rows, IdentityMapping(), time.UTC)
	require.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "Utilities", records[0].Category)
	assert.Equal(t, "CEB", records[0].Merchant)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(1800)))
}
