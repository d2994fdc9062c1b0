// Package ledger reads payment rows from the accounts payable ledger, either
// from a Postgres mirror or from a CSV extract of the same query.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"apfeed/pkg/models"
)

// ErrMalformedRow is returned for rows that do not have the expected columns.
var ErrMalformedRow = errors.New("malformed ledger row")

// Columns is the column order of a ledger payment row.
var Columns = []string{
	"doc_num",
	"vendor_id",
	"vendor_name",
	"invoice_num",
	"check_num",
	"pay_amt",
	"pay_date",
	"doc_type",
}

// ParseRow converts one row in Columns order to a payment record.
func ParseRow(row []string) (models.PaymentRecord, error) {
	if len(row) != len(Columns) {
		return models.PaymentRecord{}, fmt.Errorf("%w: got %d columns, want %d", ErrMalformedRow, len(row), len(Columns))
	}

	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	amount, err := decimal.NewFromString(row[5])
	if err != nil {
		return models.PaymentRecord{}, fmt.Errorf("%w: pay_amt %q: %v", ErrMalformedRow, row[5], err)
	}

	if row[6] != "" && !isDate(row[6]) {
		return models.PaymentRecord{}, fmt.Errorf("%w: pay_date %q is not YYYYMMDD", ErrMalformedRow, row[6])
	}

	return models.PaymentRecord{
		DocNum:        row[0],
		VendorID:      row[1],
		VendorName:    row[2],
		InvoiceNumber: row[3],
		CheckNum:      row[4],
		PayAmount:     amount,
		PayDate:       row[6],
		DocType:       row[7],
	}, nil
}

func isDate(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
