package apfeed

import (
	"time"

	"github.com/shopspring/decimal"

	"apfeed/pkg/models"
)

var testRunAt = time.Date(2017, time.January, 5, 10, 24, 0, 0, time.Local)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// sampleInvoice mirrors the first invoice of the acquisitions test export:
// three lines, no VAT, goods received from the first note.
func sampleInvoice() models.Invoice {
	return models.Invoice{
		Header: models.InvoiceHeader{
			UniqueID:            "4829238050003126",
			InvoiceNumber:       "0201821",
			VendorCode:          "0000002413 0002",
			AddressSelectNumber: "0000002413 0002",
			InvoiceDate:         date(2016, time.November, 25),
			CreatedAt:           date(2016, time.December, 1),
			VATAmount:           decimal.Zero,
			TotalAmount:         decimal.RequireFromString("88.50"),
			Currency:            "USD",
			Notes: []models.Note{
				{Content: "received", CreatedAt: date(2017, time.January, 4)},
			},
		},
		Lines: []models.InvoiceLine{
			{
				LineNumber:  18,
				POReference: "POL-1234",
				Funds: []models.FundAllocation{
					{ExternalAccountID: "LGBOOKS", Amount: decimal.RequireFromString("29.50")},
				},
			},
			{
				LineNumber:  19,
				POReference: "POL-1235",
				Funds: []models.FundAllocation{
					{ExternalAccountID: "LGBOOKS", Amount: decimal.RequireFromString("29.50")},
				},
			},
			{
				LineNumber: 20,
				Funds: []models.FundAllocation{
					{ExternalAccountID: "LGSERLS", Amount: decimal.RequireFromString("29.50")},
				},
			},
		},
	}
}
