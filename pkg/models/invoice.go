package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is one acquisitions invoice with its lines, as read from the export
// or the REST API.
type Invoice struct {
	Header InvoiceHeader
	Lines  []InvoiceLine
}

type InvoiceHeader struct {
	// Identifiers
	UniqueID      string // Acquisitions-side unique identifier
	InvoiceNumber string // Vendor-assigned invoice number (max 15 chars consumed)
	VendorCode    string // External vendor identifier (max 10 chars consumed)

	// AddressSelectNumber is the raw vendor additional code. Spaces are removed
	// before it is validated and encoded.
	AddressSelectNumber string

	InvoiceDate time.Time
	CreatedAt   time.Time // Ownership creation date, zero if unknown

	// Amounts
	VATAmount   decimal.Decimal
	TotalAmount decimal.Decimal // Expected total, used by the tolerance check
	Currency    string

	// Notes attached to the invoice
	Notes []Note
}

// Note is a nested note entry on an invoice.
type Note struct {
	Content   string
	CreatedAt time.Time
}

type InvoiceLine struct {
	LineNumber  int
	Funds       []FundAllocation // One output record per allocation
	POReference string           // Purchase-order line reference, empty if absent
	Note        string
}

// FundAllocation is one fund split of an invoice line.
type FundAllocation struct {
	ExternalAccountID string
	Amount            decimal.Decimal
}

// NormalizedAddressSelect returns the address-select number with every space removed.
func (h InvoiceHeader) NormalizedAddressSelect() string {
	return strings.ReplaceAll(h.AddressSelectNumber, " ", "")
}

// Total returns the sum of all fund allocations on the line.
func (l InvoiceLine) Total() decimal.Decimal {
	total := decimal.Zero
	for _, f := range l.Funds {
		total = total.Add(f.Amount)
	}
	return total
}
