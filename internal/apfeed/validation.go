package apfeed

import (
	"fmt"
	"strings"
	"time"

	"apfeed/pkg/models"
)

// addressSelectLength is the number of characters an address-select vendor
// number must have after spaces are removed.
const addressSelectLength = 14

// validateInvoice checks the invoice-level rules. A non-nil result rejects
// every line of the invoice.
func validateInvoice(h models.InvoiceHeader, now time.Time) error {
	if h.InvoiceDate.After(now) {
		return &InvoiceError{
			InvoiceNumber: h.InvoiceNumber,
			Err:           ErrFutureInvoice,
			Details:       fmt.Sprintf("dated %s", h.InvoiceDate.Format("2006-01-02")),
		}
	}

	if n := len(h.NormalizedAddressSelect()); n != addressSelectLength {
		err := ErrShortAddressSelect
		if n > addressSelectLength {
			err = ErrLongAddressSelect
		}
		return &InvoiceError{
			InvoiceNumber: h.InvoiceNumber,
			Err:           err,
			Details:       fmt.Sprintf("%q has %d characters", h.AddressSelectNumber, n),
		}
	}

	return nil
}

// validateLine checks the line-level rules for one fund split.
func validateLine(h models.InvoiceHeader, line models.InvoiceLine, fund models.FundAllocation, code TaxCode, inv InvoiceTax, s Settings) error {
	if !code.Taxed() {
		return nil
	}

	var missing []string
	if inv.GoodsReceived.IsZero() {
		missing = append(missing, "goods received date")
	}
	if strings.TrimSpace(s.ShipZip) == "" {
		missing = append(missing, "shipping zip")
	}
	if strings.TrimSpace(s.ShipState) == "" {
		missing = append(missing, "shipping state")
	}
	if len(missing) == 0 {
		return nil
	}

	return &LineError{
		InvoiceNumber: h.InvoiceNumber,
		LineNumber:    line.LineNumber,
		Account:       fund.ExternalAccountID,
		Err:           ErrMissingTaxField,
		Details:       fmt.Sprintf("tax code %s without %s", code, strings.Join(missing, ", ")),
	}
}
