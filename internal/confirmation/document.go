// Package confirmation builds the payment confirmation file that marks
// invoices as paid in the acquisitions system.
package confirmation

import (
	"encoding/xml"
	"fmt"
	"io"

	"apfeed/pkg/models"
)

const (
	// Namespace is the default namespace of the confirmation document.
	Namespace = "http://com/exlibris/repository/acq/xmlbeans"

	// StatusPaid is the only payment status ever reported.
	StatusPaid = "PAID"

	currencyUSD = "USD"
	dateLayout  = "20060102"
	indent      = "   "
)

// Entry is one paid invoice.
type Entry struct {
	XMLName              xml.Name      `xml:"invoice"`
	InvoiceNumber        string        `xml:"invoice_number"`
	UniqueIdentifier     string        `xml:"unique_identifier"`
	InvoiceDate          string        `xml:"invoice_date"`
	VendorCode           string        `xml:"vendor_code"`
	PaymentStatus        string        `xml:"payment_status"`
	PaymentVoucherDate   string        `xml:"payment_voucher_date"`
	PaymentVoucherNumber string        `xml:"payment_voucher_number"`
	VoucherAmount        VoucherAmount `xml:"voucher_amount"`
}

// VoucherAmount is the currency and sum pair of an entry.
type VoucherAmount struct {
	Currency string `xml:"currency"`
	Sum      string `xml:"sum"`
}

type invoiceList struct {
	Invoices []Entry `xml:"invoice"`
}

type paymentConfirmationData struct {
	XMLName     xml.Name    `xml:"payment_confirmation_data"`
	Xmlns       string      `xml:"xmlns,attr"`
	InvoiceList invoiceList `xml:"invoice_list"`
}

// Document collects confirmation entries. Entries are kept in the order they
// were added and are never removed.
type Document struct {
	entries []Entry
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// Add appends an entry built from the invoice header and its matched
// ledger payment.
func (d *Document) Add(header models.InvoiceHeader, payment models.PaymentRecord) {
	var invoiceDate string
	if !header.InvoiceDate.IsZero() {
		invoiceDate = header.InvoiceDate.Format(dateLayout)
	}

	d.entries = append(d.entries, Entry{
		InvoiceNumber:        header.InvoiceNumber,
		UniqueIdentifier:     header.UniqueID,
		InvoiceDate:          invoiceDate,
		VendorCode:           header.VendorCode,
		PaymentStatus:        StatusPaid,
		PaymentVoucherDate:   payment.PayDate,
		PaymentVoucherNumber: payment.CheckNum,
		VoucherAmount: VoucherAmount{
			Currency: currencyUSD,
			Sum:      payment.PayAmount.String(),
		},
	})
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.entries)
}

// Entries returns a copy of the entries.
func (d *Document) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// WriteXML writes the document with an XML declaration and three-space
// indentation. An empty document is written with a self-closing invoice_list.
func (d *Document) WriteXML(w io.Writer) error {
	const op = "WriteXML"

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if len(d.entries) == 0 {
		empty := fmt.Sprintf("<payment_confirmation_data xmlns=%q>\n%s<invoice_list/>\n</payment_confirmation_data>\n", Namespace, indent)
		if _, err := io.WriteString(w, empty); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", indent)
	root := paymentConfirmationData{
		Xmlns:       Namespace,
		InvoiceList: invoiceList{Invoices: d.entries},
	}
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("%s: failed to encode document: %w", op, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
