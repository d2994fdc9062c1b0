package apfeed

import (
	"regexp"
	"strings"
	"time"

	"apfeed/pkg/models"
)

// TaxCode is the payment tax code of a record.
type TaxCode string

const (
	TaxNone TaxCode = "0"
	TaxVAT  TaxCode = "A" // vendor charged VAT
	TaxUse  TaxCode = "C" // use tax owed by the organization
)

// Taxed reports whether the code carries tax.
func (c TaxCode) Taxed() bool {
	return c == TaxVAT || c == TaxUse
}

// Note annotations recognized on invoices and lines.
const (
	NoteAttach = "ATTACH"
	NoteUseTax = "UTAX"
	NoteAttTax = "ATAX" // ATTACH and UTAX together
	NoteNoTax  = "NUTAX"
)

var (
	lineUseTax = regexp.MustCompile(`\bUTAX\b`)
	lineNoTax  = regexp.MustCompile(`\bNUTAX\b`)
)

// InvoiceTax is the invoice-level state every line of the invoice starts from.
type InvoiceTax struct {
	Code          TaxCode
	Attachment    bool
	GoodsReceived time.Time // zero when unknown
}

// AttachmentInd returns the attachment-required indicator, Y or N.
func (t InvoiceTax) AttachmentInd() string {
	if t.Attachment {
		return "Y"
	}
	return "N"
}

// ResolveInvoice derives the goods-received date, the attachment flag and the
// default tax code of an invoice. VAT is checked first; a UTAX or ATAX note
// then overrides the code to use tax.
func ResolveInvoice(h models.InvoiceHeader) InvoiceTax {
	var t InvoiceTax

	switch {
	case len(h.Notes) > 0:
		t.GoodsReceived = h.Notes[0].CreatedAt
	case !h.CreatedAt.IsZero():
		t.GoodsReceived = h.CreatedAt
	}

	t.Code = TaxNone
	if h.VATAmount.IsPositive() {
		t.Code = TaxVAT
	}

	for _, n := range h.Notes {
		switch strings.TrimSpace(n.Content) {
		case NoteAttach:
			t.Attachment = true
		case NoteUseTax:
			t.Code = TaxUse
		case NoteAttTax:
			t.Attachment = true
			t.Code = TaxUse
		}
	}

	return t
}

// ResolveLine derives a line's tax code from the invoice default and the
// line note. NUTAX only cancels an inherited use tax; UTAX forces use tax.
// Both are matched as whole words.
func ResolveLine(inv InvoiceTax, note string) TaxCode {
	if inv.Code == TaxUse && lineNoTax.MatchString(note) {
		return TaxNone
	}
	if lineUseTax.MatchString(note) {
		return TaxUse
	}
	return inv.Code
}
