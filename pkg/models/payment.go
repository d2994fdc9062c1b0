package models

import "github.com/shopspring/decimal"

// PaymentRecord is one ledger payment row. Rows have no identity beyond
// their fields, and several rows may share an invoice number.
type PaymentRecord struct {
	DocNum        string          `json:"doc_num"`
	VendorID      string          `json:"vendor_id"`
	VendorName    string          `json:"vendor_name"`
	InvoiceNumber string          `json:"invoice_number"`
	CheckNum      string          `json:"check_num"`
	PayAmount     decimal.Decimal `json:"pay_amount"`
	PayDate       string          `json:"pay_date"` // YYYYMMDD as reported by the ledger
	DocType       string          `json:"doc_type"`
}

// SamePayment reports whether two rows describe the same payment, i.e. they
// are equal in every field except the document number.
func (p PaymentRecord) SamePayment(other PaymentRecord) bool {
	return p.VendorID == other.VendorID &&
		p.VendorName == other.VendorName &&
		p.InvoiceNumber == other.InvoiceNumber &&
		p.CheckNum == other.CheckNum &&
		p.PayAmount.Equal(other.PayAmount) &&
		p.PayDate == other.PayDate &&
		p.DocType == other.DocType
}
