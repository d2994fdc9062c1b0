package models

import "github.com/shopspring/decimal"

// AccountTotal is the running base amount and tax for one external account.
type AccountTotal struct {
	Account string
	Amount  decimal.Decimal
	Tax     decimal.Decimal
}

// InvoiceTotal is the running base amount and tax for one invoice.
type InvoiceTotal struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	Tax           decimal.Decimal
}

// ReconciliationStatus describes how an invoice left the reconciliation run.
type ReconciliationStatus string

const (
	StatusPaid     ReconciliationStatus = "PAID"
	StatusMismatch ReconciliationStatus = "MISMATCH"
	StatusSkipped  ReconciliationStatus = "SKIPPED"
)

// ReconciliationRow is one line of the reconciliation report.
type ReconciliationRow struct {
	InvoiceNumber string
	VendorCode    string
	Expected      decimal.Decimal
	Paid          decimal.Decimal
	CheckNum      string
	PayDate       string
	Status        ReconciliationStatus
	Detail        string
}
