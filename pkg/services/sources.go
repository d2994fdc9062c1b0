package services

import (
	"context"

	"apfeed/pkg/models"
)

// InvoiceSource lists acquisitions invoices that are waiting for payment.
type InvoiceSource interface {
	// WaitingInvoices returns every invoice matching query whose payment
	// status is still unpaid.
	WaitingInvoices(ctx context.Context, query string) ([]models.Invoice, error)
}

// VendorDirectory maps acquisitions vendor codes to ledger vendor ids.
type VendorDirectory interface {
	LedgerVendorIDs(ctx context.Context, vendorCodes []string) (map[string]string, error)
}

// PaymentSource returns ledger payment rows for a set of invoice numbers.
type PaymentSource interface {
	Payments(ctx context.Context, invoiceNumbers []string) ([]models.PaymentRecord, error)
}

// ReportSink receives the running totals of a feed run and the outcome of a
// reconciliation run.
type ReportSink interface {
	WriteTotals(ctx context.Context, runID string, accounts []models.AccountTotal, invoices []models.InvoiceTotal) error
	WriteReconciliation(ctx context.Context, runID string, rows []models.ReconciliationRow) error
}
