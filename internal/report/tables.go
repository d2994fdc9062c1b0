// Package report writes feed totals and reconciliation outcomes to
// spreadsheets and CSV files.
package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"apfeed/pkg/models"
	"apfeed/pkg/services"
)

// Table names, used as sheet names and CSV file suffixes.
const (
	TableAccounts       = "Accounts"
	TableInvoices       = "Invoices"
	TableReconciliation = "Reconciliation"
)

// Table is a header row plus data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// AccountsTable lays out account totals.
func AccountsTable(runID string, accounts []models.AccountTotal) Table {
	t := Table{
		Name:   TableAccounts,
		Header: []string{"run_id", "account", "amount", "tax", "total"},
	}
	for _, a := range accounts {
		t.Rows = append(t.Rows, []interface{}{
			runID,
			a.Account,
			a.Amount.StringFixed(2),
			a.Tax.StringFixed(2),
			a.Amount.Add(a.Tax).StringFixed(2),
		})
	}
	return t
}

// InvoicesTable lays out invoice totals.
func InvoicesTable(runID string, invoices []models.InvoiceTotal) Table {
	t := Table{
		Name:   TableInvoices,
		Header: []string{"run_id", "invoice_number", "amount", "tax", "total"},
	}
	for _, inv := range invoices {
		t.Rows = append(t.Rows, []interface{}{
			runID,
			inv.InvoiceNumber,
			inv.Amount.StringFixed(2),
			inv.Tax.StringFixed(2),
			inv.Amount.Add(inv.Tax).StringFixed(2),
		})
	}
	return t
}

// ReconciliationTable lays out reconciliation rows.
func ReconciliationTable(runID string, rows []models.ReconciliationRow) Table {
	t := Table{
		Name: TableReconciliation,
		Header: []string{
			"run_id", "invoice_number", "vendor_code", "expected", "paid",
			"check_num", "pay_date", "status", "detail",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []interface{}{
			runID,
			r.InvoiceNumber,
			r.VendorCode,
			r.Expected.StringFixed(2),
			r.Paid.StringFixed(2),
			r.CheckNum,
			r.PayDate,
			string(r.Status),
			r.Detail,
		})
	}
	return t
}

// New returns the file sink for path, chosen by extension: .xlsx or .csv.
func New(path string) (services.ReportSink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return NewXLSXWriter(path), nil
	case ".csv":
		return NewCSVWriter(path), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q, use .xlsx or .csv", filepath.Ext(path))
	}
}

// Multi fans a report out to several sinks. Every sink is attempted; the
// first error is returned.
type Multi []services.ReportSink

// WriteTotals implements services.ReportSink.
func (m Multi) WriteTotals(ctx context.Context, runID string, accounts []models.AccountTotal, invoices []models.InvoiceTotal) error {
	var first error
	for _, s := range m {
		if err := s.WriteTotals(ctx, runID, accounts, invoices); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WriteReconciliation implements services.ReportSink.
func (m Multi) WriteReconciliation(ctx context.Context, runID string, rows []models.ReconciliationRow) error {
	var first error
	for _, s := range m {
		if err := s.WriteReconciliation(ctx, runID, rows); err != nil && first == nil {
			first = err
		}
	}
	return first
}
