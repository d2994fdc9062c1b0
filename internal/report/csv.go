package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

// CSVWriter writes each table to its own file next to path, named
// <base>_<table>.csv; for example report.csv becomes report_accounts.csv.
type CSVWriter struct {
	path string
	log  zerolog.Logger
}

// NewCSVWriter creates a writer for path.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path: path,
		log:  logger.WithComponent("report-csv"),
	}
}

// WriteTotals implements services.ReportSink.
func (w *CSVWriter) WriteTotals(_ context.Context, runID string, accounts []models.AccountTotal, invoices []models.InvoiceTotal) error {
	if err := w.write(AccountsTable(runID, accounts)); err != nil {
		return err
	}
	return w.write(InvoicesTable(runID, invoices))
}

// WriteReconciliation implements services.ReportSink.
func (w *CSVWriter) WriteReconciliation(_ context.Context, runID string, rows []models.ReconciliationRow) error {
	return w.write(ReconciliationTable(runID, rows))
}

// TablePath returns the file a table is written to.
func (w *CSVWriter) TablePath(table string) string {
	ext := filepath.Ext(w.path)
	base := strings.TrimSuffix(w.path, ext)
	return base + "_" + strings.ToLower(table) + ext
}

func (w *CSVWriter) write(t Table) error {
	const op = "CSVWriter.write"

	path := w.TablePath(t.Name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	w.log.Info().Str("path", path).Int("rows", len(t.Rows)).Msg("Wrote report table")
	return nil
}
