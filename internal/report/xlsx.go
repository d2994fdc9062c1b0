package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

// XLSXWriter writes each table to its own sheet of one workbook. The
// workbook is saved after every write, so totals and reconciliation rows
// written by the same writer end up in the same file.
type XLSXWriter struct {
	path string
	file *excelize.File
	log  zerolog.Logger
}

// NewXLSXWriter creates a writer saving to path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{
		path: path,
		log:  logger.WithComponent("report-xlsx"),
	}
}

// WriteTotals implements services.ReportSink.
func (w *XLSXWriter) WriteTotals(_ context.Context, runID string, accounts []models.AccountTotal, invoices []models.InvoiceTotal) error {
	return w.write(AccountsTable(runID, accounts), InvoicesTable(runID, invoices))
}

// WriteReconciliation implements services.ReportSink.
func (w *XLSXWriter) WriteReconciliation(_ context.Context, runID string, rows []models.ReconciliationRow) error {
	return w.write(ReconciliationTable(runID, rows))
}

func (w *XLSXWriter) write(tables ...Table) error {
	const op = "XLSXWriter.write"

	fresh := w.file == nil
	if fresh {
		w.file = excelize.NewFile()
	}

	for i, t := range tables {
		if fresh && i == 0 {
			// Reuse the default sheet of a new workbook.
			if err := w.file.SetSheetName(w.file.GetSheetName(0), t.Name); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		} else if idx, _ := w.file.GetSheetIndex(t.Name); idx < 0 {
			if _, err := w.file.NewSheet(t.Name); err != nil {
				return fmt.Errorf("%s: failed to add sheet %s: %w", op, t.Name, err)
			}
		}

		if err := writeSheet(w.file, t); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("%s: failed to save %s: %w", op, w.path, err)
	}

	w.log.Info().Str("path", w.path).Int("sheets", len(tables)).Msg("Wrote report workbook")
	return nil
}

func writeSheet(f *excelize.File, t Table) error {
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}

	cell, err := excelize.CoordinatesToCellName(1, 1)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(t.Name, cell, &header); err != nil {
		return fmt.Errorf("sheet %s header: %w", t.Name, err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(t.Name, cell, &r); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", t.Name, i+2, err)
		}
	}
	return nil
}
