package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"apfeed/pkg/models"
)

// CSVSource reads payment rows from a CSV extract with the Columns layout.
// A header row is recognized and skipped.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source reading path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Payments returns the rows whose invoice number is in invoiceNumbers, in file
// order. An empty invoiceNumbers returns no rows.
func (s *CSVSource) Payments(ctx context.Context, invoiceNumbers []string) ([]models.PaymentRecord, error) {
	const op = "CSVSource.Payments"

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	rows, err := ReadCSV(ctx, f, invoiceNumbers)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, s.path, err)
	}
	return rows, nil
}

// ReadCSV parses ledger rows from r, keeping those for invoiceNumbers.
func ReadCSV(ctx context.Context, r io.Reader, invoiceNumbers []string) ([]models.PaymentRecord, error) {
	wanted := make(map[string]bool, len(invoiceNumbers))
	for _, n := range invoiceNumbers {
		wanted[n] = true
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	var out []models.PaymentRecord
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && row[0] == Columns[0] {
			continue
		}

		rec, err := ParseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if wanted[rec.InvoiceNumber] {
			out = append(out, rec)
		}
	}
	return out, nil
}
