package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

// RangeReader reads a cell range from a spreadsheet. *sheets.Service
// implements it.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// SheetSource reads payment rows from a worksheet laid out like the CSV
// extract, header row first.
type SheetSource struct {
	reader RangeReader
	sheet  string
	log    zerolog.Logger
}

// NewSheetSource creates a source over the named worksheet.
func NewSheetSource(reader RangeReader, sheet string) *SheetSource {
	return &SheetSource{
		reader: reader,
		sheet:  sheet,
		log:    logger.WithComponent("ledger-sheet"),
	}
}

// Payments returns the rows whose invoice number is in invoiceNumbers, in
// sheet order. Rows that cannot be parsed are logged and skipped.
func (s *SheetSource) Payments(ctx context.Context, invoiceNumbers []string) ([]models.PaymentRecord, error) {
	const op = "SheetSource.Payments"

	s.log.Info().Str("sheet", s.sheet).Msg("Reading ledger payment rows")

	values, err := s.reader.ReadRange(ctx, fmt.Sprintf("'%s'!A:H", s.sheet))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, s.sheet, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %s sheet is empty", op, s.sheet)
	}

	wanted := make(map[string]bool, len(invoiceNumbers))
	for _, n := range invoiceNumbers {
		wanted[n] = true
	}

	var out []models.PaymentRecord
	for i, row := range values[1:] {
		rowNum := i + 2 // header row and 1-based rows

		cells := make([]string, len(Columns))
		for j := range cells {
			if j < len(row) {
				cells[j] = fmt.Sprint(row[j])
			}
		}

		rec, err := ParseRow(cells)
		if err != nil {
			s.log.Warn().
				Err(err).
				Int("row", rowNum).
				Str("sheet", s.sheet).
				Msg("Failed to parse ledger row, skipping")
			continue
		}
		if wanted[rec.InvoiceNumber] {
			out = append(out, rec)
		}
	}

	s.log.Info().
		Int("total_rows", len(values)-1).
		Int("matched_rows", len(out)).
		Str("sheet", s.sheet).
		Msg("Ledger payment rows read successfully")

	return out, nil
}
