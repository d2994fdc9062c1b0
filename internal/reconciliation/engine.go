package reconciliation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

// Engine matches ledger payment rows to invoice numbers.
type Engine struct {
	resolver Resolver
	log      zerolog.Logger
}

// NewEngine creates an engine. A nil resolver skips every ambiguous invoice.
func NewEngine(resolver Resolver) *Engine {
	if resolver == nil {
		resolver = SkipResolver{}
	}
	return &Engine{
		resolver: resolver,
		log:      logger.WithComponent("reconciliation-engine"),
	}
}

type group struct {
	invoiceNumber string
	rows          []models.PaymentRecord
}

// Reconcile groups rows by invoice number and resolves each group to at most
// one row:
//
//  1. rows whose vendor id disagrees with a non-empty vendorHint entry are dropped
//  2. rows equal to an earlier row except for doc_num are dropped as duplicates
//  3. a single remaining row is accepted
//  4. several remaining rows go to the resolver, which chooses one or skips
//
// Invoice numbers with no remaining rows are absent from the result. Only a
// cancelled context is returned as an error; resolver failures skip the
// invoice number.
func (e *Engine) Reconcile(ctx context.Context, rows []models.PaymentRecord, vendorHint map[string]string) (*Result, error) {
	const op = "Reconcile"

	result := &Result{Matched: make(map[string]models.PaymentRecord)}

	groups := e.group(rows, vendorHint, result)

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%s: %w", op, err)
		}

		switch len(g.rows) {
		case 0:
			continue
		case 1:
			result.Matched[g.invoiceNumber] = g.rows[0]
			continue
		}

		log := e.log.With().
			Str("invoice_number", g.invoiceNumber).
			Int("candidates", len(g.rows)).
			Logger()

		decision, err := e.resolver.Resolve(ctx, g.invoiceNumber, g.rows)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, fmt.Errorf("%s: %w", op, ctxErr)
			}
			log.Warn().Err(err).Msg("Resolver failed, skipping invoice")
			result.Ambiguous = append(result.Ambiguous, g.invoiceNumber)
			continue
		}

		idx, ok := decision.Chosen()
		if !ok {
			log.Warn().Msg("Multiple payment records, skipping invoice")
			result.Ambiguous = append(result.Ambiguous, g.invoiceNumber)
			continue
		}
		if idx < 0 || idx >= len(g.rows) {
			log.Warn().Int("choice", idx).Msg("Resolver chose a candidate out of range, skipping invoice")
			result.Ambiguous = append(result.Ambiguous, g.invoiceNumber)
			continue
		}

		log.Info().
			Int("choice", idx).
			Str("doc_num", g.rows[idx].DocNum).
			Msg("Resolved multiple payment records")
		result.Matched[g.invoiceNumber] = g.rows[idx]
	}

	e.log.Info().
		Int("rows", len(rows)).
		Int("invoices", len(groups)).
		Int("matched", len(result.Matched)).
		Int("ambiguous", len(result.Ambiguous)).
		Int("duplicates", result.Duplicates).
		Int("vendor_mismatches", result.VendorMismatches).
		Msg("Reconciliation completed")

	return result, nil
}

// group buckets rows by invoice number in first-seen order, applying the
// vendor filter and dropping duplicates on the way.
func (e *Engine) group(rows []models.PaymentRecord, vendorHint map[string]string, result *Result) []*group {
	var groups []*group
	index := make(map[string]*group)

	for _, row := range rows {
		g, ok := index[row.InvoiceNumber]
		if !ok {
			g = &group{invoiceNumber: row.InvoiceNumber}
			index[row.InvoiceNumber] = g
			groups = append(groups, g)
		}

		if want := vendorHint[row.InvoiceNumber]; want != "" && want != row.VendorID {
			e.log.Debug().
				Str("invoice_number", row.InvoiceNumber).
				Str("vendor_id", row.VendorID).
				Str("expected_vendor_id", want).
				Msg("Dropping payment record for another vendor")
			result.VendorMismatches++
			continue
		}

		if containsPayment(g.rows, row) {
			e.log.Debug().
				Str("invoice_number", row.InvoiceNumber).
				Str("doc_num", row.DocNum).
				Msg("Dropping duplicate payment record")
			result.Duplicates++
			continue
		}

		g.rows = append(g.rows, row)
	}

	return groups
}

func containsPayment(rows []models.PaymentRecord, row models.PaymentRecord) bool {
	for _, r := range rows {
		if r.SamePayment(row) {
			return true
		}
	}
	return false
}
