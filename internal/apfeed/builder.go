package apfeed

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

var hundred = decimal.NewFromInt(100)

// Builder accumulates invoices into one feed document. It owns the running
// org document number, the run error list and the report totals.
//
// A Builder is not safe for concurrent use; callers add invoices one at a time.
type Builder struct {
	settings Settings
	runAt    time.Time
	orgDoc   int
	lines    []string
	errs     []error
	totals   *Totals
	log      zerolog.Logger
}

// NewBuilder starts a feed at runAt. lastOrgDoc is the last org document
// number used by a previous run.
func NewBuilder(settings Settings, lastOrgDoc int, runAt time.Time) *Builder {
	return &Builder{
		settings: settings,
		runAt:    runAt,
		orgDoc:   lastOrgDoc,
		totals:   NewTotals(),
		log:      logger.WithComponent("apfeed-builder"),
	}
}

// AddInvoice encodes every line and fund split of inv. The org document
// number is advanced once, before any line is encoded. Rejected invoices and
// lines are recorded in the run error list and returned; accepted lines are
// kept even when siblings are rejected.
func (b *Builder) AddInvoice(inv models.Invoice) error {
	h := inv.Header
	b.orgDoc++

	log := b.log.With().
		Str("invoice_number", h.InvoiceNumber).
		Int("org_doc_nbr", b.orgDoc).
		Logger()

	if err := validateInvoice(h, b.runAt); err != nil {
		b.errs = append(b.errs, err)
		log.Error().Err(err).Msg("Invoice rejected")
		return err
	}

	state := ResolveInvoice(h)
	var rejected []error
	added := 0

	for _, line := range inv.Lines {
		code := ResolveLine(state, line.Note)

		for _, fund := range line.Funds {
			if err := validateLine(h, line, fund, code, state, b.settings); err != nil {
				rejected = append(rejected, err)
				continue
			}

			encoded, err := b.encode(h, line, fund, code, state)
			if err != nil {
				rejected = append(rejected, &LineError{
					InvoiceNumber: h.InvoiceNumber,
					LineNumber:    line.LineNumber,
					Account:       fund.ExternalAccountID,
					Err:           err,
				})
				continue
			}

			b.lines = append(b.lines, encoded)
			b.totals.Add(fund.ExternalAccountID, h.InvoiceNumber, fund.Amount, code, b.settings.TaxRate)
			added++
		}
	}

	for _, err := range rejected {
		log.Error().Err(err).Msg("Line rejected")
	}
	b.errs = append(b.errs, rejected...)

	log.Debug().
		Int("records", added).
		Int("rejected", len(rejected)).
		Str("tax_code", string(state.Code)).
		Bool("attachment", state.Attachment).
		Msg("Invoice added")

	return errors.Join(rejected...)
}

func (b *Builder) encode(h models.InvoiceHeader, line models.InvoiceLine, fund models.FundAllocation, code TaxCode, state InvoiceTax) (string, error) {
	cents, err := AmountCents(fund.Amount)
	if err != nil {
		return "", err
	}

	rec := Record{
		FeedName:         b.settings.FeedName(),
		RunAt:            b.runAt,
		OrgDocNumber:     b.orgDoc,
		EmployeeInd:      b.settings.EmployeeInd,
		VendorCode:       h.VendorCode,
		InvoiceNumber:    h.InvoiceNumber,
		InvoiceDate:      h.InvoiceDate,
		AddressSelect:    h.NormalizedAddressSelect(),
		GoodsReceived:    state.GoodsReceived,
		ShipZip:          b.settings.ShipZip,
		ShipState:        b.settings.ShipState,
		PaymentGroup:     b.settings.PaymentGroup,
		ScheduledPayment: b.runAt,
		NonCheckInd:      b.settings.NonCheckInd,
		AttachmentInd:    state.AttachmentInd(),
		LineNumber:       line.LineNumber,
		ChartCode:        b.settings.ChartCode,
		Account:          fund.ExternalAccountID,
		ObjectCode:       b.settings.ObjectCode,
		OrgReference:     OrgReference(line.POReference),
		TaxCode:          code,
		AmountCents:      cents,
		ApplyDiscountInd: b.settings.ApplyDiscountInd,
		EFTOverrideInd:   b.settings.EFTOverrideInd,
	}
	return rec.Encode()
}

var (
	maxPositiveCents = decimal.NewFromInt(999999999999)
	maxNegativeCents = decimal.NewFromInt(-99999999999)
)

// AmountCents converts a decimal amount to whole cents, rounding half away
// from zero. Amounts that cannot be written to the amount field are rejected
// before conversion, so they never wrap around int64.
func AmountCents(amount decimal.Decimal) (int64, error) {
	cents := amount.Mul(hundred).Round(0)
	if cents.GreaterThan(maxPositiveCents) || cents.LessThan(maxNegativeCents) {
		return 0, fmt.Errorf("amount %s: %w", amount, ErrFieldOverflow)
	}
	return cents.IntPart(), nil
}

// OrgDocNumber returns the last org document number used.
func (b *Builder) OrgDocNumber() int {
	return b.orgDoc
}

// Count returns the number of records emitted so far.
func (b *Builder) Count() int {
	return len(b.lines)
}

// ErrorCount returns the number of rejected invoices and lines.
func (b *Builder) ErrorCount() int {
	return len(b.errs)
}

// Err returns every rejection of the run joined, or nil.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Totals returns the running report totals.
func (b *Builder) Totals() *Totals {
	return b.totals
}

// Document returns the feed built so far. It fails when any invoice or line
// was rejected: a run with errors produces no document at all.
func (b *Builder) Document() (*Document, error) {
	if n := len(b.errs); n > 0 {
		return nil, fmt.Errorf("feed has %d rejected invoices or lines: %w", n, b.Err())
	}

	lines := make([]string, len(b.lines))
	copy(lines, b.lines)
	return &Document{
		FeedName: b.settings.FeedName(),
		RunAt:    b.runAt,
		lines:    lines,
	}, nil
}
