package apfeed

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apfeed/pkg/models"
)

func TestBuilder_AddInvoice(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 41, testRunAt)

	require.NoError(t, b.AddInvoice(sampleInvoice()))
	assert.Equal(t, 42, b.OrgDocNumber())
	assert.Equal(t, 3, b.Count())
	assert.Zero(t, b.ErrorCount())

	doc, err := b.Document()
	require.NoError(t, err)
	line := doc.Lines()[0]

	expected := []struct {
		field Field
		want  string
	}{
		{FieldFeedName, "GENERALLIBRARY "},
		{FieldBatchID, "20170105102400"},
		{FieldOrgDocNumber, "0000042"},
		{FieldEmployeeInd, "N"},
		{FieldVendorCode, "0000002413"},
		{FieldInvoiceNumber, "0201821        "},
		{FieldInvoiceDate, "20161125"},
		{FieldAddressSelect, "00000024130002"},
		{FieldGoodsReceived, "20170104"},
		{FieldShipZip, "95616-5292 "},
		{FieldShipState, "CA"},
		{FieldPaymentGroup, "2"},
		{FieldScheduledPayment, "20170105"},
		{FieldNonCheckInd, "N"},
		{FieldAttachmentInd, "N"},
		{FieldLineNumber, "00018"},
		{FieldChartCode, "3"},
		{FieldAccount, "LGBOOKS"},
		{FieldObjectCode, "9200"},
		{FieldOrgReference, "POL}    "},
		{FieldTaxCode, "0"},
		{FieldAmount, "000000002950"},
		{FieldApplyDiscountInd, "N"},
		{FieldEFTOverrideInd, "N"},
	}
	for _, e := range expected {
		assert.Equal(t, e.want, line[e.field.Start:e.field.End], "field %s", e.field.Name)
	}

	assert.Equal(t, "        ", doc.Lines()[2][FieldOrgReference.Start:FieldOrgReference.End])
}

func TestBuilder_OrgDocNumberPerInvoice(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	future := sampleInvoice()
	future.Header.InvoiceNumber = "FUTURE"
	future.Header.InvoiceDate = testRunAt.AddDate(0, 0, 1)

	require.NoError(t, b.AddInvoice(sampleInvoice()))
	require.Error(t, b.AddInvoice(future))
	require.NoError(t, b.AddInvoice(sampleInvoice()))

	// Rejected invoices still consume a number.
	assert.Equal(t, 3, b.OrgDocNumber())

	lines := b.lines
	require.Len(t, lines, 6)
	assert.Equal(t, "0000001", lines[0][29:36])
	assert.Equal(t, "0000003", lines[3][29:36])
}

func TestBuilder_FutureInvoice(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.InvoiceDate = testRunAt.AddDate(0, 0, 1)

	err := b.AddInvoice(inv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFutureInvoice)

	var invErr *InvoiceError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "0201821", invErr.InvoiceNumber)

	assert.Zero(t, b.Count())
	assert.Equal(t, 1, b.ErrorCount())

	_, err = b.Document()
	assert.ErrorIs(t, err, ErrFutureInvoice)
}

func TestBuilder_InvoiceDatedAtRunInstant(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.InvoiceDate = testRunAt

	assert.NoError(t, b.AddInvoice(inv))
}

func TestBuilder_ShortAddressSelect(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.AddressSelectNumber = "000002413 0002"

	err := b.AddInvoice(inv)
	assert.ErrorIs(t, err, ErrShortAddressSelect)
	assert.Zero(t, b.Count())
}

func TestBuilder_LongAddressSelect(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.AddressSelectNumber = "00000024130 0002"

	err := b.AddInvoice(inv)
	assert.ErrorIs(t, err, ErrLongAddressSelect)

	var invErr *InvoiceError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "0201821", invErr.InvoiceNumber)
	assert.Zero(t, b.Count())
}

func TestBuilder_TaxedLineWithoutGoodsReceived(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.Notes = nil
	inv.Header.CreatedAt = time.Time{}
	inv.Lines[1].Note = "UTAX"

	err := b.AddInvoice(inv)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingTaxField)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 19, lineErr.LineNumber)

	// Untaxed siblings are still encoded.
	assert.Equal(t, 2, b.Count())
	assert.Equal(t, 1, b.ErrorCount())

	_, err = b.Document()
	assert.Error(t, err)
}

func TestBuilder_TaxedLineWithoutShipping(t *testing.T) {
	s := DefaultSettings()
	s.ShipZip = ""

	b := NewBuilder(s, 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.VATAmount = decimal.RequireFromString("2.00")

	err := b.AddInvoice(inv)
	assert.ErrorIs(t, err, ErrMissingTaxField)
	assert.Equal(t, 3, b.ErrorCount())
}

func TestBuilder_FundSplits(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Lines = []models.InvoiceLine{{
		LineNumber: 1,
		Funds: []models.FundAllocation{
			{ExternalAccountID: "LGBOOKS", Amount: decimal.RequireFromString("10.00")},
			{ExternalAccountID: "LGSERLS", Amount: decimal.RequireFromString("-2.50")},
		},
	}}

	require.NoError(t, b.AddInvoice(inv))
	require.Equal(t, 2, b.Count())

	doc, err := b.Document()
	require.NoError(t, err)
	recs, err := doc.Records()
	require.NoError(t, err)

	assert.Equal(t, "LGBOOKS", recs[0].Account)
	assert.Equal(t, int64(1000), recs[0].AmountCents)
	assert.Equal(t, "LGSERLS", recs[1].Account)
	assert.Equal(t, int64(-250), recs[1].AmountCents)
	assert.Equal(t, 1, recs[1].LineNumber)
}

func TestBuilder_Totals(t *testing.T) {
	s := DefaultSettings()
	s.TaxRate = decimal.RequireFromString("0.0725")

	b := NewBuilder(s, 0, testRunAt)

	inv := sampleInvoice()
	inv.Lines[0].Note = "UTAX"
	require.NoError(t, b.AddInvoice(inv))

	books, ok := b.Totals().Account("LGBOOKS")
	require.True(t, ok)
	assert.True(t, books.Amount.Equal(decimal.RequireFromString("59.00")), books.Amount.String())
	assert.True(t, books.Tax.Equal(decimal.RequireFromString("2.13875")), books.Tax.String())

	serials, ok := b.Totals().Account("LGSERLS")
	require.True(t, ok)
	assert.True(t, serials.Tax.IsZero())

	total, ok := b.Totals().Invoice("0201821")
	require.True(t, ok)
	assert.True(t, total.Amount.Equal(decimal.RequireFromString("88.50")))

	accounts := b.Totals().Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "LGBOOKS", accounts[0].Account)
	assert.Equal(t, "LGSERLS", accounts[1].Account)
}

func TestAmountCents(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   int64
	}{
		{name: "whole cents", amount: "29.50", want: 2950},
		{name: "negative", amount: "-12", want: -1200},
		{name: "half cent rounds up", amount: "0.005", want: 1},
		{name: "negative half cent rounds down", amount: "-0.005", want: -1},
		{name: "largest positive", amount: "9999999999.99", want: 999999999999},
		{name: "largest negative", amount: "-999999999.99", want: -99999999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountCents(decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountCents_Overflow(t *testing.T) {
	amounts := []string{
		"10000000000.00",
		"-1000000000.00",
		"9999999999.995",
		"184467440737095516.17",
		"100000000000000000",
		"-100000000000000000",
	}

	for _, amount := range amounts {
		cents, err := AmountCents(decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, ErrFieldOverflow, "amount %s", amount)
		assert.Zero(t, cents, "amount %s", amount)
	}
}

func TestBuilder_AmountOverflowRejectsLine(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Lines[1].Funds[0].Amount = decimal.RequireFromString("184467440737095516.17")

	err := b.AddInvoice(inv)
	require.ErrorIs(t, err, ErrFieldOverflow)

	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 19, lineErr.LineNumber)
	assert.Equal(t, "LGBOOKS", lineErr.Account)

	assert.Equal(t, 2, b.Count())
	_, err = b.Document()
	assert.ErrorIs(t, err, ErrFieldOverflow)
}

func TestBuilder_MultibyteTextTruncatedOnCharacterBoundary(t *testing.T) {
	b := NewBuilder(DefaultSettings(), 0, testRunAt)

	inv := sampleInvoice()
	inv.Header.InvoiceNumber = "RECHNUNG-12345Ä"
	inv.Header.VendorCode = "000000241Ö 0002"

	require.NoError(t, b.AddInvoice(inv))
	doc, err := b.Document()
	require.NoError(t, err)

	for _, line := range doc.Lines() {
		assert.Len(t, line, RecordLength)
		assert.True(t, utf8.ValidString(line))
		assert.Equal(t, "000000241 ", line[FieldVendorCode.Start:FieldVendorCode.End])
		assert.Equal(t, "RECHNUNG-12345 ", line[FieldInvoiceNumber.Start:FieldInvoiceNumber.End])
	}

	parsed, err := ParseDocument(strings.NewReader(doc.String()))
	require.NoError(t, err)
	assert.Equal(t, 3, parsed.Count())
}
