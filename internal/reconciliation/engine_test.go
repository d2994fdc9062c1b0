package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apfeed/pkg/models"
)

func payment(doc, vendor, invoice, check, amount string) models.PaymentRecord {
	return models.PaymentRecord{
		DocNum:        doc,
		VendorID:      vendor,
		VendorName:    "VENDOR " + vendor,
		InvoiceNumber: invoice,
		CheckNum:      check,
		PayAmount:     decimal.RequireFromString(amount),
		PayDate:       "20161220",
		DocType:       "DV",
	}
}

func TestEngine_SingleRowIsMatched(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "8563-0", "INV1", "V1", "38.10"),
		payment("D2", "1000-1", "INV2", "V2", "12.00"),
	}

	result, err := NewEngine(nil).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)

	assert.Len(t, result.Matched, 2)
	assert.Equal(t, "D1", result.Matched["INV1"].DocNum)
	assert.Equal(t, "D2", result.Matched["INV2"].DocNum)
	assert.Empty(t, result.Ambiguous)
	assert.Equal(t, []string{"INV1", "INV2"}, result.InvoiceNumbers())
}

func TestEngine_DuplicatesCollapse(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "8563-0", "INV1", "V1", "38.10"),
		payment("D2", "8563-0", "INV1", "V1", "38.1"),
		payment("D3", "8563-0", "INV1", "V1", "38.10"),
	}

	result, err := NewEngine(nil).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)

	require.Contains(t, result.Matched, "INV1")
	assert.Equal(t, "D1", result.Matched["INV1"].DocNum, "first row of a duplicate set is kept")
	assert.Equal(t, 2, result.Duplicates)
	assert.Empty(t, result.Ambiguous)
}

func TestEngine_ConflictingRowsAreSkippedByDefault(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "8563-0", "INV1", "V1", "38.10"),
		payment("D2", "8563-0", "INV1", "V2", "38.10"),
		payment("D3", "1000-1", "INV2", "V3", "5.00"),
	}

	result, err := NewEngine(nil).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)

	assert.NotContains(t, result.Matched, "INV1")
	assert.Contains(t, result.Matched, "INV2")
	assert.Equal(t, []string{"INV1"}, result.Ambiguous)
}

func TestEngine_VendorHintDropsOtherVendors(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "9999-9", "INV1", "V9", "38.10"),
		payment("D2", "8563-0", "INV1", "V1", "38.10"),
		payment("D3", "9999-9", "INV2", "V8", "5.00"),
	}
	hint := map[string]string{
		"INV1": "8563-0",
		"INV2": "1000-1",
		"INV3": "",
	}

	result, err := NewEngine(nil).Reconcile(context.Background(), rows, hint)
	require.NoError(t, err)

	require.Contains(t, result.Matched, "INV1")
	assert.Equal(t, "D2", result.Matched["INV1"].DocNum)
	assert.NotContains(t, result.Matched, "INV2", "invoice with only other-vendor rows is absent")
	assert.Equal(t, 2, result.VendorMismatches)
	assert.Empty(t, result.Ambiguous)
}

func TestEngine_EmptyHintKeepsRows(t *testing.T) {
	rows := []models.PaymentRecord{payment("D1", "9999-9", "INV1", "V1", "1.00")}

	result, err := NewEngine(nil).Reconcile(context.Background(), rows, map[string]string{"INV1": ""})
	require.NoError(t, err)
	assert.Contains(t, result.Matched, "INV1")
}

func TestEngine_ResolverChooses(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "8563-0", "INV1", "V1", "38.10"),
		payment("D2", "8563-0", "INV1", "V2", "40.00"),
		payment("D3", "8563-0", "INV1", "V1", "38.10"),
	}

	var seen []models.PaymentRecord
	resolver := ResolverFunc(func(_ context.Context, invoiceNumber string, candidates []models.PaymentRecord) (Decision, error) {
		assert.Equal(t, "INV1", invoiceNumber)
		seen = candidates
		return Choose(1), nil
	})

	result, err := NewEngine(resolver).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)

	require.Len(t, seen, 2, "resolver sees deduplicated candidates in encounter order")
	assert.Equal(t, "D1", seen[0].DocNum)
	assert.Equal(t, "D2", seen[1].DocNum)
	assert.Equal(t, "D2", result.Matched["INV1"].DocNum)
}

func TestEngine_ResolverOutOfRangeSkips(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "8563-0", "INV1", "V1", "38.10"),
		payment("D2", "8563-0", "INV1", "V2", "40.00"),
	}
	resolver := ResolverFunc(func(context.Context, string, []models.PaymentRecord) (Decision, error) {
		return Choose(5), nil
	})

	result, err := NewEngine(resolver).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Equal(t, []string{"INV1"}, result.Ambiguous)
}

func TestEngine_ResolverErrorSkips(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "8563-0", "INV1", "V1", "38.10"),
		payment("D2", "8563-0", "INV1", "V2", "40.00"),
	}
	resolver := ResolverFunc(func(context.Context, string, []models.PaymentRecord) (Decision, error) {
		return Decision{}, errors.New("model unavailable")
	})

	result, err := NewEngine(resolver).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"INV1"}, result.Ambiguous)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := []models.PaymentRecord{payment("D1", "8563-0", "INV1", "V1", "1.00")}

	_, err := NewEngine(nil).Reconcile(ctx, rows, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_AmbiguousInEncounterOrder(t *testing.T) {
	rows := []models.PaymentRecord{
		payment("D1", "1", "B", "V1", "1.00"),
		payment("D2", "1", "A", "V1", "1.00"),
		payment("D3", "1", "B", "V2", "1.00"),
		payment("D4", "1", "A", "V2", "1.00"),
	}

	result, err := NewEngine(nil).Reconcile(context.Background(), rows, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, result.Ambiguous)
}

func TestEngine_EmptyInput(t *testing.T) {
	result, err := NewEngine(nil).Reconcile(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Matched)
	assert.Empty(t, result.Ambiguous)
	assert.Empty(t, result.InvoiceNumbers())
}
