package reconciliation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckAmount(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name     string
		expected string
		paid     string
		fraction string
		mismatch bool
	}{
		{name: "exact", expected: "100.00", paid: "100.00", fraction: "0", mismatch: false},
		{name: "zero tolerance", expected: "100.00", paid: "100.01", fraction: "0", mismatch: true},
		{name: "within", expected: "100.00", paid: "100.99", fraction: "0.01", mismatch: false},
		{name: "at the edge", expected: "100.00", paid: "101.00", fraction: "0.01", mismatch: false},
		{name: "beyond", expected: "100.00", paid: "101.01", fraction: "0.01", mismatch: true},
		{name: "underpaid", expected: "100.00", paid: "98.00", fraction: "0.01", mismatch: true},
		{name: "credit memo within", expected: "-50.00", paid: "-50.40", fraction: "0.01", mismatch: false},
		{name: "credit memo beyond", expected: "-50.00", paid: "-51.00", fraction: "0.01", mismatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, bad := CheckAmount(d(tt.expected), d(tt.paid), d(tt.fraction))
			assert.Equal(t, tt.mismatch, bad)
			assert.True(t, m.Deviation.Equal(d(tt.paid).Sub(d(tt.expected)).Abs()))
		})
	}
}

func TestMismatch_String(t *testing.T) {
	m, _ := CheckAmount(decimal.RequireFromString("100"), decimal.RequireFromString("90"), decimal.RequireFromString("0.05"))
	assert.Equal(t, "paid 90.00, expected 100.00 (deviation 10.00, allowed 5.00)", m.String())
}
