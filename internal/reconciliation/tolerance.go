package reconciliation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Mismatch describes a paid amount outside the allowed deviation.
type Mismatch struct {
	Expected  decimal.Decimal
	Paid      decimal.Decimal
	Deviation decimal.Decimal
	Allowed   decimal.Decimal
}

// String implements fmt.Stringer.
func (m Mismatch) String() string {
	return fmt.Sprintf("paid %s, expected %s (deviation %s, allowed %s)",
		m.Paid.StringFixed(2), m.Expected.StringFixed(2), m.Deviation.StringFixed(2), m.Allowed.StringFixed(2))
}

// CheckAmount compares a paid amount with the expected invoice total. It
// reports a mismatch when |paid - expected| exceeds |expected| * fraction.
// The magnitude of expected is used so credit memos with negative totals
// get the same allowance as invoices.
func CheckAmount(expected, paid, fraction decimal.Decimal) (Mismatch, bool) {
	deviation := paid.Sub(expected).Abs()
	allowed := expected.Abs().Mul(fraction)

	m := Mismatch{
		Expected:  expected,
		Paid:      paid,
		Deviation: deviation,
		Allowed:   allowed,
	}
	return m, deviation.GreaterThan(allowed)
}
