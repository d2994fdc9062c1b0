package reconciliation

import (
	"context"
	"fmt"
	"sort"

	"apfeed/pkg/models"
)

// Decision is a resolver's answer for an ambiguous invoice number: either
// one of the candidates by index or skip.
type Decision struct {
	index int
	skip  bool
}

// Choose selects the candidate at index.
func Choose(index int) Decision {
	return Decision{index: index}
}

// Skip leaves the invoice number unresolved.
func Skip() Decision {
	return Decision{skip: true}
}

// Chosen returns the selected index, or false when the decision is skip.
func (d Decision) Chosen() (int, bool) {
	if d.skip {
		return 0, false
	}
	return d.index, true
}

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d.skip {
		return "skip"
	}
	return fmt.Sprintf("choose(%d)", d.index)
}

// Resolver picks between payment rows that survived vendor filtering and
// deduplication but still disagree. Candidates are in encounter order.
type Resolver interface {
	Resolve(ctx context.Context, invoiceNumber string, candidates []models.PaymentRecord) (Decision, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, invoiceNumber string, candidates []models.PaymentRecord) (Decision, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, invoiceNumber string, candidates []models.PaymentRecord) (Decision, error) {
	return f(ctx, invoiceNumber, candidates)
}

// Result is the outcome of one reconciliation run.
type Result struct {
	// Matched maps an invoice number to its single resolved payment row.
	Matched map[string]models.PaymentRecord

	// Ambiguous lists invoice numbers left unresolved because several
	// different rows remained, in encounter order.
	Ambiguous []string

	// Duplicates counts rows dropped as repeats of the same payment.
	Duplicates int

	// VendorMismatches counts rows dropped because their vendor disagreed
	// with the vendor hint.
	VendorMismatches int
}

// InvoiceNumbers returns the matched invoice numbers in sorted order.
func (r *Result) InvoiceNumbers() []string {
	nums := make([]string, 0, len(r.Matched))
	for n := range r.Matched {
		nums = append(nums, n)
	}
	sort.Strings(nums)
	return nums
}
