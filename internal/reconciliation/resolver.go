package reconciliation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"apfeed/pkg/models"
)

// SkipResolver never guesses: every ambiguous invoice number is skipped.
type SkipResolver struct{}

// Resolve implements Resolver.
func (SkipResolver) Resolve(context.Context, string, []models.PaymentRecord) (Decision, error) {
	return Skip(), nil
}

// ConsoleResolver asks an operator to pick a candidate. It prints the
// candidates to out and reads a 1-based choice, or 0 for none, from in.
type ConsoleResolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleResolver creates a resolver reading answers from in.
func NewConsoleResolver(in io.Reader, out io.Writer) *ConsoleResolver {
	return &ConsoleResolver{in: bufio.NewReader(in), out: out}
}

// Resolve implements Resolver. End of input answers skip.
func (c *ConsoleResolver) Resolve(ctx context.Context, invoiceNumber string, candidates []models.PaymentRecord) (Decision, error) {
	fmt.Fprintf(c.out, "\nMultiple payment records for invoice %s:\n", invoiceNumber)
	fmt.Fprintf(c.out, "  %3s  %-12s %-12s %-30s %-12s %12s  %-8s %s\n",
		"#", "doc_num", "vendor_id", "vendor_name", "check_num", "pay_amount", "pay_date", "doc_type")
	for i, p := range candidates {
		fmt.Fprintf(c.out, "  %3d  %-12s %-12s %-30.30s %-12s %12s  %-8s %s\n",
			i+1, p.DocNum, p.VendorID, p.VendorName, p.CheckNum, p.PayAmount.StringFixed(2), p.PayDate, p.DocType)
	}

	for {
		if err := ctx.Err(); err != nil {
			return Skip(), err
		}

		fmt.Fprintf(c.out, "Choose 1-%d, or 0 for none: ", len(candidates))
		answer, err := c.in.ReadString('\n')
		answer = strings.TrimSpace(answer)

		if answer != "" {
			n, convErr := strconv.Atoi(answer)
			switch {
			case convErr != nil || n < 0 || n > len(candidates):
				fmt.Fprintf(c.out, "Invalid choice %q\n", answer)
			case n == 0:
				return Skip(), nil
			default:
				return Choose(n - 1), nil
			}
		}

		if errors.Is(err, io.EOF) {
			return Skip(), nil
		}
		if err != nil {
			return Skip(), fmt.Errorf("failed to read choice: %w", err)
		}
	}
}
