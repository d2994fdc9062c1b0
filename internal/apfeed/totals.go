package apfeed

import (
	"github.com/shopspring/decimal"

	"apfeed/pkg/models"
)

// Totals accumulates the running base amount and tax per account and per
// invoice while lines are added to a feed.
type Totals struct {
	accounts     map[string]*models.AccountTotal
	invoices     map[string]*models.InvoiceTotal
	accountOrder []string
	invoiceOrder []string
}

// NewTotals returns empty totals.
func NewTotals() *Totals {
	return &Totals{
		accounts: make(map[string]*models.AccountTotal),
		invoices: make(map[string]*models.InvoiceTotal),
	}
}

// Add records one emitted line. The tax is amount × rate when the code is
// taxed, and zero otherwise.
func (t *Totals) Add(account, invoiceNumber string, amount decimal.Decimal, code TaxCode, rate decimal.Decimal) {
	tax := decimal.Zero
	if code.Taxed() {
		tax = amount.Mul(rate)
	}

	acct, ok := t.accounts[account]
	if !ok {
		acct = &models.AccountTotal{Account: account}
		t.accounts[account] = acct
		t.accountOrder = append(t.accountOrder, account)
	}
	acct.Amount = acct.Amount.Add(amount)
	acct.Tax = acct.Tax.Add(tax)

	inv, ok := t.invoices[invoiceNumber]
	if !ok {
		inv = &models.InvoiceTotal{InvoiceNumber: invoiceNumber}
		t.invoices[invoiceNumber] = inv
		t.invoiceOrder = append(t.invoiceOrder, invoiceNumber)
	}
	inv.Amount = inv.Amount.Add(amount)
	inv.Tax = inv.Tax.Add(tax)
}

// Account returns the running total of one account.
func (t *Totals) Account(account string) (models.AccountTotal, bool) {
	a, ok := t.accounts[account]
	if !ok {
		return models.AccountTotal{}, false
	}
	return *a, true
}

// Invoice returns the running total of one invoice.
func (t *Totals) Invoice(invoiceNumber string) (models.InvoiceTotal, bool) {
	inv, ok := t.invoices[invoiceNumber]
	if !ok {
		return models.InvoiceTotal{}, false
	}
	return *inv, true
}

// Accounts returns the account totals in first-seen order.
func (t *Totals) Accounts() []models.AccountTotal {
	out := make([]models.AccountTotal, 0, len(t.accountOrder))
	for _, a := range t.accountOrder {
		out = append(out, *t.accounts[a])
	}
	return out
}

// Invoices returns the invoice totals in first-seen order.
func (t *Totals) Invoices() []models.InvoiceTotal {
	out := make([]models.InvoiceTotal, 0, len(t.invoiceOrder))
	for _, n := range t.invoiceOrder {
		out = append(out, *t.invoices[n])
	}
	return out
}
