// Package alma talks to the acquisitions system: the ERP invoice export it
// writes and the REST API used to find invoices waiting for payment.
package alma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"apfeed/internal/logger"
	"apfeed/pkg/models"
)

const (
	// DefaultQuery selects invoices that are ready to be paid.
	DefaultQuery = "status~ready_to_be_paid"

	// StatusNotPaid is the only payment status kept by WaitingInvoices.
	StatusNotPaid = "NOT_PAID"

	defaultPageSize = 100
	defaultWorkers  = 20
	apiDateLayout   = "2006-01-02"
)

// ClientConfig holds the REST API settings.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	PageSize   int
	Workers    int
	HTTPClient *http.Client
}

// Client reads invoices and vendors from the acquisitions REST API.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	workers  int
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates a client. Zero page size and worker count fall back to
// 100 and 20.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
		http:     cfg.HTTPClient,
		log:      logger.WithComponent("alma-client"),
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 60 * time.Second}
	}
	return c
}

type valueField struct {
	Value string `json:"value"`
	Desc  string `json:"desc"`
}

type apiInvoice struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	InvoiceDate string          `json:"invoice_date"`
	Vendor      valueField      `json:"vendor"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    valueField      `json:"currency"`
	Payment     struct {
		PaymentStatus valueField `json:"payment_status"`
	} `json:"payment"`
}

type invoicePage struct {
	TotalRecordCount int          `json:"total_record_count"`
	Invoice          []apiInvoice `json:"invoice"`
}

// WaitingInvoices returns the invoices matching query whose payment status is
// NOT_PAID. An empty query means DefaultQuery.
//
// The first page reports the total record count; the remaining pages are
// fetched in parallel. When a page fails, or the pages hold fewer invoices
// than the reported total, the invoices that did arrive are returned together
// with an *IncompleteFetchError.
func (c *Client) WaitingInvoices(ctx context.Context, query string) ([]models.Invoice, error) {
	const op = "WaitingInvoices"

	if query == "" {
		query = DefaultQuery
	}

	first, err := c.fetchPage(ctx, query, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	total := first.TotalRecordCount
	var offsets []int
	for off := c.pageSize; off < total; off += c.pageSize {
		offsets = append(offsets, off)
	}

	c.log.Info().
		Str("query", query).
		Int("total_record_count", total).
		Int("pages", len(offsets)+1).
		Msg("Fetching waiting invoices")

	pages := make([][]apiInvoice, len(offsets))
	var (
		mu       sync.Mutex
		pageErrs []error
	)

	g := new(errgroup.Group)
	g.SetLimit(c.workers)
	for i, off := range offsets {
		g.Go(func() error {
			page, err := c.fetchPage(ctx, query, off)
			if err != nil {
				c.log.Error().Err(err).Int("offset", off).Msg("Failed to fetch invoice page")
				mu.Lock()
				pageErrs = append(pageErrs, fmt.Errorf("offset %d: %w", off, err))
				mu.Unlock()
				return nil
			}
			pages[i] = page.Invoice
			return nil
		})
	}
	_ = g.Wait()

	raw := append([]apiInvoice(nil), first.Invoice...)
	for _, p := range pages {
		raw = append(raw, p...)
	}

	invoices := make([]models.Invoice, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, ai := range raw {
		if status := ai.Payment.PaymentStatus.Value; status != StatusNotPaid {
			c.log.Warn().
				Str("invoice_number", ai.Number).
				Str("payment_status", status).
				Msg("Invoice payment status is not NOT_PAID, dropping")
			continue
		}
		if seen[ai.Number] {
			continue
		}
		seen[ai.Number] = true
		invoices = append(invoices, ai.invoice())
	}

	if len(raw) < total && len(pageErrs) == 0 {
		pageErrs = append(pageErrs, ErrShortResult)
	}
	if len(pageErrs) > 0 {
		return invoices, fmt.Errorf("%s: %w", op, &IncompleteFetchError{
			Expected: total,
			Got:      len(raw),
			Err:      errors.Join(pageErrs...),
		})
	}

	c.log.Info().
		Int("fetched", len(raw)).
		Int("waiting", len(invoices)).
		Msg("Fetched waiting invoices")

	return invoices, nil
}

func (ai apiInvoice) invoice() models.Invoice {
	var date time.Time
	// invoice_date carries a zone suffix, e.g. 2016-12-05Z
	if len(ai.InvoiceDate) >= len(apiDateLayout) {
		date, _ = time.ParseInLocation(apiDateLayout, ai.InvoiceDate[:len(apiDateLayout)], time.Local)
	}
	return models.Invoice{
		Header: models.InvoiceHeader{
			UniqueID:      ai.ID,
			InvoiceNumber: ai.Number,
			VendorCode:    ai.Vendor.Value,
			InvoiceDate:   date,
			TotalAmount:   ai.TotalAmount,
			Currency:      ai.Currency.Value,
		},
	}
}

func (c *Client) fetchPage(ctx context.Context, query string, offset int) (*invoicePage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("offset", strconv.Itoa(offset))

	var page invoicePage
	if err := c.get(ctx, "/acq/invoices", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// get performs a GET against the API and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	params.Set("format", "json")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: %w: %d %s", path, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}
	return nil
}
