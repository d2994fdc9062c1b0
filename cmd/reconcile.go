package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"apfeed/internal/alma"
	"apfeed/internal/config"
	"apfeed/internal/confirmation"
	"apfeed/internal/ledger"
	"apfeed/internal/logger"
	"apfeed/internal/reconciliation"
	recsvc "apfeed/internal/reconciliation/services"
	"apfeed/internal/sheets"
	"apfeed/pkg/models"
	"apfeed/pkg/services"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Confirm ledger payments for invoices waiting in the acquisitions system",
	Long: `Match accounts payable ledger payments to invoices that are waiting for
payment in the acquisitions system, and write a payment confirmation file the
acquisitions system can load.

Invoices are fetched from the acquisitions REST API. Ledger rows for those
invoice numbers come from the ledger database, a CSV extract or a worksheet of
GOOGLE_SHEET_URL. Rows for
another vendor and repeated rows are dropped; when several different rows
remain, the --resolver decides (skip, interactive or openai).

Required environment variables:
  ALMA_API_KEY         - Acquisitions REST API key
  LEDGER_DATABASE_URL  - Ledger database, unless --ledger-csv or --ledger-sheet is given

Optional environment variables:
  ALMA_API_URL         - REST API base URL
  FETCH_WORKERS        - Parallel page and vendor requests (default: 20)
  LEDGER_QUERY         - Replacement ledger query ($1 = invoice numbers)
  AMOUNT_TOLERANCE     - Allowed relative deviation of the paid amount (default: 0)
  OPENAI_API_KEY       - Required for --resolver openai
  OPENAI_MODEL         - Model for --resolver openai (default: gpt-4o-mini)
  GOOGLE_SHEET_URL     - Spreadsheet for --sheet and --ledger-sheet`,
	Example: `  # Confirm payments from the ledger database
  apfeed reconcile

  # Use a ledger extract and pick between conflicting rows by hand
  apfeed reconcile --ledger-csv payments.csv --resolver interactive

  # Allow a 1% deviation and write a reconciliation workbook
  apfeed reconcile --tolerance 0.01 --report reconcile.xlsx`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("query", alma.DefaultQuery, "Invoice search query")
	reconcileCmd.Flags().Bool("allow-partial", false, "Continue when some invoice pages could not be fetched")
	reconcileCmd.Flags().Bool("no-vendor-hint", false, "Do not drop ledger rows of other vendors")
	reconcileCmd.Flags().String("ledger-csv", "", "Read ledger payment rows from a CSV extract")
	reconcileCmd.Flags().String("ledger-sheet", "", "Read ledger payment rows from this worksheet of GOOGLE_SHEET_URL")
	reconcileCmd.MarkFlagsMutuallyExclusive("ledger-csv", "ledger-sheet")
	reconcileCmd.Flags().String("resolver", "skip", "Conflict resolver: skip, interactive or openai")
	reconcileCmd.Flags().String("tolerance", "", "Allowed relative deviation of the paid amount (default: AMOUNT_TOLERANCE)")
	reconcileCmd.Flags().String("output", "", "Confirmation file (default: update_alma_<unix time>.input.xml)")
	reconcileCmd.Flags().String("report", "", "Write reconciliation rows to a .xlsx or .csv file")
	reconcileCmd.Flags().Bool("sheet", false, "Append reconciliation rows to GOOGLE_SHEET_URL")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithRunID("reconcile", runID)

	query, _ := cmd.Flags().GetString("query")
	allowPartial, _ := cmd.Flags().GetBool("allow-partial")
	noVendorHint, _ := cmd.Flags().GetBool("no-vendor-hint")
	ledgerCSV, _ := cmd.Flags().GetString("ledger-csv")
	ledgerSheet, _ := cmd.Flags().GetString("ledger-sheet")
	resolverName, _ := cmd.Flags().GetString("resolver")
	toleranceStr, _ := cmd.Flags().GetString("tolerance")
	output, _ := cmd.Flags().GetString("output")
	reportPath, _ := cmd.Flags().GetString("report")
	toSheet, _ := cmd.Flags().GetBool("sheet")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tolerance := cfg.AmountTolerance
	if toleranceStr != "" {
		tolerance, err = decimal.NewFromString(toleranceStr)
		if err != nil || tolerance.IsNegative() {
			return fmt.Errorf("invalid --tolerance %q: must be a non-negative decimal", toleranceStr)
		}
	}

	if cfg.AlmaAPIKey == "" {
		return fmt.Errorf("ALMA_API_KEY environment variable is required")
	}
	if output == "" {
		output = fmt.Sprintf("update_alma_%d.input.xml", time.Now().Unix())
	}

	log.Info().
		Str("query", query).
		Str("resolver", resolverName).
		Str("tolerance", tolerance.String()).
		Bool("vendor_hint", !noVendorHint).
		Msg("Starting payment reconciliation")

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	client := alma.NewClient(alma.ClientConfig{
		BaseURL:  cfg.AlmaAPIURL,
		APIKey:   cfg.AlmaAPIKey,
		PageSize: cfg.AlmaPageSize,
		Workers:  cfg.FetchWorkers,
	})

	invoices, err := waitingInvoices(ctx, client, query, allowPartial, log)
	if err != nil {
		return err
	}

	if len(invoices) == 0 {
		log.Info().Msg("No invoices waiting for payment, nothing to update")
		return nil
	}

	headers := make(map[string]models.InvoiceHeader, len(invoices))
	numbers := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		headers[inv.Header.InvoiceNumber] = inv.Header
		numbers = append(numbers, inv.Header.InvoiceNumber)
	}
	sort.Strings(numbers)

	var hint map[string]string
	if !noVendorHint {
		hint, err = vendorHint(ctx, client, invoices)
		if err != nil {
			return fmt.Errorf("failed to build vendor hint: %w", err)
		}
	}

	source, closeSource, err := paymentSource(ctx, cfg, ledgerCSV, ledgerSheet)
	if err != nil {
		return err
	}
	defer closeSource()

	rows, err := source.Payments(ctx, numbers)
	if err != nil {
		return fmt.Errorf("failed to fetch ledger payments: %w", err)
	}

	resolver, err := newResolver(cfg, resolverName, headers)
	if err != nil {
		return err
	}

	result, err := reconciliation.NewEngine(resolver).Reconcile(ctx, rows, hint)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}

	doc, reportRows := confirmPayments(result, headers, tolerance, log)

	printBanner("PAYMENT RECONCILIATION")
	fmt.Fprintf(os.Stderr, "Waiting invoices: %d\n", len(invoices))
	fmt.Fprintf(os.Stderr, "Ledger rows: %d\n", len(rows))
	fmt.Fprintf(os.Stderr, "Paid: %d\n", doc.Len())
	fmt.Fprintf(os.Stderr, "Skipped (ambiguous): %d\n", len(result.Ambiguous))
	fmt.Fprintf(os.Stderr, "Duplicates dropped: %d\n", result.Duplicates)
	fmt.Fprintf(os.Stderr, "Other vendor rows dropped: %d\n", result.VendorMismatches)

	if doc.Len() > 0 {
		if err := writeConfirmation(output, doc); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Confirmation: %s\n", output)
	} else {
		fmt.Fprintln(os.Stderr, "Nothing to update.")
		log.Info().Msg("No paid invoices, nothing to update")
	}
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))

	sinks, err := reportSinks(ctx, cfg, reportPath, toSheet)
	if err != nil {
		return err
	}
	if len(sinks) > 0 {
		if err := sinks.WriteReconciliation(ctx, runID, reportRows); err != nil {
			return fmt.Errorf("failed to write reconciliation report: %w", err)
		}
	}

	log.Info().
		Int("invoices", len(invoices)).
		Int("paid", doc.Len()).
		Int("ambiguous", len(result.Ambiguous)).
		Msg("Payment reconciliation completed")

	return nil
}

// waitingInvoices fetches the invoices to reconcile. A partial list is
// accepted only when allowPartial is set.
func waitingInvoices(ctx context.Context, src services.InvoiceSource, query string, allowPartial bool, log zerolog.Logger) ([]models.Invoice, error) {
	invoices, err := src.WaitingInvoices(ctx, query)
	if err != nil {
		if !errors.Is(err, alma.ErrIncompleteFetch) || !allowPartial {
			return nil, fmt.Errorf("failed to fetch waiting invoices: %w", err)
		}
		log.Warn().Err(err).Int("invoices", len(invoices)).Msg("Continuing with a partial invoice list")
	}
	return invoices, nil
}

// vendorHint maps each invoice number to the ledger vendor id of its vendor.
func vendorHint(ctx context.Context, dir services.VendorDirectory, invoices []models.Invoice) (map[string]string, error) {
	var codes []string
	for _, inv := range invoices {
		codes = append(codes, inv.Header.VendorCode)
	}

	ids, err := dir.LedgerVendorIDs(ctx, codes)
	if err != nil {
		return nil, err
	}

	hint := make(map[string]string, len(invoices))
	for _, inv := range invoices {
		if id := ids[inv.Header.VendorCode]; id != "" {
			hint[inv.Header.InvoiceNumber] = id
		}
	}
	return hint, nil
}

func paymentSource(ctx context.Context, cfg *config.Config, ledgerCSV, ledgerSheet string) (services.PaymentSource, func(), error) {
	if ledgerCSV != "" {
		return ledger.NewCSVSource(ledgerCSV), func() {}, nil
	}
	if ledgerSheet != "" {
		if cfg.GoogleSheetURL == "" {
			return nil, nil, fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --ledger-sheet")
		}
		svc, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Google Sheets service: %w", err)
		}
		return ledger.NewSheetSource(svc, ledgerSheet), func() {}, nil
	}
	if cfg.LedgerDatabaseURL == "" {
		return nil, nil, fmt.Errorf("LEDGER_DATABASE_URL environment variable, --ledger-csv or --ledger-sheet is required")
	}
	pool, err := ledger.Connect(ctx, cfg.LedgerDatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return ledger.NewPgxSource(pool, cfg.LedgerQuery), pool.Close, nil
}

func newResolver(cfg *config.Config, name string, headers map[string]models.InvoiceHeader) (reconciliation.Resolver, error) {
	switch strings.ToLower(name) {
	case "", "skip":
		return reconciliation.SkipResolver{}, nil
	case "interactive":
		return reconciliation.NewConsoleResolver(os.Stdin, os.Stdout), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for --resolver openai")
		}
		return recsvc.NewOpenAIResolver(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel, headers), nil
	default:
		return nil, fmt.Errorf("unknown resolver %q (use skip, interactive or openai)", name)
	}
}

// confirmPayments adds a confirmation entry for every matched invoice in
// invoice number order, flagging paid amounts outside the tolerance.
func confirmPayments(result *reconciliation.Result, headers map[string]models.InvoiceHeader, tolerance decimal.Decimal, log zerolog.Logger) (*confirmation.Document, []models.ReconciliationRow) {
	doc := confirmation.New()
	var rows []models.ReconciliationRow

	for _, num := range result.InvoiceNumbers() {
		header, ok := headers[num]
		if !ok {
			continue
		}
		payment := result.Matched[num]

		row := models.ReconciliationRow{
			InvoiceNumber: num,
			VendorCode:    header.VendorCode,
			Expected:      header.TotalAmount,
			Paid:          payment.PayAmount,
			CheckNum:      payment.CheckNum,
			PayDate:       payment.PayDate,
			Status:        models.StatusPaid,
		}

		if m, bad := reconciliation.CheckAmount(header.TotalAmount, payment.PayAmount, tolerance); bad {
			log.Warn().
				Str("invoice_number", num).
				Str("expected", m.Expected.StringFixed(2)).
				Str("paid", m.Paid.StringFixed(2)).
				Str("deviation", m.Deviation.StringFixed(2)).
				Msg("Paid amount outside tolerance")
			row.Status = models.StatusMismatch
			row.Detail = m.String()
		}

		doc.Add(header, payment)
		rows = append(rows, row)
	}

	for _, num := range result.Ambiguous {
		header := headers[num]
		rows = append(rows, models.ReconciliationRow{
			InvoiceNumber: num,
			VendorCode:    header.VendorCode,
			Expected:      header.TotalAmount,
			Status:        models.StatusSkipped,
			Detail:        "multiple payment records",
		})
	}

	return doc, rows
}

func writeConfirmation(path string, doc *confirmation.Document) error {
	return writeNewFile(path, "confirmation", doc.WriteXML)
}
