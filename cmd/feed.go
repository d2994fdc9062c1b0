package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"apfeed/internal/alma"
	"apfeed/internal/apfeed"
	"apfeed/internal/config"
	"apfeed/internal/logger"
	"apfeed/internal/report"
	"apfeed/internal/sheets"
	"apfeed/pkg/models"
)

var feedCmd = &cobra.Command{
	Use:   "feed [export.xml ...]",
	Short: "Convert acquisitions invoice exports into an AP feed file",
	Long: `Convert acquisitions ERP invoice exports into a fixed-width accounts payable feed.

Every fund split of every invoice line becomes one 524-character record. The
run is all or nothing: if any invoice or line is rejected, the errors are
listed and no feed is written.

Without arguments every *.xml file in --input-dir is read. Parsed exports are
moved to <APFEED_ARCHIVE_DIR>/xml and the last org document number is saved
back to the settings file.

Environment variables:
  APFEED_SETTINGS     - Feed settings YAML (default: apfeed.yaml)
  APFEED_DIR          - Output directory for feed files (default: apfeed)
  APFEED_ARCHIVE_DIR  - Archive root for parsed exports (default: archive)
  APFEED_INPUT_DIR    - Default input directory (default: xml)
  PARSE_WORKERS       - Parallel export parsers (default: number of CPUs)
  GOOGLE_SHEET_URL    - Spreadsheet for --sheet`,
	Example: `  # Convert every export in ./xml
  apfeed feed

  # Convert two files and print the feed without saving anything
  apfeed feed invoices_1.xml invoices_2.xml --dry-run

  # Write the feed and an account totals workbook
  apfeed feed --report totals.xlsx`,
	RunE: runFeed,
}

// ParseJob is one export file queued for parsing.
type ParseJob struct {
	Path  string
	Index int
}

// ParseResult is the outcome of parsing one export file.
type ParseResult struct {
	Path     string
	Invoices []models.Invoice
	Error    error
	Index    int
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().String("input-dir", "", "Directory with export XML files (default: APFEED_INPUT_DIR)")
	feedCmd.Flags().String("output", "", "Feed file path (default: <APFEED_DIR>/apfeed.LG.<timestamp>)")
	feedCmd.Flags().Bool("no-archive", false, "Leave parsed export files in place")
	feedCmd.Flags().Bool("dry-run", false, "Print the feed to stdout and persist nothing")
	feedCmd.Flags().String("report", "", "Write account and invoice totals to a .xlsx or .csv file")
	feedCmd.Flags().Bool("sheet", false, "Append account and invoice totals to GOOGLE_SHEET_URL")
}

func runFeed(cmd *cobra.Command, args []string) error {
	log := logger.WithRunID("feed", runID)

	inputDir, _ := cmd.Flags().GetString("input-dir")
	output, _ := cmd.Flags().GetString("output")
	noArchive, _ := cmd.Flags().GetBool("no-archive")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	reportPath, _ := cmd.Flags().GetString("report")
	toSheet, _ := cmd.Flags().GetBool("sheet")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if inputDir == "" {
		inputDir = cfg.InputDir
	}

	settings, err := config.LoadFeedSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}

	files := args
	if len(files) == 0 {
		files, err = findExportFiles(inputDir)
		if err != nil {
			return fmt.Errorf("failed to find export files: %w", err)
		}
	}

	log.Info().
		Int("files", len(files)).
		Int("last_org_doc_nbr", settings.OrgDocNumber).
		Bool("dry_run", dryRun).
		Msg("Starting feed generation")

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No export files found.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	printBanner("AP FEED")
	fmt.Fprintf(os.Stderr, "Parsing %d export files with %d workers...\n", len(files), cfg.ParseWorkers)

	results := parseExportsInParallel(ctx, files, cfg.ParseWorkers, log)

	runAt := time.Now()
	builder := apfeed.NewBuilder(settings.Feed(), settings.OrgDocNumber, runAt)

	var parsed []string
	invoiceCount := 0
	for _, result := range results {
		if result.Error != nil {
			log.Error().Err(result.Error).Str("file", result.Path).Msg("Export file skipped")
			fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", result.Path, result.Error)
			continue
		}
		parsed = append(parsed, result.Path)
		for _, inv := range result.Invoices {
			_ = builder.AddInvoice(inv)
			invoiceCount++
		}
	}

	if n := builder.ErrorCount(); n > 0 {
		fmt.Fprintf(os.Stderr, "\n%d invoices or lines rejected:\n", n)
		for _, e := range unwrapJoined(builder.Err()) {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		return fmt.Errorf("feed not written: %d rejected invoices or lines", n)
	}

	doc, err := builder.Document()
	if err != nil {
		return err
	}

	if dryRun {
		if _, err := doc.WriteTo(os.Stdout); err != nil {
			return fmt.Errorf("failed to print feed: %w", err)
		}
		fmt.Fprintln(os.Stdout)
		log.Info().Int("records", doc.Count()).Msg("Dry run completed")
		return nil
	}

	if output == "" {
		output = filepath.Join(cfg.FeedDir, apfeed.FileName(runAt))
	}
	if err := writeFeedFile(output, doc); err != nil {
		return err
	}

	settings.OrgDocNumber = builder.OrgDocNumber()
	if err := config.SaveFeedSettings(cfg.SettingsPath, settings); err != nil {
		return fmt.Errorf("feed written to %s but org document number not saved: %w", output, err)
	}

	if !noArchive {
		archiveDir := filepath.Join(cfg.ArchiveDir, "xml")
		if err := archiveFiles(parsed, archiveDir); err != nil {
			return err
		}
		log.Info().Str("archive_dir", archiveDir).Int("files", len(parsed)).Msg("Archived export files")
	}

	if err := writeTotals(ctx, cfg, reportPath, toSheet, builder.Totals()); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Invoices: %d\n", invoiceCount)
	fmt.Fprintf(os.Stderr, "Records: %d\n", doc.Count())
	fmt.Fprintf(os.Stderr, "Last org document number: %07d\n", builder.OrgDocNumber())
	fmt.Fprintf(os.Stderr, "Feed: %s\n", output)
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))

	log.Info().
		Str("output", output).
		Int("invoices", invoiceCount).
		Int("records", doc.Count()).
		Int("org_doc_nbr", builder.OrgDocNumber()).
		Msg("Feed generation completed")

	return nil
}

// findExportFiles lists the *.xml files of dir in name order.
func findExportFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.xml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func parseExportFile(path string) ([]models.Invoice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return alma.ParseExport(f)
}

// parseExportsInParallel parses export files using a worker pool. Results
// are returned in input order.
func parseExportsInParallel(ctx context.Context, files []string, numWorkers int, log zerolog.Logger) []ParseResult {
	jobs := make(chan ParseJob, len(files))
	results := make([]ParseResult, len(files))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				result := ParseResult{Path: job.Path, Index: job.Index}
				if err := ctx.Err(); err != nil {
					result.Error = err
				} else {
					log.Debug().
						Int("worker", workerID).
						Str("file", job.Path).
						Msg("Worker parsing export")
					result.Invoices, result.Error = parseExportFile(job.Path)
				}
				results[job.Index] = result

				mu.Lock()
				processedCount++
				fmt.Fprintf(os.Stderr, "[%d/%d] %s", processedCount, len(files), filepath.Base(job.Path))
				if result.Error != nil {
					fmt.Fprintf(os.Stderr, " (error: %v)\n", result.Error)
				} else {
					fmt.Fprintf(os.Stderr, " (%d invoices)\n", len(result.Invoices))
				}
				mu.Unlock()
			}
		}(w)
	}

	for i, f := range files {
		jobs <- ParseJob{Path: f, Index: i}
	}
	close(jobs)

	wg.Wait()
	return results
}

// writeFeedFile writes doc to path. An existing file is never replaced.
func writeFeedFile(path string, doc *apfeed.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create feed directory: %w", err)
	}
	return writeNewFile(path, "feed", func(w io.Writer) error {
		_, err := doc.WriteTo(w)
		return err
	})
}

// writeNewFile creates path exclusively and fills it with write. When writing
// or closing fails the partial file is removed, so nothing is left under the
// final name for the transfer job to pick up.
func writeNewFile(path, kind string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", kind, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write %s file: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to close %s file: %w", kind, err)
	}
	return nil
}

// archiveFiles moves files into dir.
func archiveFiles(files []string, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	for _, f := range files {
		if err := os.Rename(f, filepath.Join(dir, filepath.Base(f))); err != nil {
			return fmt.Errorf("failed to archive %s: %w", f, err)
		}
	}
	return nil
}

// reportSinks opens the sinks selected by --report and --sheet.
func reportSinks(ctx context.Context, cfg *config.Config, reportPath string, toSheet bool) (report.Multi, error) {
	var sinks report.Multi
	if reportPath != "" {
		s, err := report.New(reportPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if toSheet {
		if cfg.GoogleSheetURL == "" {
			return nil, fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --sheet")
		}
		s, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, cfg.GoogleSheetWorksheet)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func writeTotals(ctx context.Context, cfg *config.Config, reportPath string, toSheet bool, totals *apfeed.Totals) error {
	sinks, err := reportSinks(ctx, cfg, reportPath, toSheet)
	if err != nil || len(sinks) == 0 {
		return err
	}
	if err := sinks.WriteTotals(ctx, runID, totals.Accounts(), totals.Invoices()); err != nil {
		return fmt.Errorf("failed to write totals report: %w", err)
	}
	return nil
}

// unwrapJoined flattens an errors.Join tree into its leaves.
func unwrapJoined(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range j.Unwrap() {
			out = append(out, unwrapJoined(e)...)
		}
		return out
	}
	return []error{err}
}
