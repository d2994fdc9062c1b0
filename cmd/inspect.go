package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"apfeed/internal/apfeed"
	"apfeed/internal/logger"
)

var errRecordsNotFound = errors.New("records not found")

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Decode AP feed records",
	Long: `Decode the fixed-width records of an AP feed so humans can read them.

Records come from a feed file (--file), from raw record text (--string), or
from the newest feed in a directory whose first org document number is at or
below --org-doc (--directory). Records can be filtered by invoice number or
org document number and are printed in line number order.`,
	Example: `  # Show every record of a feed
  apfeed inspect --file apfeed/apfeed.LG.20170104102400

  # Find the feed holding org document 42 and show its records as JSON
  apfeed inspect --directory apfeed --org-doc 42 --json

  # Show the lines of one invoice
  apfeed inspect --file apfeed/apfeed.LG.20170104102400 --inv-num 0201821`,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringP("file", "f", "", "Feed file to read")
	inspectCmd.Flags().StringP("string", "s", "", "Raw records, one per line")
	inspectCmd.Flags().StringP("directory", "d", "", "Directory of feed files, requires --org-doc")
	inspectCmd.Flags().StringP("inv-num", "i", "", "Only records of this invoice number")
	inspectCmd.Flags().StringP("org-doc", "o", "", "Only records of this org document number")
	inspectCmd.Flags().BoolP("json", "j", false, "Print records as JSON")

	inspectCmd.MarkFlagsMutuallyExclusive("file", "string", "directory")
	inspectCmd.MarkFlagsOneRequired("file", "string", "directory")
}

func runInspect(cmd *cobra.Command, args []string) error {
	log := logger.WithRunID("inspect", runID)

	file, _ := cmd.Flags().GetString("file")
	raw, _ := cmd.Flags().GetString("string")
	dir, _ := cmd.Flags().GetString("directory")
	invNum, _ := cmd.Flags().GetString("inv-num")
	orgDocStr, _ := cmd.Flags().GetString("org-doc")
	asJSON, _ := cmd.Flags().GetBool("json")

	orgDoc := -1
	if orgDocStr != "" {
		n, err := strconv.Atoi(strings.TrimSpace(orgDocStr))
		if err != nil || n < 0 {
			return fmt.Errorf("invalid --org-doc %q", orgDocStr)
		}
		orgDoc = n
	}

	var lines []string
	switch {
	case file != "":
		doc, err := readFeedFile(file)
		if err != nil {
			return err
		}
		lines = doc.Lines()
	case raw != "":
		for _, l := range strings.Split(raw, "\n") {
			if l = strings.TrimRight(l, "\r"); l != "" {
				lines = append(lines, l)
			}
		}
	case dir != "":
		if orgDoc < 0 {
			return fmt.Errorf("--directory needs to be paired with --org-doc")
		}
		path, doc, err := findFeedForOrgDoc(dir, orgDoc)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Found in file: %s\n", path)
		lines = doc.Lines()
	}

	var out []map[string]string
	for i, line := range lines {
		fields, err := apfeed.DecodeFields(line)
		if err != nil {
			return fmt.Errorf("record %d: %w", i+1, err)
		}
		if matchesFilter(fields, invNum, orgDoc) {
			out = append(out, fields)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i][apfeed.FieldLineNumber.Name] < out[j][apfeed.FieldLineNumber.Name]
	})

	log.Debug().Int("records", len(lines)).Int("matched", len(out)).Msg("Decoded feed records")

	if len(out) == 0 {
		fmt.Println("Records not found")
		return errRecordsNotFound
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}
	return printRecordTable(out)
}

// matchesFilter keeps a record when it matches either filter, or when no
// filter is set.
func matchesFilter(fields map[string]string, invNum string, orgDoc int) bool {
	if invNum == "" && orgDoc < 0 {
		return true
	}
	if invNum != "" && fields[apfeed.FieldInvoiceNumber.Name] == invNum {
		return true
	}
	if orgDoc >= 0 {
		if n, err := strconv.Atoi(fields[apfeed.FieldOrgDocNumber.Name]); err == nil && n == orgDoc {
			return true
		}
	}
	return false
}

func readFeedFile(path string) (*apfeed.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := apfeed.ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// findFeedForOrgDoc scans the feeds of dir newest first and returns the
// first one whose first record has an org document number at or below
// orgDoc. Feed names carry their timestamp, so name order is age order.
func findFeedForOrgDoc(dir string, orgDoc int) (string, *apfeed.Document, error) {
	files, err := filepath.Glob(filepath.Join(dir, apfeed.FilePrefix+"*"))
	if err != nil {
		return "", nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))

	log := logger.WithComponent("inspect")
	for _, path := range files {
		doc, err := readFeedFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping unreadable feed")
			continue
		}
		if doc.Count() == 0 {
			continue
		}
		fields, err := apfeed.DecodeFields(doc.Lines()[0])
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(fields[apfeed.FieldOrgDocNumber.Name])
		if err != nil {
			continue
		}
		if n <= orgDoc {
			return path, doc, nil
		}
	}
	return "", nil, fmt.Errorf("no feed in %s holds org document %d: %w", dir, orgDoc, errRecordsNotFound)
}

func printRecordTable(records []map[string]string) error {
	fields := apfeed.DataFields()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(w)
		}
		for _, f := range fields {
			fmt.Fprintf(w, "%s\t%s\n", f.Name, rec[f.Name])
		}
	}
	return w.Flush()
}
