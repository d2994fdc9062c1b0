package apfeed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	headerPrefix  = "**HEADERLG"
	trailerPrefix = "**TRAILER"
	countWidth    = 6

	// FilePrefix starts the name of every feed file.
	FilePrefix = "apfeed.LG."
)

// Document is a framed feed: a header line, the encoded records and a
// trailer line carrying the record count.
type Document struct {
	FeedName string // padded org tag, see Settings.FeedName
	RunAt    time.Time
	lines    []string
}

// FileName returns the conventional file name of a feed produced at runAt.
func FileName(runAt time.Time) string {
	return FilePrefix + runAt.Format(batchLayout)
}

// Header returns the header line.
func (d *Document) Header() string {
	return headerPrefix + d.FeedName + d.RunAt.Format(batchLayout)
}

// Trailer returns the trailer line.
func (d *Document) Trailer() string {
	return trailerPrefix + d.FeedName + fmt.Sprintf("%0*d", countWidth, len(d.lines))
}

// Count returns the number of records.
func (d *Document) Count() int {
	return len(d.lines)
}

// Lines returns a copy of the encoded records.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Records decodes every record of the document.
func (d *Document) Records() ([]Record, error) {
	records := make([]Record, 0, len(d.lines))
	for i, line := range d.lines {
		rec, err := Decode(line)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// String renders the document: header, records and trailer joined by newlines.
func (d *Document) String() string {
	parts := make([]string, 0, len(d.lines)+2)
	parts = append(parts, d.Header())
	parts = append(parts, d.lines...)
	parts = append(parts, d.Trailer())
	return strings.Join(parts, "\n")
}

// WriteTo writes the rendered document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}

// ParseDocument reads a feed document back. It checks the framing, the
// length of every record and that the trailer count matches.
func ParseDocument(r io.Reader) (*Document, error) {
	const op = "ParseDocument"

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read document: %w", op, err)
	}

	if len(lines) < 2 {
		return nil, fmt.Errorf("%s: %w: missing header or trailer", op, ErrMalformedDocument)
	}

	header, trailer := lines[0], lines[len(lines)-1]
	nameWidth := FieldFeedName.Width()

	if !strings.HasPrefix(header, headerPrefix) || len(header) != len(headerPrefix)+nameWidth+len(batchLayout) {
		return nil, fmt.Errorf("%s: %w: bad header %q", op, ErrMalformedDocument, header)
	}
	doc := &Document{FeedName: header[len(headerPrefix) : len(headerPrefix)+nameWidth]}

	runAt, err := time.ParseInLocation(batchLayout, header[len(headerPrefix)+nameWidth:], time.Local)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: bad header timestamp: %v", op, ErrMalformedDocument, err)
	}
	doc.RunAt = runAt

	if !strings.HasPrefix(trailer, trailerPrefix+doc.FeedName) {
		return nil, fmt.Errorf("%s: %w: bad trailer %q", op, ErrMalformedDocument, trailer)
	}
	count, err := strconv.Atoi(trailer[len(trailerPrefix)+nameWidth:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w: bad trailer count %q", op, ErrMalformedDocument, trailer)
	}

	for i, line := range lines[1 : len(lines)-1] {
		if len(line) != RecordLength {
			return nil, fmt.Errorf("%s: record %d: %w: length %d", op, i+1, ErrMalformedRecord, len(line))
		}
		doc.lines = append(doc.lines, line)
	}

	if count != len(doc.lines) {
		return nil, fmt.Errorf("%s: %w: trailer counts %d records, found %d", op, ErrMalformedDocument, count, len(doc.lines))
	}

	return doc, nil
}
