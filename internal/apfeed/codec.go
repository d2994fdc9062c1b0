package apfeed

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dateLayout  = "20060102"
	batchLayout = "20060102150405"

	maxAmountDigits = 12
	maxOrgDocNumber = 9999999
	maxLineNumber   = 99999
)

// Record is one decoded feed record: one fund split of one invoice line.
type Record struct {
	FeedName         string
	RunAt            time.Time
	OrgDocNumber     int
	EmployeeInd      string
	VendorCode       string
	InvoiceNumber    string
	InvoiceDate      time.Time
	AddressSelect    string
	GoodsReceived    time.Time // zero when unknown
	ShipZip          string
	ShipState        string
	PaymentGroup     string
	ScheduledPayment time.Time
	NonCheckInd      string
	AttachmentInd    string
	LineNumber       int
	ChartCode        string
	Account          string
	ObjectCode       string
	OrgReference     string
	TaxCode          TaxCode
	AmountCents      int64
	ApplyDiscountInd string
	EFTOverrideInd   string
}

// Encode renders the record as exactly RecordLength characters.
func (r Record) Encode() (string, error) {
	const op = "Encode"

	amount, err := FormatAmount(r.AmountCents)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if r.OrgDocNumber < 0 || r.OrgDocNumber > maxOrgDocNumber {
		return "", fmt.Errorf("%s: org document number %d: %w", op, r.OrgDocNumber, ErrFieldOverflow)
	}
	if r.LineNumber < 0 || r.LineNumber > maxLineNumber {
		return "", fmt.Errorf("%s: line number %d: %w", op, r.LineNumber, ErrFieldOverflow)
	}

	buf := []byte(strings.Repeat(" ", RecordLength))
	put(buf, FieldFeedName, r.FeedName)
	put(buf, FieldBatchID, r.RunAt.Format(batchLayout))
	put(buf, FieldOrgDocNumber, fmt.Sprintf("%07d", r.OrgDocNumber))
	put(buf, FieldEmployeeInd, r.EmployeeInd)
	put(buf, FieldVendorCode, r.VendorCode)
	put(buf, FieldInvoiceNumber, r.InvoiceNumber)
	put(buf, FieldInvoiceDate, formatDate(r.InvoiceDate))
	put(buf, FieldAddressSelect, r.AddressSelect)
	put(buf, FieldGoodsReceived, formatDate(r.GoodsReceived))
	put(buf, FieldShipZip, r.ShipZip)
	put(buf, FieldShipState, r.ShipState)
	put(buf, FieldPaymentGroup, r.PaymentGroup)
	put(buf, FieldScheduledPayment, formatDate(r.ScheduledPayment))
	put(buf, FieldNonCheckInd, r.NonCheckInd)
	put(buf, FieldAttachmentInd, r.AttachmentInd)
	put(buf, FieldLineNumber, fmt.Sprintf("%05d", r.LineNumber))
	put(buf, FieldChartCode, r.ChartCode)
	put(buf, FieldAccount, r.Account)
	put(buf, FieldObjectCode, r.ObjectCode)
	put(buf, FieldOrgReference, r.OrgReference)
	put(buf, FieldTaxCode, string(r.TaxCode))
	put(buf, FieldAmount, amount)
	put(buf, FieldApplyDiscountInd, r.ApplyDiscountInd)
	put(buf, FieldEFTOverrideInd, r.EFTOverrideInd)

	return string(buf), nil
}

// DecodeFields splits a record into its raw, right-trimmed field values keyed
// by field name. Reserved ranges are left out.
func DecodeFields(line string) (map[string]string, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) != RecordLength {
		return nil, fmt.Errorf("%w: length %d, want %d", ErrMalformedRecord, len(line), RecordLength)
	}

	fields := make(map[string]string, len(Layout))
	for _, f := range DataFields() {
		fields[f.Name] = strings.TrimRight(line[f.Start:f.End], " ")
	}
	return fields, nil
}

// Decode parses a record back into its typed form.
func Decode(line string) (Record, error) {
	const op = "Decode"

	raw, err := DecodeFields(line)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", op, err)
	}

	rec := Record{
		FeedName:         raw[FieldFeedName.Name],
		EmployeeInd:      raw[FieldEmployeeInd.Name],
		VendorCode:       raw[FieldVendorCode.Name],
		InvoiceNumber:    raw[FieldInvoiceNumber.Name],
		AddressSelect:    raw[FieldAddressSelect.Name],
		ShipZip:          raw[FieldShipZip.Name],
		ShipState:        raw[FieldShipState.Name],
		PaymentGroup:     raw[FieldPaymentGroup.Name],
		NonCheckInd:      raw[FieldNonCheckInd.Name],
		AttachmentInd:    raw[FieldAttachmentInd.Name],
		ChartCode:        raw[FieldChartCode.Name],
		Account:          raw[FieldAccount.Name],
		ObjectCode:       raw[FieldObjectCode.Name],
		OrgReference:     raw[FieldOrgReference.Name],
		TaxCode:          TaxCode(raw[FieldTaxCode.Name]),
		ApplyDiscountInd: raw[FieldApplyDiscountInd.Name],
		EFTOverrideInd:   raw[FieldEFTOverrideInd.Name],
	}

	if rec.RunAt, err = parseTime(batchLayout, raw[FieldBatchID.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldBatchID.Name, err)
	}
	if rec.OrgDocNumber, err = parseInt(raw[FieldOrgDocNumber.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldOrgDocNumber.Name, err)
	}
	if rec.InvoiceDate, err = parseTime(dateLayout, raw[FieldInvoiceDate.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldInvoiceDate.Name, err)
	}
	if rec.GoodsReceived, err = parseTime(dateLayout, raw[FieldGoodsReceived.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldGoodsReceived.Name, err)
	}
	if rec.ScheduledPayment, err = parseTime(dateLayout, raw[FieldScheduledPayment.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldScheduledPayment.Name, err)
	}
	if rec.LineNumber, err = parseInt(raw[FieldLineNumber.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldLineNumber.Name, err)
	}
	if rec.AmountCents, err = ParseAmount(raw[FieldAmount.Name]); err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", op, FieldAmount.Name, err)
	}

	return rec, nil
}

// FormatAmount renders signed cents as the 12-char amount field: a zero-padded
// magnitude, or a minus sign followed by 11 digits when negative.
func FormatAmount(cents int64) (string, error) {
	if cents < 0 {
		digits := strconv.FormatInt(-cents, 10)
		if len(digits) > maxAmountDigits-1 {
			return "", fmt.Errorf("amount %d cents: %w", cents, ErrFieldOverflow)
		}
		return "-" + strings.Repeat("0", maxAmountDigits-1-len(digits)) + digits, nil
	}

	digits := strconv.FormatInt(cents, 10)
	if len(digits) > maxAmountDigits {
		return "", fmt.Errorf("amount %d cents: %w", cents, ErrFieldOverflow)
	}
	return strings.Repeat("0", maxAmountDigits-len(digits)) + digits, nil
}

// ParseAmount is the inverse of FormatAmount.
func ParseAmount(field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrMalformedRecord)
	}

	negative := strings.HasPrefix(field, "-")
	digits := strings.TrimPrefix(field, "-")
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: amount %q", ErrMalformedRecord, field)
	}
	if negative {
		return -n, nil
	}
	return n, nil
}

// OrgReference derives the org reference id from a PO line reference: the
// part before the first '-' followed by '}', or the reference unchanged when
// it has no '-'. An empty reference yields an empty id, which encodes as
// blanks.
func OrgReference(poReference string) string {
	if i := strings.IndexByte(poReference, '-'); i >= 0 {
		return poReference[:i] + "}"
	}
	return poReference
}

// put writes v left-justified into the field, padding with spaces and
// truncating to the field width.
func put(buf []byte, f Field, v string) {
	copy(buf[f.Start:f.End], fit(v, f.Width()))
}

// fit pads or truncates v to exactly width bytes. Truncation never splits a
// multibyte character; the freed bytes are padded with spaces instead.
func fit(v string, width int) string {
	if len(v) > width {
		cut := width
		for cut > 0 && !utf8.RuneStart(v[cut]) {
			cut--
		}
		v = v[:cut]
	}
	return v + strings.Repeat(" ", width-len(v))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseTime(layout, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return t, nil
}

func parseInt(value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedRecord, value)
	}
	return n, nil
}
