package alma

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"apfeed/pkg/models"
)

const (
	// ExportNamespace is the namespace of the ERP invoice export. Elements are
	// matched by local name, so the parser also accepts unqualified files.
	ExportNamespace = "http://com/exlibris/repository/acq/invoice/xmlbeans"

	exportDateLayout   = "01/02/2006"
	creationDateLayout = "20060102"
)

type exportFile struct {
	Invoices []exportInvoice `xml:"invoice_list>invoice"`
}

type exportInvoice struct {
	InvoiceNumber        string       `xml:"invoice_number"`
	UniqueIdentifier     string       `xml:"unique_identifier"`
	VendorCode           string       `xml:"vendor_code"`
	VendorAdditionalCode string       `xml:"vendor_additional_code"`
	InvoiceDate          string       `xml:"invoice_date"`
	VATAmount            string       `xml:"vat_info>vat_amount"`
	Notes                []exportNote `xml:"noteList>note"`
	CreationDate         string       `xml:"owneredEntity>creationDate"`
	Amount               exportAmount `xml:"invoice_amount"`
	Lines                []exportLine `xml:"invoice_line_list>invoice_line"`
}

type exportNote struct {
	Content      string `xml:"content"`
	CreationDate string `xml:"owneredEntity>creationDate"`
}

type exportAmount struct {
	Sum      string `xml:"sum"`
	Currency string `xml:"currency"`
}

type exportLine struct {
	LineNumber   string       `xml:"line_number"`
	Note         string       `xml:"note"`
	POLineNumber string       `xml:"po_line_info>po_line_number"`
	Funds        []exportFund `xml:"fund_info_list>fund_info"`
}

type exportFund struct {
	ExternalID string       `xml:"external_id"`
	Amount     exportAmount `xml:"amount"`
}

// ParseExport reads an ERP invoice export. The vendor additional code
// becomes both the vendor code and the address-select number of the header.
func ParseExport(r io.Reader) ([]models.Invoice, error) {
	const op = "ParseExport"

	var f exportFile
	if err := xml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedExport, err)
	}

	invoices := make([]models.Invoice, 0, len(f.Invoices))
	for i, ei := range f.Invoices {
		inv, err := ei.invoice()
		if err != nil {
			return nil, fmt.Errorf("%s: invoice %d (%s): %w", op, i+1, ei.InvoiceNumber, err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

func (ei exportInvoice) invoice() (models.Invoice, error) {
	h := models.InvoiceHeader{
		UniqueID:            strings.TrimSpace(ei.UniqueIdentifier),
		InvoiceNumber:       strings.TrimSpace(ei.InvoiceNumber),
		VendorCode:          ei.VendorAdditionalCode,
		AddressSelectNumber: ei.VendorAdditionalCode,
		Currency:            strings.TrimSpace(ei.Amount.Currency),
	}

	var err error
	if h.InvoiceDate, err = parseDate(exportDateLayout, ei.InvoiceDate); err != nil {
		return models.Invoice{}, fmt.Errorf("%w: invoice_date: %v", ErrMalformedExport, err)
	}
	if h.CreatedAt, err = parseCreationDate(ei.CreationDate); err != nil {
		return models.Invoice{}, fmt.Errorf("%w: creationDate: %v", ErrMalformedExport, err)
	}
	if h.VATAmount, err = parseDecimal(ei.VATAmount); err != nil {
		return models.Invoice{}, fmt.Errorf("%w: vat_amount: %v", ErrMalformedExport, err)
	}
	if h.TotalAmount, err = parseDecimal(ei.Amount.Sum); err != nil {
		return models.Invoice{}, fmt.Errorf("%w: invoice_amount: %v", ErrMalformedExport, err)
	}

	for _, n := range ei.Notes {
		created, err := parseCreationDate(n.CreationDate)
		if err != nil {
			return models.Invoice{}, fmt.Errorf("%w: note creationDate: %v", ErrMalformedExport, err)
		}
		h.Notes = append(h.Notes, models.Note{
			Content:   strings.TrimSpace(n.Content),
			CreatedAt: created,
		})
	}

	inv := models.Invoice{Header: h}
	for _, el := range ei.Lines {
		line, err := el.line()
		if err != nil {
			return models.Invoice{}, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, nil
}

func (el exportLine) line() (models.InvoiceLine, error) {
	n, err := strconv.Atoi(strings.TrimSpace(el.LineNumber))
	if err != nil {
		return models.InvoiceLine{}, fmt.Errorf("%w: line_number %q", ErrMalformedExport, el.LineNumber)
	}

	line := models.InvoiceLine{
		LineNumber:  n,
		POReference: strings.TrimSpace(el.POLineNumber),
		Note:        strings.TrimSpace(el.Note),
	}
	for _, f := range el.Funds {
		amount, err := parseDecimal(f.Amount.Sum)
		if err != nil {
			return models.InvoiceLine{}, fmt.Errorf("%w: line %d fund amount: %v", ErrMalformedExport, n, err)
		}
		line.Funds = append(line.Funds, models.FundAllocation{
			ExternalAccountID: strings.TrimSpace(f.ExternalID),
			Amount:            amount,
		})
	}
	return line, nil
}

func parseDate(layout, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(layout, value, time.Local)
}

// parseCreationDate reads the leading YYYYMMDD of a creation timestamp.
func parseCreationDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(creationDateLayout) {
		value = value[:len(creationDateLayout)]
	}
	return parseDate(creationDateLayout, value)
}

func parseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}
