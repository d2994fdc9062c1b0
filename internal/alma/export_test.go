package alma

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<payment_data xmlns="http://com/exlibris/repository/acq/invoice/xmlbeans">
  <invoice_list>
    <invoice>
      <invoice_number>0201821</invoice_number>
      <unique_identifier>4790374560003126</unique_identifier>
      <invoice_date>11/25/2016</invoice_date>
      <vendor_code>MIDWEST</vendor_code>
      <vendor_additional_code>0000002413 0002</vendor_additional_code>
      <owneredEntity>
        <creationDate>20170103110512</creationDate>
      </owneredEntity>
      <noteList>
        <note>
          <content>UTAX</content>
          <owneredEntity>
            <creationDate>20170104</creationDate>
          </owneredEntity>
        </note>
      </noteList>
      <invoice_amount>
        <sum>88.5</sum>
        <currency>USD</currency>
      </invoice_amount>
      <vat_info>
        <vat_amount>0.0</vat_amount>
      </vat_info>
      <invoice_line_list>
        <invoice_line>
          <line_number>18</line_number>
          <note>NUTAX</note>
          <po_line_info>
            <po_line_number>POL-1234</po_line_number>
          </po_line_info>
          <fund_info_list>
            <fund_info>
              <external_id>LGBOOKS</external_id>
              <amount><sum>20.00</sum><currency>USD</currency></amount>
            </fund_info>
            <fund_info>
              <external_id>LGSERLS</external_id>
              <amount><sum>9.50</sum><currency>USD</currency></amount>
            </fund_info>
          </fund_info_list>
        </invoice_line>
        <invoice_line>
          <line_number>19</line_number>
          <fund_info_list>
            <fund_info>
              <external_id>LGBOOKS</external_id>
              <amount><sum>59.00</sum><currency>USD</currency></amount>
            </fund_info>
          </fund_info_list>
        </invoice_line>
      </invoice_line_list>
    </invoice>
  </invoice_list>
</payment_data>`

func TestParseExport(t *testing.T) {
	invoices, err := ParseExport(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, invoices, 1)

	h := invoices[0].Header
	assert.Equal(t, "0201821", h.InvoiceNumber)
	assert.Equal(t, "4790374560003126", h.UniqueID)
	assert.Equal(t, "0000002413 0002", h.VendorCode)
	assert.Equal(t, "0000002413 0002", h.AddressSelectNumber)
	assert.Equal(t, "USD", h.Currency)
	assert.Equal(t, time.Date(2016, time.November, 25, 0, 0, 0, 0, time.Local), h.InvoiceDate)
	assert.Equal(t, time.Date(2017, time.January, 3, 0, 0, 0, 0, time.Local), h.CreatedAt)
	assert.True(t, h.VATAmount.IsZero())
	assert.True(t, h.TotalAmount.Equal(decimal.RequireFromString("88.50")))

	require.Len(t, h.Notes, 1)
	assert.Equal(t, "UTAX", h.Notes[0].Content)
	assert.Equal(t, time.Date(2017, time.January, 4, 0, 0, 0, 0, time.Local), h.Notes[0].CreatedAt)

	lines := invoices[0].Lines
	require.Len(t, lines, 2)
	assert.Equal(t, 18, lines[0].LineNumber)
	assert.Equal(t, "POL-1234", lines[0].POReference)
	assert.Equal(t, "NUTAX", lines[0].Note)
	require.Len(t, lines[0].Funds, 2)
	assert.Equal(t, "LGSERLS", lines[0].Funds[1].ExternalAccountID)
	assert.True(t, lines[0].Funds[1].Amount.Equal(decimal.RequireFromString("9.5")))

	assert.Equal(t, 19, lines[1].LineNumber)
	assert.Empty(t, lines[1].POReference)
	assert.Empty(t, lines[1].Note)
}

func TestParseExport_Unqualified(t *testing.T) {
	doc := `<payment_data><invoice_list><invoice>
		<invoice_number>A1</invoice_number>
		<invoice_date>01/02/2017</invoice_date>
		<invoice_amount><sum>-12.00</sum></invoice_amount>
	</invoice></invoice_list></payment_data>`

	invoices, err := ParseExport(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "A1", invoices[0].Header.InvoiceNumber)
	assert.True(t, invoices[0].Header.TotalAmount.Equal(decimal.NewFromInt(-12)))
	assert.True(t, invoices[0].Header.CreatedAt.IsZero())
	assert.Empty(t, invoices[0].Lines)
}

func TestParseExport_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "not xml", doc: "invoice_number,total"},
		{name: "bad date", doc: `<p><invoice_list><invoice><invoice_date>2016-11-25</invoice_date></invoice></invoice_list></p>`},
		{name: "bad amount", doc: `<p><invoice_list><invoice><invoice_amount><sum>lots</sum></invoice_amount></invoice></invoice_list></p>`},
		{name: "bad line number", doc: `<p><invoice_list><invoice><invoice_line_list><invoice_line><line_number>x</line_number></invoice_line></invoice_line_list></invoice></invoice_list></p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseExport(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedExport), "got %v", err)
		})
	}
}
