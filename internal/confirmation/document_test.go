package confirmation

import (
	"bytes"
	"encoding/xml"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apfeed/pkg/models"
)

func TestDocument_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().WriteXML(&buf))

	want := `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<payment_confirmation_data xmlns="http://com/exlibris/repository/acq/xmlbeans">` + "\n" +
		`   <invoice_list/>` + "\n" +
		`</payment_confirmation_data>` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestDocument_OneInvoice(t *testing.T) {
	doc := New()
	doc.Add(
		models.InvoiceHeader{
			UniqueID:      "4829238050003126",
			InvoiceNumber: "US10046263",
			VendorCode:    "PRQST",
			InvoiceDate:   time.Date(2016, time.December, 5, 0, 0, 0, 0, time.Local),
		},
		models.PaymentRecord{
			InvoiceNumber: "US10046263",
			CheckNum:      "V40047088",
			PayAmount:     decimal.NewFromInt(3810),
			PayDate:       "20161220",
		},
	)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteXML(&buf))

	want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<payment_confirmation_data xmlns=\"http://com/exlibris/repository/acq/xmlbeans\">\n" +
		"   <invoice_list>\n" +
		"      <invoice>\n" +
		"         <invoice_number>US10046263</invoice_number>\n" +
		"         <unique_identifier>4829238050003126</unique_identifier>\n" +
		"         <invoice_date>20161205</invoice_date>\n" +
		"         <vendor_code>PRQST</vendor_code>\n" +
		"         <payment_status>PAID</payment_status>\n" +
		"         <payment_voucher_date>20161220</payment_voucher_date>\n" +
		"         <payment_voucher_number>V40047088</payment_voucher_number>\n" +
		"         <voucher_amount>\n" +
		"            <currency>USD</currency>\n" +
		"            <sum>3810</sum>\n" +
		"         </voucher_amount>\n" +
		"      </invoice>\n" +
		"   </invoice_list>\n" +
		"</payment_confirmation_data>\n"
	assert.Equal(t, want, buf.String())
}

func TestDocument_EntriesKeepOrder(t *testing.T) {
	doc := New()
	for _, n := range []string{"B", "A", "C"} {
		doc.Add(models.InvoiceHeader{InvoiceNumber: n}, models.PaymentRecord{PayAmount: decimal.RequireFromString("12.50")})
	}

	require.Equal(t, 3, doc.Len())
	entries := doc.Entries()
	assert.Equal(t, "B", entries[0].InvoiceNumber)
	assert.Equal(t, "A", entries[1].InvoiceNumber)
	assert.Equal(t, "C", entries[2].InvoiceNumber)
	assert.Equal(t, "12.5", entries[0].VoucherAmount.Sum)
	assert.Empty(t, entries[0].InvoiceDate)

	entries[0].InvoiceNumber = "changed"
	assert.Equal(t, "B", doc.Entries()[0].InvoiceNumber)

	var buf bytes.Buffer
	require.NoError(t, doc.WriteXML(&buf))

	var parsed struct {
		Invoices []struct {
			Number string `xml:"invoice_number"`
			Status string `xml:"payment_status"`
		} `xml:"invoice_list>invoice"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed.Invoices, 3)
	assert.Equal(t, "A", parsed.Invoices[1].Number)
	assert.Equal(t, StatusPaid, parsed.Invoices[2].Status)
}
