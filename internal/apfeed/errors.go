package apfeed

import (
	"errors"
	"fmt"
)

// Feed building and decoding errors
var (
	// ErrFutureInvoice is returned when an invoice is dated after the run instant.
	ErrFutureInvoice = errors.New("invoice date is in the future")

	// ErrShortAddressSelect is returned when the normalized address-select
	// number has fewer than 14 characters.
	ErrShortAddressSelect = errors.New("address select vendor number is shorter than 14 characters")

	// ErrLongAddressSelect is returned when the normalized address-select
	// number has more than 14 characters and would be cut by its field.
	ErrLongAddressSelect = errors.New("address select vendor number is longer than 14 characters")

	// ErrMissingTaxField is returned for a taxed line (code A or C) that lacks
	// a goods-received date, a shipping zip or a shipping state.
	ErrMissingTaxField = errors.New("taxed line is missing a required field")

	// ErrFieldOverflow is returned when a numeric value (amount, line number,
	// org document number) does not fit its fixed-width field.
	ErrFieldOverflow = errors.New("value does not fit its record field")

	// ErrMalformedRecord is returned when a record is not exactly RecordLength chars
	// or one of its numeric fields cannot be parsed.
	ErrMalformedRecord = errors.New("malformed feed record")

	// ErrMalformedDocument is returned when the header or trailer framing is wrong.
	ErrMalformedDocument = errors.New("malformed feed document")
)

// InvoiceError rejects a whole invoice. None of its lines are emitted.
type InvoiceError struct {
	InvoiceNumber string
	Err           error
	Details       string
}

// Error implements the error interface.
func (e *InvoiceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice %s rejected: %v (%s)", e.InvoiceNumber, e.Err, e.Details)
	}
	return fmt.Sprintf("invoice %s rejected: %v", e.InvoiceNumber, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *InvoiceError) Unwrap() error {
	return e.Err
}

// LineError rejects one line (one fund split) of an invoice. Sibling lines
// are unaffected.
type LineError struct {
	InvoiceNumber string
	LineNumber    int
	Account       string
	Err           error
	Details       string
}

// Error implements the error interface.
func (e *LineError) Error() string {
	msg := fmt.Sprintf("invoice %s line %d", e.InvoiceNumber, e.LineNumber)
	if e.Account != "" {
		msg += fmt.Sprintf(" (account %s)", e.Account)
	}
	msg += fmt.Sprintf(" rejected: %v", e.Err)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LineError) Unwrap() error {
	return e.Err
}
