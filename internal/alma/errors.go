package alma

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteFetch is matched by IncompleteFetchError.
	ErrIncompleteFetch = errors.New("incomplete invoice fetch")

	// ErrShortResult is wrapped by IncompleteFetchError when every page
	// succeeded but fewer records arrived than total_record_count.
	ErrShortResult = errors.New("fewer invoices than the reported total")

	// ErrUnexpectedStatus is returned for non-2xx API responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedExport is returned when an export file cannot be read.
	ErrMalformedExport = errors.New("malformed invoice export")
)

// IncompleteFetchError reports that some result pages could not be fetched,
// or that the server returned fewer records than it announced.
// The invoices that were fetched are returned alongside it.
type IncompleteFetchError struct {
	Expected int // total_record_count reported by the first page
	Got      int // records actually received
	Err      error
}

// Error implements the error interface.
func (e *IncompleteFetchError) Error() string {
	return fmt.Sprintf("fetched %d of %d invoices: %v", e.Got, e.Expected, e.Err)
}

// Is lets errors.Is match ErrIncompleteFetch.
func (e *IncompleteFetchError) Is(target error) bool {
	return target == ErrIncompleteFetch
}

// Unwrap returns the page errors, or ErrShortResult.
func (e *IncompleteFetchError) Unwrap() error {
	return e.Err
}
