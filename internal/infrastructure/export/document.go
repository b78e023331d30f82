// Package export renders the dashboard's order list to downloadable files.
package export

import (
	"time"
)

// Format is an export file format
type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	return f == FormatExcel || f == FormatPDF
}

// Extension returns the file extension of the format
func (f Format) Extension() string {
	if f == FormatPDF {
		return ".pdf"
	}
	return ".xlsx"
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FilterLabel is one active filter printed above the table
type FilterLabel struct {
	Label string
	Value string
}

// Row is one order line, already formatted for display
type Row struct {
	OrderNumber   string
	Branch        string
	Status        string
	Priority      string
	Items         string
	TotalQuantity string
	Total         string
	AdjustedTotal string
	Date          string
}

// Cells returns the row in column order
func (r Row) Cells() []string {
	return []string{r.OrderNumber, r.Branch, r.Status, r.Priority, r.Items, r.TotalQuantity, r.Total, r.AdjustedTotal, r.Date}
}

// Document is everything a writer needs to produce one export file
type Document struct {
	Title       string
	Lang        string
	RTL         bool
	Filters     []FilterLabel
	Columns     []string
	Rows        []Row
	GeneratedBy string
	GeneratedAt time.Time
}

// Dir returns the HTML text direction of the document
func (d Document) Dir() string {
	if d.RTL {
		return "rtl"
	}
	return "ltr"
}

// Error is a failure while producing an export file
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes for export failures
const (
	ErrCodeRenderTimeout = "RENDER_TIMEOUT"
	ErrCodeRenderFailed  = "RENDER_FAILED"
	ErrCodeEmptyDocument = "EMPTY_DOCUMENT"
	ErrCodeWriteFailed   = "WRITE_FAILED"
)

// NewError creates a new export Error
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
