package sheets

import (
	"context"

	"propman/internal/core"
)

// InvoiceExporter appends a single invoice row and returns a reference to it
// (e.g. "2024 Invoices!A12:I12").
type InvoiceExporter interface {
	AppendInvoice(ctx context.Context, inv core.Invoice, propertyName string) (string, error)
}

// ReportWriter replaces the full contents of a named tab.
type ReportWriter interface {
	ReplaceSheet(ctx context.Context, tab string, rows [][]string) error
}
