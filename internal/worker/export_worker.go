package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"propman/internal/amqp"
	"propman/internal/core"
	"propman/internal/metrics"
	"propman/internal/sheets"
	"propman/internal/store"
)

// ExportStore is what the export worker reads invoices and property names from.
type ExportStore interface {
	store.InvoiceReader
	store.PropertyReader
}

// ExportWorker mirrors invoice writes to a spreadsheet, one row per event.
type ExportWorker struct {
	store    ExportStore
	exporter sheets.InvoiceExporter
}

func NewExportWorker(st ExportStore, exporter sheets.InvoiceExporter) *ExportWorker {
	return &ExportWorker{store: st, exporter: exporter}
}

// HandleInvoiceEvent exports the current state of the invoice named by msg.
// Invoices that no longer exist are acknowledged and skipped; any other
// failure is returned so the message is redelivered.
func (w *ExportWorker) HandleInvoiceEvent(ctx context.Context, msg *amqp.InvoiceEvent) error {
	slog.InfoContext(ctx, "Processing invoice event",
		"type", msg.Type,
		"invoice_id", msg.InvoiceID,
		"version", msg.Version)

	inv, err := w.store.GetInvoice(ctx, msg.InvoiceID)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Invoice from event not found, skipping", "invoice_id", msg.InvoiceID)
		metrics.SheetsExports.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("get invoice: %w", err)
	}

	if err := w.export(ctx, inv); err != nil {
		return fmt.Errorf("export invoice to sheets: %w", err)
	}
	return nil
}

// ExportRange appends every invoice issued within r. It is the backfill path
// for events missed while the worker was down; it keeps going past single
// failures and reports how many rows were written.
func (w *ExportWorker) ExportRange(ctx context.Context, r core.DateRange) (int, error) {
	invoices, err := w.store.ListInvoices(ctx, core.InvoiceFilter{Range: r})
	if err != nil {
		return 0, fmt.Errorf("list invoices: %w", err)
	}
	if len(invoices) == 0 {
		slog.InfoContext(ctx, "No invoices to export", "range", r.String())
		return 0, nil
	}

	exported, failed := 0, 0
	for _, inv := range invoices {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.export(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice", "invoice_id", inv.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Invoice export completed",
		"total", len(invoices),
		"exported", exported,
		"errors", failed)
	if failed > 0 {
		return exported, fmt.Errorf("%d of %d invoices failed to export", failed, len(invoices))
	}
	return exported, nil
}

func (w *ExportWorker) export(ctx context.Context, inv core.Invoice) error {
	name := ""
	if p, err := w.store.GetProperty(ctx, inv.PropertyID); err == nil {
		name = p.Name
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Property lookup failed, exporting id only",
			"property_id", inv.PropertyID, "error", err)
	}

	ref, err := w.exporter.AppendInvoice(ctx, inv, name)
	if err != nil {
		metrics.SheetsExports.WithLabelValues("error").Inc()
		return err
	}
	metrics.SheetsExports.WithLabelValues("ok").Inc()

	slog.InfoContext(ctx, "Exported invoice",
		"invoice_id", inv.ID,
		"sheets_ref", ref,
		"status", inv.Status,
		"total_cents", inv.Total.Cents)
	return nil
}
