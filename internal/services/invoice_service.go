package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"propman/internal/amqp"
	"propman/internal/core"
	"propman/internal/log"
	"propman/internal/metrics"
	"propman/internal/store"
)

// EventPublisher announces invoice writes. *amqp.Client implements it.
type EventPublisher interface {
	PublishInvoiceEvent(ctx context.Context, ev *amqp.InvoiceEvent) error
}

// InvoiceStore is the slice of the document store the invoice service needs.
type InvoiceStore interface {
	store.InvoiceReader
	store.InvoiceWriter
	store.PropertyReader
}

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrInitialStatus   = errors.New("new invoices must be draft or sent")
)

// CreateInvoiceInput is what a caller supplies for a new invoice. Line totals,
// subtotal and total are always derived.
type CreateInvoiceInput struct {
	Number     string             `json:"number"`
	PropertyID string             `json:"propertyId"`
	ProviderID string             `json:"providerId"`
	IssueDate  core.Date          `json:"issueDate"`
	DueDate    core.Date          `json:"dueDate"`
	Status     core.InvoiceStatus `json:"status"`
	LineItems  []core.LineItem    `json:"lineItems"`
	Tax        core.Money         `json:"tax"`
	Notes      string             `json:"notes"`
}

// InvoiceService writes invoices locally, then publishes an event. Publish
// failures are logged and never fail the write.
type InvoiceService struct {
	store     InvoiceStore
	publisher EventPublisher
	now       func() time.Time
}

func NewInvoiceService(st InvoiceStore, publisher EventPublisher) *InvoiceService {
	return &InvoiceService{
		store:     st,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (core.Invoice, error) {
	status := in.Status
	if status == "" {
		status = core.InvoiceDraft
	}
	if status != core.InvoiceDraft && status != core.InvoiceSent {
		return core.Invoice{}, fmt.Errorf("%w: %q", ErrInitialStatus, string(status))
	}
	if _, err := s.store.GetProperty(ctx, in.PropertyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.Invoice{}, fmt.Errorf("%w: %q", ErrUnknownProperty, in.PropertyID)
		}
		return core.Invoice{}, fmt.Errorf("get property: %w", err)
	}

	now := s.now().UTC()
	inv := core.Invoice{
		ID:         uuid.NewString(),
		Number:     strings.TrimSpace(in.Number),
		PropertyID: in.PropertyID,
		ProviderID: in.ProviderID,
		IssueDate:  in.IssueDate,
		DueDate:    in.DueDate,
		Status:     status,
		LineItems:  append([]core.LineItem(nil), in.LineItems...),
		Tax:        in.Tax,
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	inv.Recalculate()
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}

	if err := s.store.CreateInvoice(ctx, inv); err != nil {
		return core.Invoice{}, fmt.Errorf("save invoice: %w", err)
	}
	metrics.InvoiceWrites.WithLabelValues("create").Inc()
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogInvoiceWritten(ctx, log.OpCreate, inv.ID, inv.PropertyID, string(inv.Status), inv.Total.Cents)

	s.publish(ctx, amqp.EventInvoiceCreated, inv)
	return inv, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (core.Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *InvoiceService) List(ctx context.Context, f core.InvoiceFilter) ([]core.Invoice, error) {
	return s.store.ListInvoices(ctx, f)
}

// ChangeStatus applies a lifecycle transition. Disallowed transitions return
// core.ErrInvalidTransition and leave the invoice untouched.
func (s *InvoiceService) ChangeStatus(ctx context.Context, id string, next core.InvoiceStatus) (core.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, err
	}
	now := s.now()
	if err := inv.Transition(next, core.DateOf(now)); err != nil {
		return core.Invoice{}, err
	}
	inv.UpdatedAt = now.UTC()
	if err := s.store.UpdateInvoice(ctx, inv); err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	metrics.InvoiceWrites.WithLabelValues("status").Inc()
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogInvoiceWritten(ctx, log.OpUpdate, inv.ID, inv.PropertyID, string(inv.Status), inv.Total.Cents)

	s.publish(ctx, amqp.EventInvoiceStatusChanged, inv)
	return inv, nil
}

// MarkOverdue moves every sent invoice whose due date is before now's day to
// overdue and returns how many were changed. A failure on one invoice is
// logged and does not stop the sweep.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	sent, err := s.store.ListInvoices(ctx, core.InvoiceFilter{Status: core.InvoiceSent})
	if err != nil {
		return 0, fmt.Errorf("list sent invoices: %w", err)
	}
	today := core.DateOf(now)
	marked := 0
	for _, inv := range sent {
		if !inv.IsPastDue(today) {
			continue
		}
		if err := inv.Transition(core.InvoiceOverdue, today); err != nil {
			slog.WarnContext(ctx, "Skipping invoice in overdue sweep", "invoice_id", inv.ID, "error", err)
			continue
		}
		inv.UpdatedAt = now.UTC()
		if err := s.store.UpdateInvoice(ctx, inv); err != nil {
			slog.ErrorContext(ctx, "Failed to mark invoice overdue", "invoice_id", inv.ID, "error", err)
			continue
		}
		marked++
		s.publish(ctx, amqp.EventInvoiceStatusChanged, inv)
	}
	if marked > 0 {
		metrics.OverdueMarked.Add(float64(marked))
		metrics.InvoiceWrites.WithLabelValues("overdue").Add(float64(marked))
	}
	slog.InfoContext(ctx, "Overdue sweep finished", "checked", len(sent), "marked", marked)
	return marked, nil
}

func (s *InvoiceService) publish(ctx context.Context, typ amqp.EventType, inv core.Invoice) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping invoice event", "invoice_id", inv.ID)
		return
	}
	version, err := s.store.InvoiceSetVersion(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read invoice set version", "error", err)
	}
	if err := s.publisher.PublishInvoiceEvent(ctx, amqp.NewInvoiceEvent(typ, inv, version)); err != nil {
		metrics.InvoiceEvents.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "Failed to publish invoice event",
			"invoice_id", inv.ID, "type", typ, "error", err)
		return
	}
	metrics.InvoiceEvents.WithLabelValues("ok").Inc()
}

// Close closes the publisher when it holds a connection.
func (s *InvoiceService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close invoice service: amqp: %w", err)
		}
	}
	return nil
}
