package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"propman/internal/amqp"
	"propman/internal/core"
	"propman/internal/store/memory"
)

type exportedRow struct {
	invoiceID string
	property  string
}

type fakeExporter struct {
	mu     sync.Mutex
	rows   []exportedRow
	failOn map[string]bool
}

func (f *fakeExporter) AppendInvoice(_ context.Context, inv core.Invoice, propertyName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[inv.ID] {
		return "", errors.New("quota exceeded")
	}
	f.rows = append(f.rows, exportedRow{inv.ID, propertyName})
	return "Invoices!A2:I2", nil
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	st := memory.New()
	if err := st.CreateProperty(ctx, core.Property{ID: "p1", Name: "Via Roma 1", Status: core.PropertyActive}); err != nil {
		t.Fatal(err)
	}
	for _, inv := range []core.Invoice{
		{ID: "a", PropertyID: "p1", IssueDate: core.NewDate(2024, 1, 10), Status: core.InvoiceSent, Total: core.Money{Cents: 1000}},
		{ID: "b", PropertyID: "gone", IssueDate: core.NewDate(2024, 2, 10), Status: core.InvoiceDraft, Total: core.Money{Cents: 2000}},
		{ID: "c", PropertyID: "p1", IssueDate: core.NewDate(2024, 5, 10), Status: core.InvoicePaid, Total: core.Money{Cents: 3000}},
	} {
		if err := st.CreateInvoice(ctx, inv); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestHandleInvoiceEvent(t *testing.T) {
	exp := &fakeExporter{}
	w := NewExportWorker(seed(t), exp)
	ctx := context.Background()

	if err := w.HandleInvoiceEvent(ctx, &amqp.InvoiceEvent{Type: amqp.EventInvoiceCreated, InvoiceID: "a"}); err != nil {
		t.Fatalf("HandleInvoiceEvent: %v", err)
	}
	if err := w.HandleInvoiceEvent(ctx, &amqp.InvoiceEvent{Type: amqp.EventInvoiceCreated, InvoiceID: "b"}); err != nil {
		t.Fatalf("HandleInvoiceEvent with unknown property: %v", err)
	}

	want := []exportedRow{{"a", "Via Roma 1"}, {"b", ""}}
	if len(exp.rows) != len(want) {
		t.Fatalf("exported %d rows, want %d", len(exp.rows), len(want))
	}
	for i := range want {
		if exp.rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, exp.rows[i], want[i])
		}
	}
}

func TestHandleInvoiceEventMissingInvoiceIsAcked(t *testing.T) {
	exp := &fakeExporter{}
	w := NewExportWorker(seed(t), exp)

	if err := w.HandleInvoiceEvent(context.Background(), &amqp.InvoiceEvent{InvoiceID: "nope"}); err != nil {
		t.Fatalf("expected nil for deleted invoice, got %v", err)
	}
	if len(exp.rows) != 0 {
		t.Errorf("expected no rows, got %d", len(exp.rows))
	}
}

func TestHandleInvoiceEventExportErrorIsReturned(t *testing.T) {
	exp := &fakeExporter{failOn: map[string]bool{"a": true}}
	w := NewExportWorker(seed(t), exp)

	if err := w.HandleInvoiceEvent(context.Background(), &amqp.InvoiceEvent{InvoiceID: "a"}); err == nil {
		t.Fatal("expected export error to be returned for redelivery")
	}
}

func TestExportRange(t *testing.T) {
	q1 := core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 3, 31)}

	tests := []struct {
		name    string
		failOn  map[string]bool
		r       core.DateRange
		want    int
		wantErr bool
	}{
		{"first quarter", nil, q1, 2, false},
		{"open range", nil, core.DateRange{}, 3, false},
		{"empty range", nil, core.DateRange{From: core.NewDate(2023, 1, 1), To: core.NewDate(2023, 12, 31)}, 0, false},
		{"partial failure", map[string]bool{"a": true}, q1, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewExportWorker(seed(t), &fakeExporter{failOn: tt.failOn})
			n, err := w.ExportRange(context.Background(), tt.r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if n != tt.want {
				t.Errorf("exported = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestExportRangeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewExportWorker(seed(t), &fakeExporter{}).ExportRange(ctx, core.DateRange{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 0 {
		t.Errorf("exported = %d, want 0", n)
	}
}
