package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"propman/internal/core"
	"propman/internal/store/memory"
)

func invoice(id string, issued core.Date, cents int64, status core.InvoiceStatus) core.Invoice {
	return core.Invoice{ID: id, PropertyID: "p1", IssueDate: issued, Status: status, Total: core.Money{Cents: cents}}
}

func TestBuild(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	providers := []core.ServiceProvider{
		{ID: "a", Status: core.ProviderActive},
		{ID: "b", Status: core.ProviderPending},
		{ID: "c", Status: core.ProviderSuspended},
	}
	properties := []core.Property{
		{ID: "p1", Status: core.PropertyActive},
		{ID: "p2", Status: core.PropertyMaintenance},
		{ID: "p3", Status: core.PropertyInactive},
	}
	invoices := []core.Invoice{
		invoice("i1", core.NewDate(2024, 3, 1), 10000, core.InvoicePaid),
		invoice("i2", core.NewDate(2024, 3, 10), 5000, core.InvoiceSent),
		invoice("i3", core.NewDate(2024, 2, 20), 2000, core.InvoiceOverdue),
		invoice("i4", core.NewDate(2024, 2, 5), 10000, core.InvoicePaid),
		invoice("i5", core.NewDate(2024, 1, 5), 700, core.InvoiceDraft),
		invoice("i6", core.NewDate(2024, 3, 14), 300, core.InvoiceDraft),
	}

	s := Build(providers, properties, invoices, now)

	if s.Providers != (ProviderCounts{Total: 3, Active: 1, Pending: 1}) {
		t.Errorf("providers = %+v", s.Providers)
	}
	if s.Properties != (PropertyCounts{Total: 3, Active: 1, Maintenance: 1}) {
		t.Errorf("properties = %+v", s.Properties)
	}
	if s.Invoices != (InvoiceCounts{Total: 6, Paid: 2, Overdue: 1, Outstanding: 2}) {
		t.Errorf("invoices = %+v", s.Invoices)
	}
	if s.Revenue.Cents != 28000 || s.Outstanding.Cents != 7000 {
		t.Errorf("revenue/outstanding = %d/%d", s.Revenue.Cents, s.Outstanding.Cents)
	}
	if s.MonthToDateRevenue.Cents != 15300 {
		t.Errorf("MTD = %d, want 15300", s.MonthToDateRevenue.Cents)
	}
	// Feb 1-15 only includes i4.
	if s.PreviousMonthRevenue.Cents != 10000 || s.RevenueTrendPct != 53 {
		t.Errorf("previous = %d trend = %v", s.PreviousMonthRevenue.Cents, s.RevenueTrendPct)
	}

	if len(s.RecentInvoices) != RecentInvoiceCount {
		t.Fatalf("recent = %d", len(s.RecentInvoices))
	}
	want := []string{"i6", "i2", "i1", "i3", "i4"}
	for i, id := range want {
		if s.RecentInvoices[i].ID != id {
			t.Errorf("recent[%d] = %s, want %s", i, s.RecentInvoices[i].ID, id)
		}
	}
}

func TestBuildEmpty(t *testing.T) {
	s := Build(nil, nil, nil, time.Now())
	if s.Revenue.Cents != 0 || s.RevenueTrendPct != 0 || len(s.RecentInvoices) != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestPreviousMonthToDateClamps(t *testing.T) {
	r := previousMonthToDate(core.NewDate(2024, 3, 31))
	if !r.From.Equal(core.NewDate(2024, 2, 1)) || !r.To.Equal(core.NewDate(2024, 2, 29)) {
		t.Errorf("range = %s", r)
	}
	r = previousMonthToDate(core.NewDate(2024, 1, 10))
	if !r.From.Equal(core.NewDate(2023, 12, 1)) || !r.To.Equal(core.NewDate(2023, 12, 10)) {
		t.Errorf("range = %s", r)
	}
}

type failingSource struct{ *memory.Store }

func (failingSource) ListProviders(context.Context) ([]core.ServiceProvider, error) {
	return nil, errors.New("timeout")
}

func TestServiceSummary(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	if err := st.CreateProperty(ctx, core.Property{ID: "p1", Name: "A", Status: core.PropertyActive}); err != nil {
		t.Fatal(err)
	}
	if err := st.CreateInvoice(ctx, invoice("i1", core.NewDate(2024, 3, 1), 1000, core.InvoicePaid)); err != nil {
		t.Fatal(err)
	}

	s, err := NewService(st, time.Second).Summary(ctx, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if s.Properties.Total != 1 || s.Revenue.Cents != 1000 {
		t.Errorf("summary = %+v", s)
	}

	if _, err := NewService(failingSource{st}, time.Second).Summary(ctx, time.Now()); err == nil {
		t.Error("expected provider fetch error")
	}
}
