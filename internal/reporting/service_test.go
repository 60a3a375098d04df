package reporting

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"propman/internal/cache"
	"propman/internal/core"
	"propman/internal/store/memory"
)

// countingStore counts invoice list calls so tests can tell cache hits from rebuilds.
type countingStore struct {
	*memory.Store
	lists atomic.Int32
}

func (c *countingStore) ListInvoices(ctx context.Context, f core.InvoiceFilter) ([]core.Invoice, error) {
	c.lists.Add(1)
	return c.Store.ListInvoices(ctx, f)
}

type failingProperties struct{}

func (failingProperties) ListProperties(context.Context) ([]core.Property, error) {
	return nil, errors.New("connection reset")
}

func (failingProperties) GetProperty(context.Context, string) (core.Property, error) {
	return core.Property{}, errors.New("connection reset")
}

func newTestService(t *testing.T, st *countingStore, cfg ServiceConfig) *Service {
	t.Helper()
	svc, err := NewService(st, st, st, cache.NewLRUCache[Report](16, time.Minute), cfg)
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return wednesday }
	return svc
}

func seed(t *testing.T, st *countingStore) {
	t.Helper()
	ctx := context.Background()
	if err := st.CreateProperty(ctx, core.Property{ID: "p1", Name: "Via Roma 1", Status: core.PropertyActive}); err != nil {
		t.Fatal(err)
	}
	for _, i := range []core.Invoice{
		inv("a", "p1", core.NewDate(2024, 5, 2), 10000, core.InvoicePaid),
		inv("b", "p1", core.NewDate(2024, 6, 3), 5000, core.InvoiceSent),
		inv("c", "p2", core.NewDate(2024, 6, 4), 2000, core.InvoiceSent),
	} {
		if err := st.CreateInvoice(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
}

func TestServiceFinancialCachesByVersion(t *testing.T) {
	st := &countingStore{Store: memory.New()}
	seed(t, st)
	svc := newTestService(t, st, ServiceConfig{})
	ctx := context.Background()
	req := Request{Granularity: core.Month}

	first, err := svc.Financial(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Summary.Revenue.Cents != 17000 {
		t.Errorf("Revenue = %d, want 17000", first.Summary.Revenue.Cents)
	}
	if len(first.Series) != 12 {
		t.Errorf("series has %d points, want 12", len(first.Series))
	}
	if len(first.ByProperty) != 2 || first.ByProperty[1].PropertyName != UnknownPropertyName {
		t.Errorf("ByProperty = %+v", first.ByProperty)
	}

	if _, err := svc.Financial(ctx, req); err != nil {
		t.Fatal(err)
	}
	if n := st.lists.Load(); n != 1 {
		t.Fatalf("store listed %d times, want 1 (second call cached)", n)
	}

	if err := st.CreateInvoice(ctx, inv("d", "p1", core.NewDate(2024, 6, 10), 3000, core.InvoicePaid)); err != nil {
		t.Fatal(err)
	}
	again, err := svc.Financial(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if st.lists.Load() != 2 {
		t.Errorf("version bump did not trigger rebuild")
	}
	if again.Summary.Revenue.Cents != 20000 || again.Version == first.Version {
		t.Errorf("stale report after write: revenue=%d version=%d", again.Summary.Revenue.Cents, again.Version)
	}
}

func TestServiceFinancialPropertyFilter(t *testing.T) {
	st := &countingStore{Store: memory.New()}
	seed(t, st)
	svc := newTestService(t, st, ServiceConfig{})

	rep, err := svc.Financial(context.Background(), Request{PropertyID: "p1", Granularity: core.Year})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Revenue.Cents != 15000 || rep.Summary.InvoicesPaidPct != 66.7 {
		t.Errorf("summary = %+v", rep.Summary)
	}
	if len(rep.ByProperty) != 1 || rep.ByProperty[0].PropertyID != "p1" {
		t.Errorf("ByProperty = %+v", rep.ByProperty)
	}
}

func TestServiceLedgerStrategy(t *testing.T) {
	st := &countingStore{Store: memory.New()}
	seed(t, st)
	ctx := context.Background()
	if err := st.CreateExpense(ctx, core.Expense{
		ID: "e1", PropertyID: "p1", Date: core.NewDate(2024, 6, 5),
		Description: "Boiler repair", Category: "maintenance", Amount: core.Money{Cents: 4000},
	}); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, st, ServiceConfig{Estimator: LedgerKind})

	rep, err := svc.Financial(ctx, Request{Granularity: core.Year})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Summary.Expenses.Cents != 4000 || rep.Summary.ExpensesEstimated {
		t.Errorf("expenses = %d estimated=%v", rep.Summary.Expenses.Cents, rep.Summary.ExpensesEstimated)
	}
}

func TestServiceErrors(t *testing.T) {
	st := &countingStore{Store: memory.New()}
	if _, err := NewService(st, st, nil, nil, ServiceConfig{Estimator: LedgerKind}); err == nil {
		t.Error("ledger strategy without ledger should fail")
	}

	svc, err := NewService(st, failingProperties{}, nil, nil, ServiceConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Financial(context.Background(), Request{Granularity: core.Month}); err == nil {
		t.Error("expected fetch error to surface")
	}
	if _, err := svc.Financial(context.Background(), Request{Granularity: "DAY"}); !errors.Is(err, core.ErrInvalidGranularity) {
		t.Errorf("err = %v, want ErrInvalidGranularity", err)
	}
}

func TestCacheKeyChangesWithVersion(t *testing.T) {
	r := core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 3, 31)}
	a := CacheKey(1, FixedRatioKind, core.Month, r, "p1")
	b := CacheKey(2, FixedRatioKind, core.Month, r, "p1")
	if a == b {
		t.Error("cache key ignores version")
	}
	if a != "report:v1:fixed_ratio:MONTH:2024-01-01:2024-03-31:p1" {
		t.Errorf("key = %q", a)
	}
}
