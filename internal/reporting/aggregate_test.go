package reporting

import (
	"testing"

	"propman/internal/core"
)

func inv(id, property string, issued core.Date, cents int64, status core.InvoiceStatus) core.Invoice {
	return core.Invoice{
		ID:         id,
		PropertyID: property,
		IssueDate:  issued,
		Status:     status,
		Subtotal:   core.Money{Cents: cents},
		Total:      core.Money{Cents: cents},
	}
}

var q1 = core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 3, 31)}

func TestComputeSummary(t *testing.T) {
	invoices := []core.Invoice{
		inv("a", "p1", core.NewDate(2024, 1, 5), 10000, core.InvoicePaid),
		inv("b", "p1", core.NewDate(2024, 1, 9), 5000, core.InvoiceSent),
	}
	s := ComputeSummary(invoices, FixedRatio{Ratio: DefaultExpenseRatio}, Scope{Range: q1})

	if s.Revenue.Cents != 15000 {
		t.Errorf("Revenue = %d, want 15000", s.Revenue.Cents)
	}
	if s.InvoicesPaidPct != 66.7 {
		t.Errorf("InvoicesPaidPct = %v, want 66.7", s.InvoicesPaidPct)
	}
	if s.Expenses.Cents != 4500 || !s.ExpensesEstimated {
		t.Errorf("Expenses = %d (estimated=%v), want 4500 estimated", s.Expenses.Cents, s.ExpensesEstimated)
	}
	if s.Profit.Cents != 10500 {
		t.Errorf("Profit = %d, want 10500", s.Profit.Cents)
	}
	if s.MarginPct != 70 {
		t.Errorf("MarginPct = %v, want 70", s.MarginPct)
	}
	if s.InvoiceCount != 2 || s.PaidCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", s.InvoiceCount, s.PaidCount)
	}
}

func TestComputeSummaryEmpty(t *testing.T) {
	s := ComputeSummary(nil, FixedRatio{Ratio: DefaultExpenseRatio}, Scope{Range: q1})
	if s.Revenue.Cents != 0 || s.InvoicesPaidPct != 0 || s.MarginPct != 0 || s.Expenses.Cents != 0 {
		t.Errorf("empty summary not zero: %+v", s)
	}
	if by := ComputeByProperty(nil, nil, nil, q1); len(by) != 0 {
		t.Errorf("ByProperty = %v, want empty", by)
	}
}

func TestComputeSummaryNilEstimator(t *testing.T) {
	s := ComputeSummary([]core.Invoice{inv("a", "p1", core.NewDate(2024, 1, 5), 1000, core.InvoicePaid)}, nil, Scope{})
	if s.Expenses.Cents != 0 || s.Profit.Cents != 1000 || s.MarginPct != 100 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestLedgerEstimator(t *testing.T) {
	ledger := Ledger{Entries: []core.Expense{
		{PropertyID: "p1", Date: core.NewDate(2024, 1, 10), Amount: core.Money{Cents: 1200}},
		{PropertyID: "p1", Date: core.NewDate(2024, 5, 10), Amount: core.Money{Cents: 9999}},
		{PropertyID: "p2", Date: core.NewDate(2024, 2, 10), Amount: core.Money{Cents: 300}},
	}}

	tests := []struct {
		name  string
		scope Scope
		want  int64
	}{
		{"single property", Scope{PropertyID: "p1", Range: q1}, 1200},
		{"all properties", Scope{Range: q1}, 1500},
		{"open range", Scope{PropertyID: "p1"}, 11199},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, estimated := ledger.Expenses(tt.scope, core.Money{})
			if got.Cents != tt.want {
				t.Errorf("Expenses = %d, want %d", got.Cents, tt.want)
			}
			if estimated {
				t.Error("ledger expenses should not be flagged as estimated")
			}
		})
	}
}

func TestComputeByProperty(t *testing.T) {
	invoices := []core.Invoice{
		inv("a", "p1", core.NewDate(2024, 1, 5), 10000, core.InvoicePaid),
		inv("b", "p2", core.NewDate(2024, 1, 9), 30000, core.InvoiceSent),
		inv("c", "p1", core.NewDate(2024, 2, 1), 5000, core.InvoiceSent),
		inv("d", "ghost", core.NewDate(2024, 2, 2), 15000, core.InvoicePaid),
	}
	properties := []core.Property{{ID: "p1", Name: "Via Roma 1"}, {ID: "p2", Name: "Corso Italia 7"}}

	by := ComputeByProperty(invoices, properties, FixedRatio{Ratio: DefaultExpenseRatio}, q1)
	if len(by) != 3 {
		t.Fatalf("got %d rows, want 3", len(by))
	}
	wantOrder := []string{"p2", "ghost", "p1"}
	var sum int64
	for i, row := range by {
		if row.PropertyID != wantOrder[i] {
			t.Errorf("row %d = %s, want %s", i, row.PropertyID, wantOrder[i])
		}
		sum += row.Revenue.Cents
	}
	if by[1].PropertyName != UnknownPropertyName {
		t.Errorf("unknown property name = %q", by[1].PropertyName)
	}
	if by[2].PropertyName != "Via Roma 1" || by[2].InvoicesPaidPct != 66.7 {
		t.Errorf("p1 row = %+v", by[2])
	}

	total := ComputeSummary(invoices, FixedRatio{Ratio: DefaultExpenseRatio}, Scope{Range: q1})
	if sum != total.Revenue.Cents {
		t.Errorf("sum of per-property revenue %d != total %d", sum, total.Revenue.Cents)
	}
}

func TestComputeByPropertyFiltered(t *testing.T) {
	all := []core.Invoice{
		inv("a", "p1", core.NewDate(2024, 1, 5), 10000, core.InvoicePaid),
		inv("b", "p2", core.NewDate(2024, 1, 9), 30000, core.InvoiceSent),
		inv("c", "p1", core.NewDate(2024, 2, 1), 5000, core.InvoiceSent),
	}
	filtered := core.FilterInvoices(all, core.InvoiceFilter{PropertyID: "p1", Range: q1})

	by := ComputeByProperty(filtered, nil, nil, q1)
	if len(by) != 1 || by[0].PropertyID != "p1" {
		t.Fatalf("ByProperty = %+v, want only p1", by)
	}
	s := ComputeSummary(filtered, nil, Scope{PropertyID: "p1", Range: q1})
	if s.Revenue.Cents != 15000 {
		t.Errorf("Revenue = %d, want 15000", s.Revenue.Cents)
	}
}

func TestComputeTimeSeries(t *testing.T) {
	invoices := []core.Invoice{
		inv("a", "p1", core.NewDate(2024, 1, 5), 10000, core.InvoicePaid),
		inv("b", "p1", core.NewDate(2024, 3, 31), 2000, core.InvoiceSent),
		inv("c", "p1", core.NewDate(2024, 4, 1), 7000, core.InvoiceSent),
	}

	points, err := ComputeTimeSeries(invoices, q1, core.Month, FixedRatio{Ratio: DefaultExpenseRatio}, "")
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		key     string
		revenue int64
		count   int
	}{
		{"2024-01", 10000, 1},
		{"2024-02", 0, 0},
		{"2024-03", 2000, 1},
	}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i, w := range want {
		p := points[i]
		if p.Key != w.key || p.Revenue.Cents != w.revenue || p.InvoiceCount != w.count {
			t.Errorf("point %d = %s %d/%d, want %s %d/%d", i, p.Key, p.Revenue.Cents, p.InvoiceCount, w.key, w.revenue, w.count)
		}
		if p.Profit.Cents != p.Revenue.Cents-p.Expenses.Cents {
			t.Errorf("point %d profit mismatch", i)
		}
	}
}

func TestComputeTimeSeriesEmptyIsZeroFilled(t *testing.T) {
	points, err := ComputeTimeSeries(nil, q1, core.Month, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3", len(points))
	}
	for _, p := range points {
		if !p.Revenue.IsZero() || p.InvoiceCount != 0 {
			t.Errorf("period %s not zero", p.Key)
		}
	}

	points, err = ComputeTimeSeries(nil, core.DateRange{}, core.Month, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 0 {
		t.Errorf("invalid range produced %d points", len(points))
	}
}

func TestComputeTimeSeriesLedgerClipsToRange(t *testing.T) {
	ledger := Ledger{Entries: []core.Expense{
		{PropertyID: "p1", Date: core.NewDate(2024, 1, 2), Amount: core.Money{Cents: 500}},
		{PropertyID: "p1", Date: core.NewDate(2024, 1, 20), Amount: core.Money{Cents: 700}},
	}}
	r := core.DateRange{From: core.NewDate(2024, 1, 15), To: core.NewDate(2024, 2, 10)}

	points, err := ComputeTimeSeries(nil, r, core.Month, ledger, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if points[0].Expenses.Cents != 700 {
		t.Errorf("January expenses = %d, want 700", points[0].Expenses.Cents)
	}
	if points[0].Profit.Cents != -700 {
		t.Errorf("January profit = %d, want -700", points[0].Profit.Cents)
	}
}
