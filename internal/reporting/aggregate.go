package reporting

import (
	"sort"

	"propman/internal/core"
)

// UnknownPropertyName labels invoices whose property is missing from the catalog.
const UnknownPropertyName = "N/A"

// ComputeSummary aggregates invoices into a FinancialSummary. Percentages are
// rounded to one decimal and are zero when revenue is zero.
func ComputeSummary(invoices []core.Invoice, est ExpenseEstimator, scope Scope) core.FinancialSummary {
	var s core.FinancialSummary
	var paid core.Money
	for _, inv := range invoices {
		s.Revenue = s.Revenue.Add(inv.Total)
		if inv.Status == core.InvoicePaid {
			paid = paid.Add(inv.Total)
			s.PaidCount++
		}
	}
	s.InvoiceCount = len(invoices)
	s.InvoicesPaidPct = core.Percent(paid, s.Revenue)
	s.Expenses, s.ExpensesEstimated = estimate(est, scope, s.Revenue)
	s.Profit = s.Revenue.Sub(s.Expenses)
	s.MarginPct = core.Percent(s.Profit, s.Revenue)
	return s
}

// ComputeByProperty returns one entry per property that has at least one invoice,
// sorted by revenue descending (ties by property id).
func ComputeByProperty(invoices []core.Invoice, properties []core.Property, est ExpenseEstimator, r core.DateRange) []core.PropertyFinancialData {
	names := make(map[string]string, len(properties))
	for _, p := range properties {
		names[p.ID] = p.Name
	}

	groups := make(map[string][]core.Invoice)
	for _, inv := range invoices {
		groups[inv.PropertyID] = append(groups[inv.PropertyID], inv)
	}

	out := make([]core.PropertyFinancialData, 0, len(groups))
	for id, group := range groups {
		name, ok := names[id]
		if !ok {
			name = UnknownPropertyName
		}
		out = append(out, core.PropertyFinancialData{
			PropertyID:       id,
			PropertyName:     name,
			FinancialSummary: ComputeSummary(group, est, Scope{PropertyID: id, Range: r}),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue.Cents > out[j].Revenue.Cents
		}
		return out[i].PropertyID < out[j].PropertyID
	})
	return out
}

// ComputeTimeSeries buckets invoices by issue date into every period of g that
// intersects r. Periods without invoices are present with zero values.
// Invoices issued outside r are ignored.
func ComputeTimeSeries(invoices []core.Invoice, r core.DateRange, g core.Granularity, est ExpenseEstimator, propertyID string) ([]core.TimeSeriesPoint, error) {
	periods, err := g.Periods(r)
	if err != nil {
		return nil, err
	}
	points := make([]core.TimeSeriesPoint, len(periods))
	index := make(map[string]int, len(periods))
	for i, p := range periods {
		points[i].Period = p
		index[p.Key] = i
	}

	for _, inv := range invoices {
		if !r.Contains(inv.IssueDate) {
			continue
		}
		p, err := g.PeriodOf(inv.IssueDate)
		if err != nil {
			return nil, err
		}
		i, ok := index[p.Key]
		if !ok {
			continue
		}
		points[i].Revenue = points[i].Revenue.Add(inv.Total)
		points[i].InvoiceCount++
	}

	for i := range points {
		scope := Scope{PropertyID: propertyID, Range: clip(points[i].Period, r)}
		points[i].Expenses, points[i].ExpensesEstimated = estimate(est, scope, points[i].Revenue)
		points[i].Profit = points[i].Revenue.Sub(points[i].Expenses)
	}
	return points, nil
}

func clip(p core.Period, r core.DateRange) core.DateRange {
	out := core.DateRange{From: p.Start, To: p.End}
	if out.From.Before(r.From) {
		out.From = r.From
	}
	if out.To.After(r.To) {
		out.To = r.To
	}
	return out
}
