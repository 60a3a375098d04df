// Package dashboard builds the admin KPI overview from providers, properties
// and invoices fetched concurrently.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"propman/internal/core"
	"propman/internal/store"
)

// RecentInvoiceCount is how many invoices the overview lists.
const RecentInvoiceCount = 5

// Source is the slice of the document store the dashboard reads.
type Source interface {
	ListProviders(ctx context.Context) ([]core.ServiceProvider, error)
	ListProperties(ctx context.Context) ([]core.Property, error)
	ListInvoices(ctx context.Context, f core.InvoiceFilter) ([]core.Invoice, error)
}

var _ Source = store.Store(nil)

type ProviderCounts struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
}

type PropertyCounts struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Maintenance int `json:"maintenance"`
}

type InvoiceCounts struct {
	Total       int `json:"total"`
	Paid        int `json:"paid"`
	Overdue     int `json:"overdue"`
	Outstanding int `json:"outstanding"`
}

// Summary is the dashboard payload.
type Summary struct {
	Providers  ProviderCounts `json:"providers"`
	Properties PropertyCounts `json:"properties"`
	Invoices   InvoiceCounts  `json:"invoices"`

	Revenue            core.Money `json:"revenue"`
	Outstanding        core.Money `json:"outstanding"`
	MonthToDateRevenue core.Money `json:"monthToDateRevenue"`
	// PreviousMonthRevenue covers the same days of the previous month.
	PreviousMonthRevenue core.Money `json:"previousMonthRevenue"`
	// RevenueTrendPct is the month-to-date change against the previous
	// month, 0 when the previous month had no revenue.
	RevenueTrendPct float64 `json:"revenueTrendPct"`

	RecentInvoices []core.Invoice `json:"recentInvoices"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

type Service struct {
	src     Source
	timeout time.Duration
}

func NewService(src Source, fetchTimeout time.Duration) *Service {
	if fetchTimeout <= 0 {
		fetchTimeout = 7 * time.Second
	}
	return &Service{src: src, timeout: fetchTimeout}
}

// Summary fetches the three collections in parallel and aggregates them as of now.
func (s *Service) Summary(ctx context.Context, now time.Time) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		providers  []core.ServiceProvider
		properties []core.Property
		invoices   []core.Invoice
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if providers, err = s.src.ListProviders(gctx); err != nil {
			return fmt.Errorf("list providers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if properties, err = s.src.ListProperties(gctx); err != nil {
			return fmt.Errorf("list properties: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if invoices, err = s.src.ListInvoices(gctx, core.InvoiceFilter{}); err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Build(providers, properties, invoices, now), nil
}

// Build aggregates already fetched collections.
func Build(providers []core.ServiceProvider, properties []core.Property, invoices []core.Invoice, now time.Time) Summary {
	out := Summary{GeneratedAt: now.UTC()}

	for _, p := range providers {
		out.Providers.Total++
		switch p.Status {
		case core.ProviderActive:
			out.Providers.Active++
		case core.ProviderPending:
			out.Providers.Pending++
		}
	}
	for _, p := range properties {
		out.Properties.Total++
		switch p.Status {
		case core.PropertyActive:
			out.Properties.Active++
		case core.PropertyMaintenance:
			out.Properties.Maintenance++
		}
	}

	today := core.DateOf(now)
	mtd := core.DateRange{From: core.NewDate(today.Year(), int(today.Month()), 1), To: today}
	prev := previousMonthToDate(today)

	for _, inv := range invoices {
		out.Invoices.Total++
		out.Revenue = out.Revenue.Add(inv.Total)
		switch inv.Status {
		case core.InvoicePaid:
			out.Invoices.Paid++
		case core.InvoiceOverdue:
			out.Invoices.Overdue++
			fallthrough
		case core.InvoiceSent:
			out.Invoices.Outstanding++
			out.Outstanding = out.Outstanding.Add(inv.Total)
		}
		if mtd.Contains(inv.IssueDate) {
			out.MonthToDateRevenue = out.MonthToDateRevenue.Add(inv.Total)
		}
		if prev.Contains(inv.IssueDate) {
			out.PreviousMonthRevenue = out.PreviousMonthRevenue.Add(inv.Total)
		}
	}
	out.RevenueTrendPct = core.Percent(out.MonthToDateRevenue.Sub(out.PreviousMonthRevenue), out.PreviousMonthRevenue)

	recent := append([]core.Invoice(nil), invoices...)
	sort.SliceStable(recent, func(i, j int) bool {
		if !recent[i].IssueDate.Equal(recent[j].IssueDate) {
			return recent[i].IssueDate.After(recent[j].IssueDate)
		}
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentInvoiceCount {
		recent = recent[:RecentInvoiceCount]
	}
	out.RecentInvoices = recent
	return out
}

// previousMonthToDate is the previous month from day 1 up to today's day of
// month, clamped to that month's length.
func previousMonthToDate(today core.Date) core.DateRange {
	first := core.NewDate(today.Year(), int(today.Month()), 1).AddDays(-1)
	start := core.NewDate(first.Year(), int(first.Month()), 1)
	end := core.NewDate(first.Year(), int(first.Month()), today.Day())
	if end.After(first) {
		end = first
	}
	return core.DateRange{From: start, To: end}
}
