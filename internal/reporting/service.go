package reporting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"propman/internal/cache"
	"propman/internal/core"
	"propman/internal/metrics"
	"propman/internal/store"
)

// DefaultFetchTimeout bounds the concurrent store reads behind one report.
const DefaultFetchTimeout = 7 * time.Second

// Request selects what a financial report covers. A zero Range bound is
// filled from the granularity's default range.
type Request struct {
	PropertyID  string
	Granularity core.Granularity
	Range       core.DateRange
}

// Report is a fully aggregated financial report.
type Report struct {
	Range       core.DateRange               `json:"range"`
	Granularity core.Granularity             `json:"granularity"`
	PropertyID  string                       `json:"propertyId,omitempty"`
	Summary     core.FinancialSummary        `json:"summary"`
	ByProperty  []core.PropertyFinancialData `json:"byProperty"`
	Series      []core.TimeSeriesPoint       `json:"series"`
	Version     int64                        `json:"version"`
	GeneratedAt time.Time                    `json:"generatedAt"`
}

// ServiceConfig holds the tunables of a Service.
type ServiceConfig struct {
	Estimator    EstimatorKind
	ExpenseRatio decimal.Decimal
	FetchTimeout time.Duration
}

// Service builds reports from the document store and memoizes them by
// invoice-set version.
type Service struct {
	invoices   store.InvoiceReader
	properties store.PropertyReader
	expenses   store.ExpenseLedger
	cache      cache.Cache[Report]
	group      singleflight.Group
	cfg        ServiceConfig
	now        func() time.Time
}

// NewService wires a report service. expenses may be nil when the fixed
// ratio strategy is used; rc may be nil to disable memoization.
func NewService(invoices store.InvoiceReader, properties store.PropertyReader, expenses store.ExpenseLedger, rc cache.Cache[Report], cfg ServiceConfig) (*Service, error) {
	if cfg.Estimator == "" {
		cfg.Estimator = FixedRatioKind
	}
	if cfg.Estimator == LedgerKind && expenses == nil {
		return nil, errors.New("ledger expense strategy requires an expense ledger")
	}
	if cfg.ExpenseRatio.IsZero() {
		cfg.ExpenseRatio = DefaultExpenseRatio
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &Service{
		invoices:   invoices,
		properties: properties,
		expenses:   expenses,
		cache:      rc,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// CacheKey identifies a report for one invoice-set version.
func CacheKey(version int64, kind EstimatorKind, g core.Granularity, r core.DateRange, propertyID string) string {
	return fmt.Sprintf("report:v%d:%s:%s:%s:%s:%s", version, kind, g, r.From, r.To, propertyID)
}

// Financial returns the report for req, serving it from cache when the
// invoice set has not changed since it was built.
func (s *Service) Financial(ctx context.Context, req Request) (Report, error) {
	if err := req.Granularity.Validate(); err != nil {
		return Report{}, err
	}
	r, err := ResolveRange(req.Granularity, req.Range, s.now())
	if err != nil {
		return Report{}, err
	}

	version, err := s.invoices.InvoiceSetVersion(ctx)
	if err != nil {
		metrics.ReportRequests.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("invoice set version: %w", err)
	}
	key := CacheKey(version, s.cfg.Estimator, req.Granularity, r, req.PropertyID)

	if s.cache != nil {
		if rep, ok := s.cache.Get(key); ok {
			metrics.ReportRequests.WithLabelValues("hit").Inc()
			return rep, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		rep, err := s.build(ctx, req.PropertyID, req.Granularity, r, version)
		if err != nil {
			return Report{}, err
		}
		if s.cache != nil {
			s.cache.Set(key, rep)
		}
		return rep, nil
	})
	if err != nil {
		metrics.ReportRequests.WithLabelValues("error").Inc()
		return Report{}, err
	}
	if shared {
		metrics.ReportRequests.WithLabelValues("shared").Inc()
	} else {
		metrics.ReportRequests.WithLabelValues("miss").Inc()
	}
	return v.(Report), nil
}

func (s *Service) build(ctx context.Context, propertyID string, g core.Granularity, r core.DateRange, version int64) (Report, error) {
	start := time.Now()
	defer func() { metrics.ReportBuildDuration.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	var (
		invoices   []core.Invoice
		properties []core.Property
		ledger     []core.Expense
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		invoices, err = s.invoices.ListInvoices(egCtx, core.InvoiceFilter{PropertyID: propertyID, Range: r})
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		properties, err = s.properties.ListProperties(egCtx)
		if err != nil {
			return fmt.Errorf("list properties: %w", err)
		}
		return nil
	})
	if s.cfg.Estimator == LedgerKind {
		eg.Go(func() error {
			var err error
			ledger, err = s.expenses.ListExpenses(egCtx, core.ExpenseFilter{PropertyID: propertyID, Range: r})
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Report{}, err
	}

	est := s.estimator(ledger)
	series, err := ComputeTimeSeries(invoices, r, g, est, propertyID)
	if err != nil {
		return Report{}, err
	}
	rep := Report{
		Range:       r,
		Granularity: g,
		PropertyID:  propertyID,
		Summary:     ComputeSummary(invoices, est, Scope{PropertyID: propertyID, Range: r}),
		ByProperty:  ComputeByProperty(invoices, properties, est, r),
		Series:      series,
		Version:     version,
		GeneratedAt: s.now().UTC(),
	}
	slog.DebugContext(ctx, "Financial report built",
		"component", "reporting",
		"range", r.String(),
		"granularity", string(g),
		"invoices", len(invoices),
		"duration_ms", time.Since(start).Milliseconds())
	return rep, nil
}

func (s *Service) estimator(ledger []core.Expense) ExpenseEstimator {
	if s.cfg.Estimator == LedgerKind {
		return Ledger{Entries: ledger}
	}
	return FixedRatio{Ratio: s.cfg.ExpenseRatio}
}
