package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultOverdueSweepSpec runs the sweep shortly after midnight UTC.
const DefaultOverdueSweepSpec = "5 0 * * *"

// OverdueSweeperConfig holds configuration for the overdue sweeper.
type OverdueSweeperConfig struct {
	// Spec is a standard five-field cron expression evaluated in UTC.
	Spec string

	// JobTimeout bounds a single sweep (default: 2m).
	JobTimeout time.Duration

	// RunOnStart sweeps once immediately when started.
	RunOnStart bool
}

// OverdueSweeper periodically moves past-due sent invoices to overdue.
type OverdueSweeper struct {
	invoices *InvoiceService
	config   OverdueSweeperConfig
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewOverdueSweeper(invoices *InvoiceService, config OverdueSweeperConfig) *OverdueSweeper {
	if config.Spec == "" {
		config.Spec = DefaultOverdueSweepSpec
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 2 * time.Minute
	}
	return &OverdueSweeper{invoices: invoices, config: config, now: time.Now}
}

// Start schedules the sweep. Returns an error if already running or if the
// cron spec does not parse.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("overdue sweeper is already running")
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.config.Spec, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule overdue sweep %q: %w", s.config.Spec, err)
	}
	c.Start()
	s.cron = c
	s.running = true

	if s.config.RunOnStart {
		go s.sweep(ctx)
	}
	slog.InfoContext(ctx, "Overdue sweeper started", "spec", s.config.Spec)
	return nil
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		slog.InfoContext(ctx, "Overdue sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Overdue sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *OverdueSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce performs a single sweep at the current time.
func (s *OverdueSweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	return s.invoices.MarkOverdue(ctx, s.now())
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Overdue sweep failed", "error", err)
	}
}
