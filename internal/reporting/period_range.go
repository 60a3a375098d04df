package reporting

import (
	"errors"
	"time"

	"propman/internal/core"
)

// trailingPeriods is how many buckets the default WEEK and MONTH ranges cover.
const trailingPeriods = 12

var ErrInvalidRange = errors.New("invalid date range: from must not be after to")

// DefaultRange returns the range shown when the user has not picked one:
// the trailing 12 weeks or months ending today, or year-to-date for YEAR.
// The range starts on a bucket boundary.
func DefaultRange(g core.Granularity, now time.Time) (core.DateRange, error) {
	today := core.DateOf(now)
	current, err := g.PeriodOf(today)
	if err != nil {
		return core.DateRange{}, err
	}

	var from core.Date
	switch g {
	case core.Week:
		from = current.Start
		for i := 1; i < trailingPeriods; i++ {
			prev, _ := g.PeriodOf(from.AddDays(-1))
			from = prev.Start
		}
	case core.Month:
		from = core.Date{Time: current.Start.AddDate(0, -(trailingPeriods - 1), 0)}
	default:
		from = current.Start
	}
	return core.DateRange{From: from, To: today}, nil
}

// ResolveRange returns explicit when it has bounds, otherwise the default for g.
// A missing bound of a partial explicit range is taken from the default.
func ResolveRange(g core.Granularity, explicit core.DateRange, now time.Time) (core.DateRange, error) {
	def, err := DefaultRange(g, now)
	if err != nil {
		return core.DateRange{}, err
	}
	r := explicit
	if r.From.IsZero() {
		r.From = def.From
	}
	if r.To.IsZero() {
		r.To = def.To
	}
	if r.To.Before(r.From) {
		return core.DateRange{}, ErrInvalidRange
	}
	return r, nil
}

// ReportState is the user-facing selection of a report: a granularity plus an
// optional explicit range. Changing the granularity never discards an explicit
// range; the default range only applies while no explicit range is set.
type ReportState struct {
	granularity core.Granularity
	explicit    core.DateRange
}

func NewReportState(g core.Granularity) (*ReportState, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &ReportState{granularity: g}, nil
}

func (s *ReportState) Granularity() core.Granularity { return s.granularity }

func (s *ReportState) SetGranularity(g core.Granularity) error {
	if err := g.Validate(); err != nil {
		return err
	}
	s.granularity = g
	return nil
}

// SetRange stores an explicit range. Either bound may be zero.
func (s *ReportState) SetRange(r core.DateRange) error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return ErrInvalidRange
	}
	s.explicit = r
	return nil
}

func (s *ReportState) ClearRange() { s.explicit = core.DateRange{} }

func (s *ReportState) HasExplicitRange() bool {
	return !s.explicit.From.IsZero() || !s.explicit.To.IsZero()
}

// Range resolves the effective range at time now.
func (s *ReportState) Range(now time.Time) (core.DateRange, error) {
	return ResolveRange(s.granularity, s.explicit, now)
}
