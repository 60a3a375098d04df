package reporting

import (
	"errors"
	"testing"
	"time"

	"propman/internal/core"
)

var wednesday = time.Date(2024, 6, 12, 15, 30, 0, 0, time.UTC)

func TestDefaultRange(t *testing.T) {
	tests := []struct {
		g       core.Granularity
		from    core.Date
		buckets int
	}{
		{core.Week, core.NewDate(2024, 3, 25), 12},
		{core.Month, core.NewDate(2023, 7, 1), 12},
		{core.Year, core.NewDate(2024, 1, 1), 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			r, err := DefaultRange(tt.g, wednesday)
			if err != nil {
				t.Fatal(err)
			}
			if !r.From.Equal(tt.from) {
				t.Errorf("From = %s, want %s", r.From, tt.from)
			}
			if !r.To.Equal(core.NewDate(2024, 6, 12)) {
				t.Errorf("To = %s, want 2024-06-12", r.To)
			}
			periods, _ := tt.g.Periods(r)
			if len(periods) != tt.buckets {
				t.Errorf("got %d buckets, want %d", len(periods), tt.buckets)
			}
		})
	}
}

func TestDefaultRangeWeekAcrossNewYear(t *testing.T) {
	r, err := DefaultRange(core.Week, time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	periods, _ := core.Week.Periods(r)
	if len(periods) != 12 {
		t.Fatalf("got %d buckets, want 12", len(periods))
	}
	if periods[len(periods)-1].Key != "2025-W02" {
		t.Errorf("last bucket = %s, want 2025-W02", periods[len(periods)-1].Key)
	}
}

func TestResolveRange(t *testing.T) {
	explicit := core.DateRange{From: core.NewDate(2022, 2, 1), To: core.NewDate(2022, 5, 31)}
	r, err := ResolveRange(core.Month, explicit, wednesday)
	if err != nil {
		t.Fatal(err)
	}
	if r != explicit {
		t.Errorf("explicit range overridden: %s", r)
	}

	r, err = ResolveRange(core.Year, core.DateRange{From: core.NewDate(2020, 1, 1)}, wednesday)
	if err != nil {
		t.Fatal(err)
	}
	if !r.To.Equal(core.NewDate(2024, 6, 12)) {
		t.Errorf("partial range To = %s, want today", r.To)
	}

	_, err = ResolveRange(core.Month, core.DateRange{From: core.NewDate(2024, 5, 1), To: core.NewDate(2024, 4, 1)}, wednesday)
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestReportStateKeepsExplicitRangeAcrossGranularity(t *testing.T) {
	s, err := NewReportState(core.Month)
	if err != nil {
		t.Fatal(err)
	}
	explicit := core.DateRange{From: core.NewDate(2023, 1, 1), To: core.NewDate(2023, 12, 31)}
	if err := s.SetRange(explicit); err != nil {
		t.Fatal(err)
	}

	for _, g := range []core.Granularity{core.Week, core.Year, core.Month} {
		if err := s.SetGranularity(g); err != nil {
			t.Fatal(err)
		}
		r, err := s.Range(wednesday)
		if err != nil {
			t.Fatal(err)
		}
		if r != explicit {
			t.Errorf("%s: range = %s, want %s", g, r, explicit)
		}
	}

	s.ClearRange()
	if s.HasExplicitRange() {
		t.Error("range still explicit after ClearRange")
	}
	r, _ := s.Range(wednesday)
	def, _ := DefaultRange(core.Month, wednesday)
	if r != def {
		t.Errorf("cleared range = %s, want default %s", r, def)
	}
}

func TestReportStateRejectsBadInput(t *testing.T) {
	if _, err := NewReportState("DAY"); !errors.Is(err, core.ErrInvalidGranularity) {
		t.Errorf("NewReportState err = %v", err)
	}
	s, _ := NewReportState(core.Week)
	if err := s.SetGranularity("quarter"); err == nil {
		t.Error("expected error for unknown granularity")
	}
	if s.Granularity() != core.Week {
		t.Errorf("granularity changed to %s", s.Granularity())
	}
	bad := core.DateRange{From: core.NewDate(2024, 2, 1), To: core.NewDate(2024, 1, 1)}
	if err := s.SetRange(bad); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("SetRange err = %v", err)
	}
}
