// This file implements the Strategy Pattern for period bucketing.
// Each granularity (week, month, year) has its own strategy that knows how
// to find the period containing a day, how to format the period key and how
// to parse it back.

package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Granularity is the bucket size of a time series.
type Granularity string

const (
	Week  Granularity = "WEEK"
	Month Granularity = "MONTH"
	Year  Granularity = "YEAR"
)

var (
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrInvalidPeriodKey   = errors.New("invalid period key")
)

// Period is one bucket of a time series. Start and End are both inclusive.
type Period struct {
	Key   string `json:"period"`
	Start Date   `json:"start"`
	End   Date   `json:"end"`
}

// ParseGranularity accepts WEEK, MONTH or YEAR in any case.
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := periodStrategies[g]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
	return g, nil
}

func (g Granularity) Validate() error {
	if _, ok := periodStrategies[g]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
	return nil
}

// PeriodOf returns the period of granularity g that contains d.
func (g Granularity) PeriodOf(d Date) (Period, error) {
	s, ok := periodStrategies[g]
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
	return s.periodOf(d), nil
}

// Periods returns every period intersecting r, in chronological order and without gaps.
// An invalid range yields no periods.
func (g Granularity) Periods(r DateRange) ([]Period, error) {
	s, ok := periodStrategies[g]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
	if !r.Valid() {
		return nil, nil
	}
	var out []Period
	for p := s.periodOf(r.From); !p.Start.After(r.To); p = s.periodOf(p.End.AddDays(1)) {
		out = append(out, p)
	}
	return out, nil
}

// ParsePeriodKey parses a key produced by PeriodOf back into its period.
func (g Granularity) ParsePeriodKey(key string) (Period, error) {
	s, ok := periodStrategies[g]
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
	}
	p, err := s.parse(key)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}
	return p, nil
}

type periodStrategy interface {
	periodOf(d Date) Period
	parse(key string) (Period, error)
}

// weekStrategy numbers Monday-based weeks inside a calendar year. Week 1 is the
// week containing Jan 1 and weeks never cross a year boundary, so the first and
// last week of a year may be shorter than seven days.
type weekStrategy struct{}

func jan1Offset(year int) int {
	return (int(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Weekday()) + 6) % 7
}

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

func weeksInYear(year int) int {
	return (daysInYear(year)-1+jan1Offset(year))/7 + 1
}

func (weekStrategy) week(year, week int) Period {
	offset := jan1Offset(year)
	first := (week-1)*7 - offset + 1
	if first < 1 {
		first = 1
	}
	last := week*7 - offset
	if n := daysInYear(year); last > n {
		last = n
	}
	jan1 := NewDate(year, 1, 1)
	return Period{
		Key:   fmt.Sprintf("%04d-W%02d", year, week),
		Start: jan1.AddDays(first - 1),
		End:   jan1.AddDays(last - 1),
	}
}

func (s weekStrategy) periodOf(d Date) Period {
	year := d.Year()
	return s.week(year, (d.YearDay()-1+jan1Offset(year))/7+1)
}

func (s weekStrategy) parse(key string) (Period, error) {
	if len(key) != 8 || key[4:6] != "-W" {
		return Period{}, ErrInvalidPeriodKey
	}
	year, err := parseDigits(key[:4])
	if err != nil {
		return Period{}, err
	}
	week, err := parseDigits(key[6:])
	if err != nil {
		return Period{}, err
	}
	if year < 1 || week < 1 || week > weeksInYear(year) {
		return Period{}, ErrInvalidPeriodKey
	}
	return s.week(year, week), nil
}

type monthStrategy struct{}

func (monthStrategy) month(year int, month time.Month) Period {
	start := NewDate(year, int(month), 1)
	return Period{
		Key:   fmt.Sprintf("%04d-%02d", year, int(month)),
		Start: start,
		End:   Date{Time: start.AddDate(0, 1, -1)},
	}
}

func (s monthStrategy) periodOf(d Date) Period {
	return s.month(d.Year(), d.Month())
}

func (s monthStrategy) parse(key string) (Period, error) {
	if len(key) != 7 || key[4] != '-' {
		return Period{}, ErrInvalidPeriodKey
	}
	year, err := parseDigits(key[:4])
	if err != nil {
		return Period{}, err
	}
	month, err := parseDigits(key[5:])
	if err != nil {
		return Period{}, err
	}
	if year < 1 || month < 1 || month > 12 {
		return Period{}, ErrInvalidPeriodKey
	}
	return s.month(year, time.Month(month)), nil
}

type yearStrategy struct{}

func (yearStrategy) year(year int) Period {
	return Period{
		Key:   fmt.Sprintf("%04d", year),
		Start: NewDate(year, 1, 1),
		End:   NewDate(year, 12, 31),
	}
}

func (s yearStrategy) periodOf(d Date) Period {
	return s.year(d.Year())
}

func (s yearStrategy) parse(key string) (Period, error) {
	if len(key) != 4 {
		return Period{}, ErrInvalidPeriodKey
	}
	year, err := parseDigits(key)
	if err != nil || year < 1 {
		return Period{}, ErrInvalidPeriodKey
	}
	return s.year(year), nil
}

func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidPeriodKey
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidPeriodKey
	}
	return n, nil
}

// periodStrategies maps granularities to their bucketing strategy.
var periodStrategies = map[Granularity]periodStrategy{
	Week:  weekStrategy{},
	Month: monthStrategy{},
	Year:  yearStrategy{},
}
