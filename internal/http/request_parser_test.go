package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"propman/internal/core"
	"propman/internal/reporting"
)

func TestParseReportRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    reporting.Request
		wantErr error
	}{
		{
			name:  "defaults to month without range",
			query: url.Values{},
			want:  reporting.Request{Granularity: core.Month},
		},
		{
			name:  "lower-case granularity with range and property",
			query: url.Values{"granularity": {"week"}, "from": {"2024-01-01"}, "to": {"2024-03-31"}, "property": {" p1 "}},
			want: reporting.Request{
				PropertyID:  "p1",
				Granularity: core.Week,
				Range:       core.DateRange{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 3, 31)},
			},
		},
		{
			name:  "open ended range",
			query: url.Values{"granularity": {"YEAR"}, "from": {"2023-06-01"}},
			want:  reporting.Request{Granularity: core.Year, Range: core.DateRange{From: core.NewDate(2023, 6, 1)}},
		},
		{name: "unknown granularity", query: url.Values{"granularity": {"day"}}, wantErr: core.ErrInvalidGranularity},
		{name: "malformed date", query: url.Values{"to": {"31/12/2024"}}, wantErr: core.ErrInvalidDate},
		{name: "inverted range", query: url.Values{"from": {"2024-02-01"}, "to": {"2024-01-01"}}, wantErr: reporting.ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReportRequest(tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.PropertyID != tt.want.PropertyID || got.Granularity != tt.want.Granularity ||
				!got.Range.From.Equal(tt.want.Range.From) || !got.Range.To.Equal(tt.want.Range.To) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseInvoiceFilter(t *testing.T) {
	f, err := ParseInvoiceFilter(url.Values{"status": {"Overdue"}, "property": {"p9"}})
	if err != nil {
		t.Fatal(err)
	}
	if f.Status != core.InvoiceOverdue || f.PropertyID != "p9" {
		t.Errorf("filter = %+v", f)
	}
	if _, err := ParseInvoiceFilter(url.Values{"status": {"void"}}); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("err = %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def", "abc.def"},
		{"bearer   abc", "abc"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		if got := BearerToken(r); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string    `json:"name"`
		Date core.Date `json:"date"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"name":"x","date":"2024-01-02"}`, nil},
		{"unknown field", `{"name":"x","extra":1}`, errBadRequest},
		{"trailing data", `{"name":"x"} {"name":"y"}`, errBadRequest},
		{"not json", `name=x`, errBadRequest},
		{"bad date keeps domain error", `{"date":"2024-13-01"}`, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(r, &p)
			if tt.wantErr == nil {
				if err != nil || p.Name != "x" {
					t.Fatalf("err = %v, payload = %+v", err, p)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
