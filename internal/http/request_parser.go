// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// JSON bodies, report and listing query strings, and bearer tokens.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"propman/internal/core"
	"propman/internal/reporting"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// DecodeJSON reads one JSON value from the request body into dst. Unknown
// fields and trailing data are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		if errors.Is(err, core.ErrInvalidDate) || errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after json body", errBadRequest)
	}
	return nil
}

// ParseDateRange reads optional from/to query values (YYYY-MM-DD).
func ParseDateRange(query url.Values) (core.DateRange, error) {
	var r core.DateRange
	for _, p := range []struct {
		key string
		dst *core.Date
	}{{"from", &r.From}, {"to", &r.To}} {
		v := strings.TrimSpace(query.Get(p.key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, fmt.Errorf("%w: %s=%q", core.ErrInvalidDate, p.key, v)
		}
		*p.dst = d
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return core.DateRange{}, reporting.ErrInvalidRange
	}
	return r, nil
}

// ParseReportRequest reads granularity, from, to and property from a report
// query. Granularity defaults to MONTH.
func ParseReportRequest(query url.Values) (reporting.Request, error) {
	g := core.Month
	if v := strings.TrimSpace(query.Get("granularity")); v != "" {
		parsed, err := core.ParseGranularity(v)
		if err != nil {
			return reporting.Request{}, err
		}
		g = parsed
	}
	r, err := ParseDateRange(query)
	if err != nil {
		return reporting.Request{}, err
	}
	return reporting.Request{
		PropertyID:  strings.TrimSpace(query.Get("property")),
		Granularity: g,
		Range:       r,
	}, nil
}

// ParseInvoiceFilter reads property, status, from and to.
func ParseInvoiceFilter(query url.Values) (core.InvoiceFilter, error) {
	r, err := ParseDateRange(query)
	if err != nil {
		return core.InvoiceFilter{}, err
	}
	f := core.InvoiceFilter{
		PropertyID: strings.TrimSpace(query.Get("property")),
		Range:      r,
	}
	if v := strings.TrimSpace(query.Get("status")); v != "" {
		status := core.InvoiceStatus(strings.ToLower(v))
		if !status.Valid() {
			return core.InvoiceFilter{}, fmt.Errorf("%w: %q", core.ErrInvalidStatus, v)
		}
		f.Status = status
	}
	return f, nil
}

// ParseExpenseFilter reads property, from and to.
func ParseExpenseFilter(query url.Values) (core.ExpenseFilter, error) {
	r, err := ParseDateRange(query)
	if err != nil {
		return core.ExpenseFilter{}, err
	}
	return core.ExpenseFilter{PropertyID: strings.TrimSpace(query.Get("property")), Range: r}, nil
}

// ParsePropertyQuery reads status, type and search.
func ParsePropertyQuery(query url.Values) (core.PropertyQuery, error) {
	q := core.PropertyQuery{
		Type:   strings.TrimSpace(query.Get("type")),
		Search: strings.TrimSpace(query.Get("search")),
	}
	if v := strings.TrimSpace(query.Get("status")); v != "" {
		status := core.PropertyStatus(strings.ToLower(v))
		if !status.Valid() {
			return core.PropertyQuery{}, fmt.Errorf("%w: %q", core.ErrInvalidPropertyStatus, v)
		}
		q.Status = status
	}
	return q, nil
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
