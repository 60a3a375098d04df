// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "propman"

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"method", "route"},
	)

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	})

	SuspiciousRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "suspicious_requests_total",
		Help:      "Requests matching a known probe pattern",
	})

	// Reporting metrics
	ReportRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "requests_total",
			Help:      "Financial report requests by cache result",
		},
		[]string{"result"},
	)

	ReportBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "report",
		Name:      "build_duration_seconds",
		Help:      "Time spent fetching and aggregating a report",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	// Invoice lifecycle metrics
	InvoiceWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoice",
			Name:      "writes_total",
			Help:      "Invoice writes by operation",
		},
		[]string{"operation"},
	)

	InvoiceEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoice",
			Name:      "events_published_total",
			Help:      "Invoice events published to the broker by result",
		},
		[]string{"result"},
	)

	OverdueMarked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "invoice",
		Name:      "overdue_marked_total",
		Help:      "Invoices moved to overdue by the sweep",
	})

	SheetsExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "sheets_exports_total",
			Help:      "Invoice rows exported to Google Sheets by result",
		},
		[]string{"result"},
	)

	// Auth metrics
	Signups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Signup attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
