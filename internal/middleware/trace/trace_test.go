package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"propman/internal/log"
)

func newRouter(buf *bytes.Buffer, seen *string) *mux.Router {
	logger := log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP, Output: buf})
	r := mux.NewRouter()
	r.Use(NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" }).Middleware)
	r.HandleFunc("/api/invoices/{id}", func(w http.ResponseWriter, r *http.Request) {
		*seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})
	return r
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	rr := httptest.NewRecorder()
	newRouter(&buf, &seen).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/invoices/inv-1", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id in context = %q", seen)
	}
	if rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rr.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	for _, want := range []string{"status_code=404", "level=WARN", "client_ip=192.0.2.1", "request_id=" + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid id", "abc-123", true},
		{"spaces rejected", "abc 123", false},
		{"too long rejected", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/api/invoices/inv-1", nil)
			req.Header.Set(HeaderRequestID, tt.incoming)
			newRouter(&buf, &seen).ServeHTTP(httptest.NewRecorder(), req)
			if (seen == tt.incoming) != tt.keep {
				t.Errorf("seen = %q, incoming %q, keep %v", seen, tt.incoming, tt.keep)
			}
		})
	}
}

func TestRouteTemplateOutsideRouter(t *testing.T) {
	if got := routeTemplate(httptest.NewRequest(http.MethodGet, "/x", nil)); got != "unmatched" {
		t.Errorf("routeTemplate = %q, want unmatched", got)
	}
}
