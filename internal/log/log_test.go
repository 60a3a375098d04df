package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentReport, Output: &buf})

	l.Debug("hidden")
	l.WithComponent(ComponentCache).Info("built", FieldGranularity, "MONTH")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record written at info level")
	}
	for _, want := range []string{"component=report", "subsystem=cache", "granularity=MONTH"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	l := Discard().WithComponent(ComponentHTTP)
	if got := FromContext(WithLogger(context.Background(), l)); got != l {
		t.Fatalf("FromContext returned %p, want %p", got, l)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("FromContext fallback = %+v", l)
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelInfo, Component: ComponentInvoice, Output: &buf}))

	sl.LogInvoiceWritten(context.Background(), OpCreate, "inv-1", "p1", "draft", 12200)
	sl.LogError(context.Background(), "publish failed", errors.New("broker down"), OpCreate, nil)

	out := buf.String()
	for _, want := range []string{"invoice_id=inv-1", "amount_cents=12200", "operation=create", `error="broker down"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
