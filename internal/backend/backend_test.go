package backend

import (
	"context"
	"path/filepath"
	"testing"

	"propman/internal/config"
	"propman/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "./x.db"})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "./x.db" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("FromAppConfig() accepted the sheets backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) returned no error")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown type", Config{Type: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "sqlite" || got[1] != "memory" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	factory := NewFactory(log.Discard())
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		defer res.Cleanup()
		if _, err := res.Store.ListProperties(ctx); err != nil {
			t.Errorf("ListProperties() error = %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "db", "propman.db")
		res, err := factory.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		if _, err := res.Store.InvoiceSetVersion(ctx); err != nil {
			t.Errorf("InvoiceSetVersion() error = %v", err)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := factory.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
			t.Error("CreateBackend() accepted sqlite without a path")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := factory.CreateBackend(cctx, Config{Type: MemoryBackend}); err == nil {
			t.Error("CreateBackend() ignored a cancelled context")
		}
	})
}
