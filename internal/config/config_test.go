package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Payments.DefaultCurrency != "gbp" {
		t.Errorf("expected default currency gbp, got %q", cfg.Payments.DefaultCurrency)
	}
	if cfg.Payments.GetProcessorTimeout() != 10*time.Second {
		t.Errorf("expected 10s processor timeout, got %v", cfg.Payments.GetProcessorTimeout())
	}
	if cfg.Maintenance.CounterAuditEnabled {
		t.Error("counter audit must be disabled by default")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  type: postgres
  postgres:
    host: pg
    port: 5433
stripe:
  secret_key: sk_test_x
  webhook_secret: whsec_x
payments:
  processor_timeout_seconds: 4
auth:
  jwt_secret: secret
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Type != "postgres" || cfg.Database.Postgres.Port != 5433 {
		t.Errorf("database section not applied: %+v", cfg.Database)
	}
	// untouched keys keep their defaults
	if cfg.Database.Postgres.SSLMode != "disable" {
		t.Errorf("expected sslmode default to survive, got %q", cfg.Database.Postgres.SSLMode)
	}
	if cfg.Payments.GetProcessorTimeout() != 4*time.Second {
		t.Errorf("expected 4s timeout, got %v", cfg.Payments.GetProcessorTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stripe: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateReportsEveryMissingSecret(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"stripe.secret_key", "stripe.webhook_secret", "auth.jwt_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestCounterAuditCron(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"03:30", "30 3 * * *", false},
		{"00:00", "0 0 * * *", false},
		{"25:00", "", true},
		{"noon", "", true},
	}
	for _, tt := range tests {
		m := MaintenanceConfig{CounterAuditTime: tt.in}
		got, err := m.CounterAuditCron()
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: got %q, want %q", tt.in, got, tt.want)
		}
	}
}
