package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPSDECK_CONFIG_PATH", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIListLimitMax != 500 {
		t.Errorf("APIListLimitMax = %d, want 500", cfg.APIListLimitMax)
	}
	if cfg.TokenTTLMinutes != 720 {
		t.Errorf("TokenTTLMinutes = %d, want 720", cfg.TokenTTLMinutes)
	}
	if cfg.SiteCheckIntervalSeconds != 60 {
		t.Errorf("SiteCheckIntervalSeconds = %d, want 60", cfg.SiteCheckIntervalSeconds)
	}
	if got := cfg.Source("token_ttl_minutes"); got != "default" {
		t.Errorf("Source(token_ttl_minutes) = %q, want default", got)
	}
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	content := []byte("token_ttl_minutes: 60\nbackup_dir: /srv/dumps\n")
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPSDECK_CONFIG_PATH", dir)
	t.Setenv("OPSDECK_TOKEN_TTL_MINUTES", "15")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Environment beats file
	if cfg.TokenTTLMinutes != 15 {
		t.Errorf("TokenTTLMinutes = %d, want 15", cfg.TokenTTLMinutes)
	}
	if got := cfg.Source("token_ttl_minutes"); got != "environment" {
		t.Errorf("Source(token_ttl_minutes) = %q, want environment", got)
	}

	// File beats default
	if cfg.BackupDir != "/srv/dumps" {
		t.Errorf("BackupDir = %q, want /srv/dumps", cfg.BackupDir)
	}
	if got := cfg.Source("backup_dir"); got != "file" {
		t.Errorf("Source(backup_dir) = %q, want file", got)
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("token_ttl_minutes: [nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPSDECK_CONFIG_PATH", dir)

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*OpsdeckConfig)
		wantErr bool
	}{
		{"defaults", func(c *OpsdeckConfig) {}, false},
		{"cidr proxies", func(c *OpsdeckConfig) { c.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.1"} }, false},
		{"bad proxy", func(c *OpsdeckConfig) { c.TrustedProxies = []string{"not-an-ip"} }, true},
		{"zero list limit", func(c *OpsdeckConfig) { c.APIListLimitMax = 0 }, true},
		{"timeout above interval", func(c *OpsdeckConfig) {
			c.SiteCheckIntervalSeconds = 5
			c.SiteCheckTimeoutSeconds = 10
		}, true},
		{"zero backup concurrency", func(c *OpsdeckConfig) { c.BackupConcurrency = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsTrustedProxy(t *testing.T) {
	cfg := newDefault()
	cfg.TrustedProxies = []string{"10.0.0.0/8", "172.16.1.5"}

	if !cfg.IsTrustedProxy("10.1.2.3") {
		t.Error("10.1.2.3 should match 10.0.0.0/8")
	}
	if !cfg.IsTrustedProxy("172.16.1.5") {
		t.Error("plain IP entry should match exactly")
	}
	if cfg.IsTrustedProxy("192.168.1.1") {
		t.Error("192.168.1.1 should not be trusted")
	}
	if cfg.IsTrustedProxy("garbage") {
		t.Error("unparseable IP should not be trusted")
	}
}

func TestIsAllowedOrigin(t *testing.T) {
	cfg := newDefault()
	if !cfg.IsAllowedOrigin("https://anything.example.com") {
		t.Error("empty allow list should accept any origin")
	}

	cfg.AllowOrigins = []string{"https://panel.example.com"}
	if !cfg.IsAllowedOrigin("https://panel.example.com") {
		t.Error("listed origin should be allowed")
	}
	if cfg.IsAllowedOrigin("https://evil.example.com") {
		t.Error("unlisted origin should be rejected")
	}
}
