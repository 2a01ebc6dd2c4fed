//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults are applied", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://u:p@localhost/db
admin:
  password: secret
generation:
  provider: gemini
  gemini_key: k
`)
		cfg, err := LoadConfig(p, false)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 3000 {
			t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
		}
		if cfg.Generation.Timeout != 60*time.Second {
			t.Errorf("expected 60s generation timeout, got %s", cfg.Generation.Timeout)
		}
		if cfg.Server.WriteTimeout <= cfg.Generation.Timeout {
			t.Errorf("write timeout %s must exceed generation timeout", cfg.Server.WriteTimeout)
		}
		if cfg.RateLimit.Generate.Limit != 10 || cfg.RateLimit.Generate.Window != time.Minute {
			t.Errorf("unexpected generate rate limit %+v", cfg.RateLimit.Generate)
		}
		if cfg.Generation.GeminiModel != "gemini-3-pro-image-preview" {
			t.Errorf("unexpected gemini model %s", cfg.Generation.GeminiModel)
		}
		if len(cfg.Codes.Alphabet) != 36 {
			t.Errorf("expected A-Z0-9 alphabet, got %q", cfg.Codes.Alphabet)
		}
	})

	t.Run("env overrides yaml secrets", func(t *testing.T) {
		p := writeConfig(t, `
storage:
  backend: memory
admin:
  password: from-yaml
generation:
  provider: noop
`)
		t.Setenv("ADMIN_PASSWORD", "from-env")
		t.Setenv("PORT", "8081")
		cfg, err := LoadConfig(p, true)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Admin.Password != "from-env" {
			t.Errorf("expected env password, got %s", cfg.Admin.Password)
		}
		if cfg.Server.Port != 8081 {
			t.Errorf("expected port 8081, got %d", cfg.Server.Port)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		cases := map[string]string{
			"missing database url": "admin:\n  password: x\ngeneration:\n  provider: gemini\n  gemini_key: k\n",
			"missing admin password": "database:\n  url: postgres://x\ngeneration:\n  provider: gemini\n  gemini_key: k\n",
			"memory outside dev":     "storage:\n  backend: memory\nadmin:\n  password: x\ngeneration:\n  provider: gemini\n  gemini_key: k\n",
			"http without endpoint":  "database:\n  url: postgres://x\nadmin:\n  password: x\n",
			"unknown provider":       "database:\n  url: postgres://x\nadmin:\n  password: x\ngeneration:\n  provider: dalle\n",
			"bad trusted proxy":      "server:\n  trusted_proxies: [\"10.0.0.0/40\"]\ndatabase:\n  url: postgres://x\nadmin:\n  password: x\ngeneration:\n  provider: gemini\n  gemini_key: k\n",
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				t.Setenv("ADMIN_PASSWORD", "")
				t.Setenv("DATABASE_URL", "")
				if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
					t.Errorf("expected validation error")
				}
			})
		}
	})

	t.Run("trusted proxies accept IPs and CIDRs", func(t *testing.T) {
		sc := ServerConfig{TrustedProxies: []string{"10.0.0.0/8", " 127.0.0.1 ", "::1"}}
		got, err := sc.TrustedProxyPrefixes()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"10.0.0.0/8", "127.0.0.1/32", "::1/128"}
		if len(got) != len(want) {
			t.Fatalf("expected %d prefixes, got %v", len(want), got)
		}
		for i := range want {
			if got[i].String() != want[i] {
				t.Errorf("prefix %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("missing file is an error outside dev", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}
