// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, defaults, env var expansion, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
api:
  base_url: "http://localhost:3000/api/v1"
  timeout: "5s"

storage:
  path: "./state.db"
  quota_bytes: 5242880

checkout:
  payment_link: "https://buy.stripe.com/test_123"
  callback_secret: "`+testSecret+`"
  confirmation_ttl: "2h"
  replay_cache_size: 50

theme:
  default: "dark"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:3000/api/v1" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout)
	}
	if cfg.Storage.Path != "./state.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "./state.db")
	}
	if cfg.Storage.QuotaBytes != 5242880 {
		t.Errorf("Storage.QuotaBytes = %d, want 5242880", cfg.Storage.QuotaBytes)
	}
	if !cfg.Checkout.Enabled() {
		t.Error("Checkout.Enabled() = false, want true")
	}
	if cfg.Checkout.ConfirmationTTL != 2*time.Hour {
		t.Errorf("Checkout.ConfirmationTTL = %v, want 2h", cfg.Checkout.ConfirmationTTL)
	}
	if cfg.Checkout.ReplayCacheSize != 50 {
		t.Errorf("Checkout.ReplayCacheSize = %d, want 50", cfg.Checkout.ReplayCacheSize)
	}
	if cfg.Theme.Default != "dark" {
		t.Errorf("Theme.Default = %q, want dark", cfg.Theme.Default)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[api]
base_url = "http://localhost:3000/api/v1"
timeout = "30s"

[storage]
path = "/tmp/storefront.db"

[checkout]
payment_link = "https://pay.example.com/b/1"
callback_secret = "`+testSecret+`"

[theme]
default = "light"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.Storage.Path != "/tmp/storefront.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	// Not set in the file, so the default applies
	if cfg.Checkout.ConfirmationTTL != 24*time.Hour {
		t.Errorf("Checkout.ConfirmationTTL = %v, want 24h", cfg.Checkout.ConfirmationTTL)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logging:
  level: "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.API.BaseURL != def.API.BaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, def.API.BaseURL)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Errorf("API.Timeout = %v, want 15s", cfg.API.Timeout)
	}
	if cfg.Checkout.Enabled() {
		t.Error("checkout should be disabled without a payment link")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_STOREFRONT_SECRET", testSecret)
	t.Setenv("TEST_STOREFRONT_DB", "/var/lib/storefront/state.db")

	path := writeConfig(t, "config.yaml", `
storage:
  path: "${TEST_STOREFRONT_DB}"
checkout:
  payment_link: "https://pay.example.com/b/1"
  callback_secret: "${TEST_STOREFRONT_SECRET}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Path != "/var/lib/storefront/state.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Checkout.CallbackSecret != testSecret {
		t.Errorf("Checkout.CallbackSecret not expanded: %q", cfg.Checkout.CallbackSecret)
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
checkout:
  payment_link: "https://pay.example.com/b/1"
  callback_secret: "${TEST_STOREFRONT_UNSET_VAR_12345}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail when the secret expands to empty")
	}
	if !strings.Contains(err.Error(), "callback_secret") {
		t.Errorf("error = %v, want mention of callback_secret", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() should return error for missing file")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Theme.Default != "light" {
		t.Errorf("Theme.Default = %q, want light", cfg.Theme.Default)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoadOrDefault_InvalidFileStillFails(t *testing.T) {
	path := writeConfig(t, "config.yaml", "api: [unclosed")
	if _, err := LoadOrDefault(path); err == nil {
		t.Error("LoadOrDefault() should return error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"api timeout", "api:\n  timeout: \"soon\"\n"},
		{"confirmation ttl", "checkout:\n  confirmation_ttl: \"1 day\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tt.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() should return error for invalid duration")
			}
			if !strings.Contains(err.Error(), "parsing durations") {
				t.Errorf("error = %v, want duration parse error", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url",
		},
		{
			name:    "missing storage path",
			mutate:  func(c *Config) { c.Storage.Path = "" },
			wantErr: "storage.path",
		},
		{
			name:    "negative quota",
			mutate:  func(c *Config) { c.Storage.QuotaBytes = -1 },
			wantErr: "quota_bytes",
		},
		{
			name: "short secret",
			mutate: func(c *Config) {
				c.Checkout.PaymentLink = "https://pay.example.com/b/1"
				c.Checkout.CallbackSecret = "too-short"
			},
			wantErr: "callback_secret",
		},
		{
			name: "checkout configured",
			mutate: func(c *Config) {
				c.Checkout.PaymentLink = "https://pay.example.com/b/1"
				c.Checkout.CallbackSecret = testSecret
			},
		},
		{
			name:    "unknown theme",
			mutate:  func(c *Config) { c.Theme.Default = "sepia" },
			wantErr: "theme.default",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	if got := Path("/explicit.yaml"); got != "/explicit.yaml" {
		t.Errorf("Path(flag) = %q", got)
	}
	if got := Path(""); got != filepath.Join("/xdg", "storefront", "config.yaml") {
		t.Errorf("Path() with XDG = %q", got)
	}

	t.Setenv("STOREFRONT_CONFIG", "/env.toml")
	if got := Path(""); got != "/env.toml" {
		t.Errorf("Path() with env = %q", got)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_VAR}", "value"},
		{"prefix-${TEST_VAR}-suffix", "prefix-value-suffix"},
		{"${TEST_UNSET_VAR_98765}", ""},
		{"no vars here", "no vars here"},
		{"$TEST_VAR", "$TEST_VAR"},
	}

	for _, tt := range tests {
		if got := expandEnvVars(tt.input); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
