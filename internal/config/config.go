// ABOUTME: Configuration loading and parsing for the storefront client
// ABOUTME: Supports YAML or TOML files with environment variable expansion, defaults, and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MinSecretLength is the minimum callback secret size in bytes.
const MinSecretLength = 32

// Config represents the complete storefront configuration
type Config struct {
	API      APIConfig      `yaml:"api" toml:"api"`
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Checkout CheckoutConfig `yaml:"checkout" toml:"checkout"`
	Theme    ThemeConfig    `yaml:"theme" toml:"theme"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// APIConfig holds the storefront REST API settings
type APIConfig struct {
	BaseURL string        `yaml:"base_url" toml:"base_url"`
	Timeout time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	TimeoutRaw string `yaml:"timeout" toml:"timeout"`
}

// StorageConfig holds the slot database settings
type StorageConfig struct {
	Path string `yaml:"path" toml:"path"`
	// QuotaBytes caps the total stored bytes; 0 means unlimited
	QuotaBytes int64 `yaml:"quota_bytes" toml:"quota_bytes"`
}

// CheckoutConfig holds the hosted payment page and confirmation settings
type CheckoutConfig struct {
	PaymentLink     string        `yaml:"payment_link" toml:"payment_link"`
	CallbackSecret  string        `yaml:"callback_secret" toml:"callback_secret"`
	ReplayCacheSize int           `yaml:"replay_cache_size" toml:"replay_cache_size"`
	ConfirmationTTL time.Duration `yaml:"-" toml:"-"`

	ConfirmationTTLRaw string `yaml:"confirmation_ttl" toml:"confirmation_ttl"`
}

// Enabled reports whether a payment link is configured.
func (c CheckoutConfig) Enabled() bool {
	return c.PaymentLink != ""
}

// ThemeConfig holds the default display theme
type ThemeConfig struct {
	Default string `yaml:"default" toml:"default"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.escuelajs.co/api/v1",
			Timeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Path: filepath.Join(DataDir(), "state.db"),
		},
		Checkout: CheckoutConfig{
			ReplayCacheSize: 10_000,
			ConfirmationTTL: 24 * time.Hour,
		},
		Theme:   ThemeConfig{Default: "light"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, anything else as YAML. Fields the
// file leaves out keep their Default values. Environment variables in the
// format ${VAR_NAME} are expanded before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Path returns the config file to use.
// Priority: flag value > STOREFRONT_CONFIG env var > XDG_CONFIG_HOME/storefront/config.yaml > ~/.config/storefront/config.yaml
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envPath := os.Getenv("STOREFRONT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "storefront", "config.yaml")
}

// DataDir returns the storefront data directory.
// Priority: XDG_DATA_HOME/storefront > ~/.local/share/storefront
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "storefront")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}

	// Checkout is optional, but once a payment link is set the secret must be strong enough to sign confirmations
	if c.Checkout.Enabled() {
		if len(c.Checkout.CallbackSecret) < MinSecretLength {
			return fmt.Errorf("checkout.callback_secret must be at least %d bytes when checkout.payment_link is set", MinSecretLength)
		}
		if c.Checkout.ConfirmationTTL <= 0 {
			return fmt.Errorf("checkout.confirmation_ttl must be positive")
		}
		if c.Checkout.ReplayCacheSize <= 0 {
			return fmt.Errorf("checkout.replay_cache_size must be positive")
		}
	}

	switch c.Theme.Default {
	case "light", "dark":
	default:
		return fmt.Errorf("theme.default must be light or dark, got %q", c.Theme.Default)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing api.timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.Checkout.ConfirmationTTLRaw != "" {
		cfg.Checkout.ConfirmationTTL, err = time.ParseDuration(cfg.Checkout.ConfirmationTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing checkout.confirmation_ttl %q: %w", cfg.Checkout.ConfirmationTTLRaw, err)
		}
	}

	return nil
}
