package app

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/wallet"
)

const (
	defaultAuthBaseURL    = "http://localhost:8081"
	defaultWalletBaseURL  = "http://localhost:8081"
	defaultDatabaseURL    = "sqlite://hyperx.db"
	defaultRequestTimeout = 30 * time.Second

	// DatabaseMemory keeps tokens and the cache mirror in process memory.
	DatabaseMemory = "memory"
)

// Config aggregates runtime settings for the wallet client.
type Config struct {
	AuthBaseURL       string
	WalletBaseURL     string
	DatabaseURL       string
	RequestTimeout    time.Duration
	SupabaseURL       string
	SupabaseKey       string
	BackendOperations []string
}

// Validate applies defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.AuthBaseURL = defaultIfEmpty(cfg.AuthBaseURL, defaultAuthBaseURL)
	cfg.WalletBaseURL = defaultIfEmpty(cfg.WalletBaseURL, defaultWalletBaseURL)
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if err := requireAbsoluteURL("auth base url", cfg.AuthBaseURL); err != nil {
		return err
	}
	if err := requireAbsoluteURL("wallet base url", cfg.WalletBaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.SupabaseURL) != "" {
		if err := requireAbsoluteURL("supabase url", cfg.SupabaseURL); err != nil {
			return err
		}
		if strings.TrimSpace(cfg.SupabaseKey) == "" {
			return fmt.Errorf("supabase key is required when supabase url is set")
		}
	}
	if _, err := cfg.Capabilities(); err != nil {
		return err
	}
	return nil
}

// Capabilities converts BackendOperations into wallet capabilities. An empty
// list keeps the defaults.
func (cfg *Config) Capabilities() (wallet.Capabilities, error) {
	if len(cfg.BackendOperations) == 0 {
		return wallet.DefaultCapabilities(), nil
	}
	capabilities := wallet.Capabilities{}
	for _, operation := range wallet.Operations() {
		capabilities[operation] = false
	}
	for _, raw := range cfg.BackendOperations {
		operation, ok := wallet.ParseOperation(raw)
		if !ok {
			return nil, fmt.Errorf("unknown backend operation %q", raw)
		}
		capabilities[operation] = true
	}
	return capabilities, nil
}

// ProfilesEnabled reports whether biodata can be stored.
func (cfg *Config) ProfilesEnabled() bool {
	return strings.TrimSpace(cfg.SupabaseURL) != ""
}

// ParseList splits comma-delimited values into a slice.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}

func requireAbsoluteURL(name string, raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url: %q", name, raw)
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
