package demobackend

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultListenAddr       = ":8081"
	defaultAllowedOrigin    = "http://localhost:5173"
	defaultIssuer           = "hyperx-demo"
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 7 * 24 * time.Hour
	defaultVerificationCode = "123456"
	quoteTTL                = time.Minute
	historyLimit            = 50
)

// Config aggregates runtime settings for the demo services.
type Config struct {
	ListenAddr       string
	AllowedOrigins   []string
	SigningKey       string
	Issuer           string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	VerificationCode string
}

// Validate applies defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	cfg.Issuer = defaultIfEmpty(cfg.Issuer, defaultIssuer)
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = defaultAccessTokenTTL
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	cfg.VerificationCode = defaultIfEmpty(cfg.VerificationCode, defaultVerificationCode)
	if len(cfg.SigningKey) == 0 {
		return fmt.Errorf("jwt signing key is required")
	}
	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		return fmt.Errorf("refresh token ttl must not be shorter than the access token ttl")
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
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

// StarterBalances returns the balances credited to a newly verified account.
func StarterBalances() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"eth_sepolia": decimal.RequireFromString("0.5"),
		"usdc":        decimal.NewFromInt(100),
		"btc_testnet": decimal.RequireFromString("0.01"),
	}
}
