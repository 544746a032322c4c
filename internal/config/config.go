// Package config defines the top-level configuration for the FreelanceShield
// risk engine backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by SHIELD_* environment variables.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Pricing  PricingConfig  `toml:"pricing"`
	Pool     PoolConfig     `toml:"pool"`
	Claims   ClaimsConfig   `toml:"claims"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	MetricsTTLSec   int    `toml:"metrics_ttl_sec"`
	QuoteTTLMinutes int    `toml:"quote_ttl_minutes"`
}

// S3Config holds S3-compatible object storage parameters for claim evidence.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	EvidenceSecret string `toml:"evidence_secret"` // HMAC key material for attachment digests
}

// LedgerConfig holds the read-only connection to the on-chain risk pool.
type LedgerConfig struct {
	RPCURL          string   `toml:"rpc_url"`
	PoolContract    string   `toml:"pool_contract"`
	ChainID         int      `toml:"chain_id"`
	TokenDecimals   int      `toml:"token_decimals"`  // native token base-unit decimals
	EngineDecimals  int      `toml:"engine_decimals"` // minor-unit decimals of the reference currency
	TimeoutSeconds  int      `toml:"timeout_seconds"`
	RefreshInterval duration `toml:"refresh_interval"`
}

// Refresh returns the configured ledger refresh interval, defaulting to 30
// seconds when unset.
func (c LedgerConfig) Refresh() time.Duration {
	if c.RefreshInterval.Duration <= 0 {
		return 30 * time.Second
	}
	return c.RefreshInterval.Duration
}

// PricingConfig holds the premium formula parameters. Currency values are
// minor units of the reference currency.
type PricingConfig struct {
	BaseRate                float64            `toml:"base_rate"`
	CoverageRatioMultiplier float64            `toml:"coverage_ratio_multiplier"`
	PeriodMultiplier        float64            `toml:"period_multiplier"`
	MaxCoverageRatio        float64            `toml:"max_coverage_ratio"`
	MinPremium              float64            `toml:"min_premium"`
	MarketConditionFactor   float64            `toml:"market_condition_factor"`
	MinPeriodDays           int                `toml:"min_period_days"`
	MaxPeriodDays           int                `toml:"max_period_days"`
	JobTypeWeights          map[string]float64 `toml:"job_type_weights"`
	IndustryWeights         map[string]float64 `toml:"industry_weights"`
}

// PoolConfig holds the risk pool solvency parameters.
type PoolConfig struct {
	BaseReserveRatio  float64 `toml:"base_reserve_ratio"`
	RecommendedBuffer float64 `toml:"recommended_buffer"`
	MaxCoverageAmount float64 `toml:"max_coverage_amount"`
	// LowReserveAlert triggers a notification when the reserve ratio drops
	// below this value in monitor mode.
	LowReserveAlert float64 `toml:"low_reserve_alert"`
}

// ClaimsConfig holds the adjudication thresholds and arbitration panel.
type ClaimsConfig struct {
	ArbitrationThreshold float64  `toml:"arbitration_threshold"`
	AutoClaimLimit       float64  `toml:"auto_claim_limit"`
	AutoProcessThreshold float64  `toml:"auto_process_threshold"`
	Arbitrators          []string `toml:"arbitrators"`
	PayoutLockTTLSec     int      `toml:"payout_lock_ttl_sec"`
}

// ServerConfig holds the HTTP API server parameters.
type ServerConfig struct {
	Enabled       bool     `toml:"enabled"`
	Port          int      `toml:"port"`
	CORSOrigins   []string `toml:"cors_origins"`
	APIKey        string   `toml:"api_key"`
	RateLimit     int      `toml:"rate_limit"` // requests per window per remote
	RateWindowSec int      `toml:"rate_window_sec"`
}

// NotifyConfig holds notification channel credentials and event filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

var validModes = map[string]bool{
	"serve":   true,
	"monitor": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Defaults returns a Config pre-populated with sane development defaults.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "shield",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			PoolSize:        20,
			MaxRetries:      3,
			MetricsTTLSec:   60,
			QuoteTTLMinutes: 10,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "shield-evidence",
			ForcePathStyle: true,
		},
		Ledger: LedgerConfig{
			RPCURL:         "http://localhost:8545",
			ChainID:        1,
			TokenDecimals:  6,
			EngineDecimals: 2,
			TimeoutSeconds: 10,
		},
		Pricing: PricingConfig{
			BaseRate:                10,
			CoverageRatioMultiplier: 0.75,
			PeriodMultiplier:        1.1,
			MaxCoverageRatio:        15.0,
			MinPremium:              1,
			MarketConditionFactor:   1.0,
			MinPeriodDays:           7,
			MaxPeriodDays:           365,
		},
		Pool: PoolConfig{
			BaseReserveRatio:  0.2,
			RecommendedBuffer: 0.5,
			MaxCoverageAmount: 25_000,
			LowReserveAlert:   0.25,
		},
		Claims: ClaimsConfig{
			ArbitrationThreshold: 70,
			AutoClaimLimit:       250,
			AutoProcessThreshold: 50,
			PayoutLockTTLSec:     30,
		},
		Server: ServerConfig{
			Enabled:       true,
			Port:          8080,
			CORSOrigins:   []string{"*"},
			RateLimit:     60,
			RateWindowSec: 60,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, monitor, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}

	// Ledger
	if c.Ledger.RPCURL == "" {
		errs = append(errs, "ledger: rpc_url must not be empty")
	}
	if c.Ledger.ChainID <= 0 {
		errs = append(errs, "ledger: chain_id must be positive")
	}
	if c.Ledger.TokenDecimals < 0 || c.Ledger.TokenDecimals > 18 {
		errs = append(errs, fmt.Sprintf("ledger: token_decimals must be 0-18, got %d", c.Ledger.TokenDecimals))
	}

	// Pricing
	if c.Pricing.BaseRate <= 0 {
		errs = append(errs, "pricing: base_rate must be positive")
	}
	if c.Pricing.MinPremium < 0 {
		errs = append(errs, "pricing: min_premium must not be negative")
	}
	if c.Pricing.MaxCoverageRatio <= 0 {
		errs = append(errs, "pricing: max_coverage_ratio must be positive")
	}
	if c.Pricing.MarketConditionFactor <= 0 {
		errs = append(errs, "pricing: market_condition_factor must be positive")
	}
	if c.Pricing.MinPeriodDays < 1 || c.Pricing.MaxPeriodDays < c.Pricing.MinPeriodDays {
		errs = append(errs, fmt.Sprintf("pricing: period bounds [%d, %d] are invalid",
			c.Pricing.MinPeriodDays, c.Pricing.MaxPeriodDays))
	}
	for name, w := range c.Pricing.JobTypeWeights {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("pricing: job_type_weights[%s] must be positive, got %g", name, w))
		}
	}
	for name, w := range c.Pricing.IndustryWeights {
		if w <= 0 {
			errs = append(errs, fmt.Sprintf("pricing: industry_weights[%s] must be positive, got %g", name, w))
		}
	}

	// Pool
	if c.Pool.BaseReserveRatio <= 0 || c.Pool.BaseReserveRatio >= 1 {
		errs = append(errs, fmt.Sprintf("pool: base_reserve_ratio must be in (0, 1), got %g", c.Pool.BaseReserveRatio))
	}
	if c.Pool.RecommendedBuffer < c.Pool.BaseReserveRatio {
		errs = append(errs, "pool: recommended_buffer must be >= base_reserve_ratio")
	}
	if c.Pool.MaxCoverageAmount <= 0 {
		errs = append(errs, "pool: max_coverage_amount must be positive")
	}

	// Claims
	if c.Claims.ArbitrationThreshold <= 0 || c.Claims.ArbitrationThreshold > 100 {
		errs = append(errs, fmt.Sprintf("claims: arbitration_threshold must be in (0, 100], got %g", c.Claims.ArbitrationThreshold))
	}
	if c.Claims.AutoProcessThreshold <= 0 || c.Claims.AutoProcessThreshold > 100 {
		errs = append(errs, fmt.Sprintf("claims: auto_process_threshold must be in (0, 100], got %g", c.Claims.AutoProcessThreshold))
	}
	if c.Claims.AutoClaimLimit < 0 {
		errs = append(errs, "claims: auto_claim_limit must not be negative")
	}
	if len(c.Claims.Arbitrators) > 0 && len(c.Claims.Arbitrators) < 3 {
		errs = append(errs, "claims: arbitrators must list at least 3 members when set")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must not be negative")
		}
	}

	// Notify - telegram needs both token and chat id.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
