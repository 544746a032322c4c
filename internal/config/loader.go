package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SHIELD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SHIELD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SHIELD_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SHIELD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SHIELD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SHIELD_DATABASE_NAME")
	setStr(&cfg.Database.User, "SHIELD_DATABASE_USER")
	setStr(&cfg.Database.Password, "SHIELD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SHIELD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SHIELD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SHIELD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SHIELD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SHIELD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SHIELD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SHIELD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SHIELD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SHIELD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SHIELD_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.MetricsTTLSec, "SHIELD_REDIS_METRICS_TTL_SEC")
	setInt(&cfg.Redis.QuoteTTLMinutes, "SHIELD_REDIS_QUOTE_TTL_MINUTES")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SHIELD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SHIELD_S3_REGION")
	setStr(&cfg.S3.Bucket, "SHIELD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SHIELD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SHIELD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SHIELD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SHIELD_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.EvidenceSecret, "SHIELD_S3_EVIDENCE_SECRET")

	// ── Ledger ──
	setStr(&cfg.Ledger.RPCURL, "SHIELD_LEDGER_RPC_URL")
	setStr(&cfg.Ledger.PoolContract, "SHIELD_LEDGER_POOL_CONTRACT")
	setInt(&cfg.Ledger.ChainID, "SHIELD_LEDGER_CHAIN_ID")
	setInt(&cfg.Ledger.TokenDecimals, "SHIELD_LEDGER_TOKEN_DECIMALS")
	setInt(&cfg.Ledger.TimeoutSeconds, "SHIELD_LEDGER_TIMEOUT_SECONDS")
	setDuration(&cfg.Ledger.RefreshInterval, "SHIELD_LEDGER_REFRESH_INTERVAL")

	// ── Pricing ──
	setFloat64(&cfg.Pricing.BaseRate, "SHIELD_PRICING_BASE_RATE")
	setFloat64(&cfg.Pricing.MinPremium, "SHIELD_PRICING_MIN_PREMIUM")
	setFloat64(&cfg.Pricing.MarketConditionFactor, "SHIELD_PRICING_MARKET_CONDITION_FACTOR")

	// ── Pool ──
	setFloat64(&cfg.Pool.BaseReserveRatio, "SHIELD_POOL_BASE_RESERVE_RATIO")
	setFloat64(&cfg.Pool.RecommendedBuffer, "SHIELD_POOL_RECOMMENDED_BUFFER")
	setFloat64(&cfg.Pool.MaxCoverageAmount, "SHIELD_POOL_MAX_COVERAGE_AMOUNT")
	setFloat64(&cfg.Pool.LowReserveAlert, "SHIELD_POOL_LOW_RESERVE_ALERT")

	// ── Claims ──
	setFloat64(&cfg.Claims.ArbitrationThreshold, "SHIELD_CLAIMS_ARBITRATION_THRESHOLD")
	setFloat64(&cfg.Claims.AutoClaimLimit, "SHIELD_CLAIMS_AUTO_CLAIM_LIMIT")
	setFloat64(&cfg.Claims.AutoProcessThreshold, "SHIELD_CLAIMS_AUTO_PROCESS_THRESHOLD")
	setStringSlice(&cfg.Claims.Arbitrators, "SHIELD_CLAIMS_ARBITRATORS")
	setInt(&cfg.Claims.PayoutLockTTLSec, "SHIELD_CLAIMS_PAYOUT_LOCK_TTL_SEC")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SHIELD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SHIELD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SHIELD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SHIELD_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "SHIELD_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateWindowSec, "SHIELD_SERVER_RATE_WINDOW_SEC")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SHIELD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SHIELD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SHIELD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SHIELD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SHIELD_MODE")
	setStr(&cfg.LogLevel, "SHIELD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
