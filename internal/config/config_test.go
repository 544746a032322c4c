package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "replay"`)
}

func TestValidateModeIsCaseInsensitive(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "Monitor"
	require.NoError(t, cfg.Validate())
}

func TestValidateFieldErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantMsg: "unknown log_level",
		},
		{
			name:    "database port out of range",
			mutate:  func(c *Config) { c.Database.Port = 70000 },
			wantMsg: "database: port must be 1-65535",
		},
		{
			name:    "empty rpc url",
			mutate:  func(c *Config) { c.Ledger.RPCURL = "" },
			wantMsg: "ledger: rpc_url must not be empty",
		},
		{
			name:    "zero base rate",
			mutate:  func(c *Config) { c.Pricing.BaseRate = 0 },
			wantMsg: "pricing: base_rate must be positive",
		},
		{
			name:    "inverted period bounds",
			mutate:  func(c *Config) { c.Pricing.MinPeriodDays = 90; c.Pricing.MaxPeriodDays = 30 },
			wantMsg: "pricing: period bounds [90, 30] are invalid",
		},
		{
			name:    "non-positive job type weight",
			mutate:  func(c *Config) { c.Pricing.JobTypeWeights = map[string]float64{"DESIGN": -0.5} },
			wantMsg: "pricing: job_type_weights[DESIGN] must be positive",
		},
		{
			name:    "reserve ratio of one",
			mutate:  func(c *Config) { c.Pool.BaseReserveRatio = 1 },
			wantMsg: "pool: base_reserve_ratio must be in (0, 1)",
		},
		{
			name:    "buffer below reserve ratio",
			mutate:  func(c *Config) { c.Pool.RecommendedBuffer = 0.1 },
			wantMsg: "pool: recommended_buffer must be >= base_reserve_ratio",
		},
		{
			name:    "arbitration threshold above 100",
			mutate:  func(c *Config) { c.Claims.ArbitrationThreshold = 150 },
			wantMsg: "claims: arbitration_threshold must be in (0, 100]",
		},
		{
			name:    "two arbitrators cannot form a panel",
			mutate:  func(c *Config) { c.Claims.Arbitrators = []string{"a", "b"} },
			wantMsg: "claims: arbitrators must list at least 3 members",
		},
		{
			name:    "telegram token without chat id",
			mutate:  func(c *Config) { c.Notify.TelegramToken = "123:abc" },
			wantMsg: "notify: telegram_token and telegram_chat_id must be set together",
		},
		{
			name:    "server port zero while enabled",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantMsg: "server: port must be 1-65535",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestValidateSkipsHostChecksWhenDSNSet(t *testing.T) {
	cfg := Defaults()
	cfg.Database.DSN = "postgres://shield@localhost/shield"
	cfg.Database.Host = ""
	cfg.Database.Port = 0
	cfg.Database.Database = ""

	require.NoError(t, cfg.Validate())
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Pricing.BaseRate = -1
	cfg.Ledger.ChainID = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "base_rate")
	assert.Contains(t, err.Error(), "chain_id")
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("45s")))
	assert.Equal(t, 45*time.Second, d.Duration)

	require.NoError(t, d.UnmarshalText([]byte("5m")))
	assert.Equal(t, 5*time.Minute, d.Duration)

	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}

func TestLedgerRefreshDefault(t *testing.T) {
	var lc LedgerConfig
	assert.Equal(t, 30*time.Second, lc.Refresh())

	lc.RefreshInterval.Duration = 2 * time.Minute
	assert.Equal(t, 2*time.Minute, lc.Refresh())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
mode = "full"
log_level = "debug"

[pricing]
base_rate = 12.5

[ledger]
refresh_interval = "90s"

[claims]
arbitrators = ["arb-1", "arb-2", "arb-3"]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 12.5, cfg.Pricing.BaseRate)
	assert.Equal(t, 90*time.Second, cfg.Ledger.RefreshInterval.Duration)
	assert.Equal(t, []string{"arb-1", "arb-2", "arb-3"}, cfg.Claims.Arbitrators)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0.2, cfg.Pool.BaseReserveRatio)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "serve"`), 0o600))

	t.Setenv("SHIELD_MODE", "monitor")
	t.Setenv("SHIELD_DATABASE_PASSWORD", "hunter2")
	t.Setenv("SHIELD_SERVER_PORT", "9090")
	t.Setenv("SHIELD_POOL_BASE_RESERVE_RATIO", "0.3")
	t.Setenv("SHIELD_CLAIMS_ARBITRATORS", "a1, a2 ,a3")
	t.Setenv("SHIELD_LEDGER_REFRESH_INTERVAL", "15s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "hunter2", cfg.Database.Password)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.3, cfg.Pool.BaseReserveRatio)
	assert.Equal(t, []string{"a1", "a2", "a3"}, cfg.Claims.Arbitrators)
	assert.Equal(t, 15*time.Second, cfg.Ledger.RefreshInterval.Duration)
}

func TestLoadIgnoresMalformedEnvValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	t.Setenv("SHIELD_SERVER_PORT", "not-a-number")
	t.Setenv("SHIELD_POOL_BASE_RESERVE_RATIO", "half")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0.2, cfg.Pool.BaseReserveRatio)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestRedactedConfigMasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.SecretKey = "s3-secret"
	cfg.S3.EvidenceSecret = "hmac-secret"
	cfg.Server.APIKey = "api-secret"
	cfg.Notify.TelegramToken = "tg-token"
	cfg.Notify.TelegramChatID = "42"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.S3.EvidenceSecret)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Non-secret fields and the original config are untouched.
	assert.Equal(t, "42", red.Notify.TelegramChatID)
	assert.Equal(t, "pg-secret", cfg.Database.Password)
}

func TestRedactedConfigLeavesEmptySecretsEmpty(t *testing.T) {
	cfg := Defaults()
	red := RedactedConfig(&cfg)
	assert.Empty(t, red.Database.Password)
	assert.Empty(t, red.Server.APIKey)
}
