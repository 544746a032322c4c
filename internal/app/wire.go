package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/freelanceshield/shieldd/internal/blob/s3"
	"github.com/freelanceshield/shieldd/internal/cache/redis"
	"github.com/freelanceshield/shieldd/internal/config"
	"github.com/freelanceshield/shieldd/internal/crypto"
	"github.com/freelanceshield/shieldd/internal/domain"
	"github.com/freelanceshield/shieldd/internal/ledger"
	"github.com/freelanceshield/shieldd/internal/notify"
	"github.com/freelanceshield/shieldd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	PolicyStore domain.PolicyStore
	ClaimStore  domain.ClaimStore
	QuoteStore  domain.QuoteStore

	// Caches and coordination
	MetricsCache domain.MetricsCache
	QuoteCache   domain.QuoteCache
	RateLimiter  domain.RateLimiter
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus

	// Evidence storage
	EvidenceWriter domain.EvidenceWriter
	EvidenceReader domain.EvidenceReader
	EvidenceSigner *crypto.EvidenceSigner

	// On-chain pool state
	Ledger domain.LedgerReader

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require a database connection.
func needsPostgres(mode string) bool {
	switch mode {
	case "serve", "full":
		return true
	default:
		return false
	}
}

// needsS3 returns true for modes that accept claim evidence.
func needsS3(mode string) bool {
	switch mode {
	case "serve", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (only for modes that serve the API) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Database.DSN,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			Database: cfg.Database.Database,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			SSLMode:  cfg.Database.SSLMode,
			MaxConns: cfg.Database.PoolMaxConns,
			MinConns: cfg.Database.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.PolicyStore = postgres.NewPolicyStore(pool)
		deps.ClaimStore = postgres.NewClaimStore(pool)
		deps.QuoteStore = postgres.NewQuoteStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MetricsCache = redis.NewMetricsCache(redisClient)
	deps.QuoteCache = redis.NewQuoteCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Ledger (read-only risk pool state) ---
	ledgerClient, err := ledger.New(ctx, ledger.ClientConfig{
		RPCURL:         cfg.Ledger.RPCURL,
		PoolContract:   cfg.Ledger.PoolContract,
		ChainID:        cfg.Ledger.ChainID,
		TokenDecimals:  cfg.Ledger.TokenDecimals,
		EngineDecimals: cfg.Ledger.EngineDecimals,
		Timeout:        time.Duration(cfg.Ledger.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ledger: %w", err)
	}
	closers = append(closers, ledgerClient.Close)
	deps.Ledger = ledgerClient

	// --- S3 evidence storage (only for modes that accept claims) ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		evidence := s3blob.NewEvidenceStore(s3Client)
		deps.EvidenceWriter = evidence
		deps.EvidenceReader = evidence

		signer, err := crypto.NewEvidenceSigner(cfg.S3.EvidenceSecret)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: evidence signer: %w", err)
		}
		deps.EvidenceSigner = signer
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
