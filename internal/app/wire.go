package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/harborfi/vaultguard/internal/adaptor"
	s3blob "github.com/harborfi/vaultguard/internal/blob/s3"
	"github.com/harborfi/vaultguard/internal/cache/redis"
	"github.com/harborfi/vaultguard/internal/config"
	"github.com/harborfi/vaultguard/internal/crypto"
	"github.com/harborfi/vaultguard/internal/domain"
	"github.com/harborfi/vaultguard/internal/events"
	"github.com/harborfi/vaultguard/internal/pricing"
	"github.com/harborfi/vaultguard/internal/registry"
	"github.com/harborfi/vaultguard/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Core
	Registry *registry.Registry
	Units    map[common.Address]domain.Adaptor
	Oracle   domain.PriceOracle

	// Stores
	Ledger     domain.RegistryLedger
	AuditStore domain.AuditStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	EventBus    domain.EventBus

	// Blob storage (only when archiving is enabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Governance credential, nil when none is configured.
	Signer *crypto.Signer

	// HealthChecks probes backing services for the health endpoint.
	HealthChecks map[string]func() error
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Units:        make(map[common.Address]domain.Adaptor),
		HealthChecks: make(map[string]func() error),
	}

	// --- PostgreSQL ---
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
	deps.Ledger = postgres.NewLedger(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.HealthChecks["postgres"] = func() error { return pool.Ping(context.Background()) }

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

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient)
	deps.HealthChecks["redis"] = func() error { return redisClient.Ping(context.Background()) }

	// --- S3 blob storage (only when archiving) ---
	if cfg.Archive.Enabled {
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
		closers = append(closers, func() { _ = s3Client.Close() })

		writer := s3blob.NewWriter(s3Client)
		deps.BlobWriter = writer
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(writer, deps.AuditStore, crypto.NewSeal(cfg.Archive.SealSecret))
		deps.HealthChecks["s3"] = func() error { return s3Client.Health(context.Background()) }
	}

	// --- Price oracle: static feeds behind the Redis read-through cache ---
	feeds, err := parseFeeds(cfg.Oracle.Feeds)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: oracle feeds: %w", err)
	}
	deps.Oracle = pricing.NewCachedOracle(
		pricing.NewStaticOracle(feeds),
		deps.PriceCache,
		cfg.Oracle.CacheMaxAge.Duration,
		logger,
	)

	// --- Governance credential (optional) ---
	if cfg.Governance.RawPrivateKey != "" || cfg.Governance.EncryptedKeyPath != "" {
		cred, err := crypto.LoadCredential(crypto.KeyConfig{
			RawPrivateKey:    cfg.Governance.RawPrivateKey,
			EncryptedKeyPath: cfg.Governance.EncryptedKeyPath,
			KeyPassword:      cfg.Governance.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: governance credential: %w", err)
		}
		deps.Signer = crypto.NewSigner(cred)
	}

	// --- Registry ---
	sink := events.NewMulti(
		events.NewLogSink(logger),
		events.NewAuditSink(deps.AuditStore, logger),
		events.NewBusSink(deps.EventBus, logger),
	)
	reg, err := registry.Load(ctx, registry.Config{
		Owner:  common.HexToAddress(cfg.Registry.OwnerAddress),
		Oracle: deps.Oracle,
		Ledger: deps.Ledger,
		Events: sink,
		Logger: logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: registry: %w", err)
	}
	deps.Registry = reg

	// Seed the zero-id principal into slot 0 on a fresh ledger.
	if cfg.Registry.ZeroIDAddress != "" {
		if _, err := reg.GetAddress(domain.ZeroIDSlot); errors.Is(err, domain.ErrNotFound) {
			if _, err := reg.Register(ctx, reg.Owner(), common.HexToAddress(cfg.Registry.ZeroIDAddress)); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: seed zero-id: %w", err)
			}
		}
	}

	// --- Adaptor units ---
	if err := wireUnits(cfg, deps, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	return deps, cleanup, nil
}

// wireUnits builds the configured adaptor units and re-attaches them to the
// registry's trust entries.
func wireUnits(cfg *config.Config, deps *Dependencies, logger *slog.Logger) error {
	if cfg.Adaptors.ERC20Address != "" {
		unit := adaptor.NewERC20Adaptor(common.HexToAddress(cfg.Adaptors.ERC20Address))
		deps.Units[unit.Address()] = unit
	}

	venues := []struct {
		name  string
		vcfg  config.AdaptorVenue
		build func(adaptor.AggregatorConfig) domain.Adaptor
	}{
		{"oneinch", cfg.Adaptors.OneInch, func(c adaptor.AggregatorConfig) domain.Adaptor {
			return adaptor.NewOneInchAdaptor(c)
		}},
		{"zeroex", cfg.Adaptors.ZeroEx, func(c adaptor.AggregatorConfig) domain.Adaptor {
			return adaptor.NewZeroExAdaptor(c)
		}},
	}
	for _, v := range venues {
		if !v.vcfg.Enabled {
			continue
		}
		unit := v.build(adaptor.AggregatorConfig{
			Address:    common.HexToAddress(v.vcfg.Address),
			Aggregator: adaptor.NewPaperVenue(v.name, common.HexToAddress(v.vcfg.Spender)),
			Registry:   deps.Registry,
			Oracle:     deps.Oracle,
			Logger:     logger,
		})
		deps.Units[unit.Address()] = unit
	}

	// Re-attach units that already hold a persisted trust entry. Units
	// without one stay detached until governance trusts them over the API.
	for ref, unit := range deps.Units {
		err := deps.Registry.AttachUnit(unit)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
		default:
			return fmt.Errorf("wire: attach adaptor %s: %w", ref, err)
		}
	}
	return nil
}

// parseFeeds converts the config feed table into oracle form.
func parseFeeds(raw map[string]string) (map[common.Address]*big.Int, error) {
	out := make(map[common.Address]*big.Int, len(raw))
	for asset, price := range raw {
		if !common.IsHexAddress(asset) {
			return nil, fmt.Errorf("feed asset %q is not an address", asset)
		}
		p, ok := new(big.Int).SetString(strings.TrimSpace(price), 10)
		if !ok || p.Sign() < 0 {
			return nil, fmt.Errorf("feed %s has invalid price %q", asset, price)
		}
		out[common.HexToAddress(asset)] = p
	}
	return out, nil
}
