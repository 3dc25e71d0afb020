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
// built-in defaults, applies VAULTGUARD_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known VAULTGUARD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Registry.
	setStr(&cfg.Registry.OwnerAddress, "VAULTGUARD_REGISTRY_OWNER_ADDRESS")
	setStr(&cfg.Registry.ZeroIDAddress, "VAULTGUARD_REGISTRY_ZERO_ID_ADDRESS")

	// Oracle.
	setDuration(&cfg.Oracle.CacheMaxAge, "VAULTGUARD_ORACLE_CACHE_MAX_AGE")

	// Adaptors.
	setStr(&cfg.Adaptors.ERC20Address, "VAULTGUARD_ADAPTORS_ERC20_ADDRESS")
	setBool(&cfg.Adaptors.OneInch.Enabled, "VAULTGUARD_ADAPTORS_ONEINCH_ENABLED")
	setStr(&cfg.Adaptors.OneInch.Address, "VAULTGUARD_ADAPTORS_ONEINCH_ADDRESS")
	setStr(&cfg.Adaptors.OneInch.Spender, "VAULTGUARD_ADAPTORS_ONEINCH_SPENDER")
	setBool(&cfg.Adaptors.ZeroEx.Enabled, "VAULTGUARD_ADAPTORS_ZEROEX_ENABLED")
	setStr(&cfg.Adaptors.ZeroEx.Address, "VAULTGUARD_ADAPTORS_ZEROEX_ADDRESS")
	setStr(&cfg.Adaptors.ZeroEx.Spender, "VAULTGUARD_ADAPTORS_ZEROEX_SPENDER")
	setDuration(&cfg.Adaptors.RebalanceLease, "VAULTGUARD_ADAPTORS_REBALANCE_LEASE")

	// Governance.
	setStr(&cfg.Governance.EncryptedKeyPath, "VAULTGUARD_GOVERNANCE_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Governance.KeyPassword, "VAULTGUARD_GOVERNANCE_KEY_PASSWORD")
	setStr(&cfg.Governance.RawPrivateKey, "VAULTGUARD_GOVERNANCE_PRIVATE_KEY")

	// Database.
	setStr(&cfg.Database.DSN, "VAULTGUARD_DATABASE_DSN")
	setStr(&cfg.Database.Host, "VAULTGUARD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "VAULTGUARD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "VAULTGUARD_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "VAULTGUARD_DATABASE_USER")
	setStr(&cfg.Database.Password, "VAULTGUARD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "VAULTGUARD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "VAULTGUARD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "VAULTGUARD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "VAULTGUARD_DATABASE_RUN_MIGRATIONS")

	// Redis.
	setStr(&cfg.Redis.Addr, "VAULTGUARD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VAULTGUARD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VAULTGUARD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VAULTGUARD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VAULTGUARD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "VAULTGUARD_REDIS_TLS_ENABLED")

	// S3.
	setStr(&cfg.S3.Endpoint, "VAULTGUARD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "VAULTGUARD_S3_REGION")
	setStr(&cfg.S3.Bucket, "VAULTGUARD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "VAULTGUARD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "VAULTGUARD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "VAULTGUARD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "VAULTGUARD_S3_FORCE_PATH_STYLE")

	// Archive.
	setBool(&cfg.Archive.Enabled, "VAULTGUARD_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "VAULTGUARD_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "VAULTGUARD_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.SealSecret, "VAULTGUARD_ARCHIVE_SEAL_SECRET")

	// Server.
	setBool(&cfg.Server.Enabled, "VAULTGUARD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "VAULTGUARD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VAULTGUARD_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "VAULTGUARD_SERVER_RATE_LIMIT")
	setInt(&cfg.Server.RateWindowSec, "VAULTGUARD_SERVER_RATE_WINDOW_SEC")

	// Top-level.
	setStr(&cfg.Mode, "VAULTGUARD_MODE")
	setStr(&cfg.LogLevel, "VAULTGUARD_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

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
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
