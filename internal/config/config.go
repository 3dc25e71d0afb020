// Package config defines the top-level configuration for the vaultguard
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by VAULTGUARD_* environment
// variables.
type Config struct {
	Registry   RegistryConfig   `toml:"registry"`
	Oracle     OracleConfig     `toml:"oracle"`
	Adaptors   AdaptorsConfig   `toml:"adaptors"`
	Governance GovernanceConfig `toml:"governance"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Archive    ArchiveConfig    `toml:"archive"`
	Server     ServerConfig     `toml:"server"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// RegistryConfig holds the registry's bootstrap parameters. The owner here
// only seeds a fresh ledger; once persisted state exists, the stored owner
// wins.
type RegistryConfig struct {
	OwnerAddress  string `toml:"owner_address"`
	ZeroIDAddress string `toml:"zero_id_address"`
}

// OracleConfig holds price oracle parameters. Feeds maps asset addresses to
// USD prices as decimal strings in 8-decimal fixed point.
type OracleConfig struct {
	Feeds       map[string]string `toml:"feeds"`
	CacheMaxAge duration          `toml:"cache_max_age"`
}

// AdaptorsConfig holds the deploy-time identities of the execution adaptors.
type AdaptorsConfig struct {
	ERC20Address   string       `toml:"erc20_address"`
	OneInch        AdaptorVenue `toml:"oneinch"`
	ZeroEx         AdaptorVenue `toml:"zeroex"`
	RebalanceLease duration     `toml:"rebalance_lease"`
}

// AdaptorVenue holds one aggregator venue's adaptor identity and router
// spender address.
type AdaptorVenue struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
	Spender string `toml:"spender"`
}

// GovernanceConfig holds the credentials used to authenticate governance
// calls against the HTTP surface.
type GovernanceConfig struct {
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`

	// RawPrivateKey is an environment-only escape hatch for development;
	// it never belongs in a config file.
	RawPrivateKey string `toml:"-"`
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
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds audit archival parameters.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	SealSecret    string   `toml:"seal_secret"`
}

// ServerConfig holds HTTP server parameters. APIKeys maps API key values to
// the principal address each key authenticates as.
type ServerConfig struct {
	Enabled       bool              `toml:"enabled"`
	Port          int               `toml:"port"`
	CORSOrigins   []string          `toml:"cors_origins"`
	APIKeys       map[string]string `toml:"api_keys"`
	RateLimit     int               `toml:"rate_limit"`
	RateWindowSec int               `toml:"rate_window_sec"`
}

// duration wraps time.Duration with TOML string decoding ("5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for the TOML decoder.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Oracle: OracleConfig{
			Feeds:       map[string]string{},
			CacheMaxAge: duration{time.Minute},
		},
		Adaptors: AdaptorsConfig{
			RebalanceLease: duration{30 * time.Second},
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "vaultguard",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "vaultguard-data",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:       true,
			Port:          8000,
			CORSOrigins:   []string{"http://localhost:3000"},
			APIKeys:       map[string]string{},
			RateLimit:     60,
			RateWindowSec: 60,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":  true,
	"archive": true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Registry bootstrap identities.
	if !validAddress(c.Registry.OwnerAddress) {
		errs = append(errs, "registry: owner_address must be a valid 0x address")
	}
	if c.Registry.ZeroIDAddress != "" && !validAddress(c.Registry.ZeroIDAddress) {
		errs = append(errs, "registry: zero_id_address must be a valid 0x address when set")
	}

	// Oracle feeds must parse as address -> positive decimal.
	for asset, price := range c.Oracle.Feeds {
		if !validAddress(asset) {
			errs = append(errs, fmt.Sprintf("oracle: feed asset %q is not a valid 0x address", asset))
		}
		if strings.TrimSpace(price) == "" {
			errs = append(errs, fmt.Sprintf("oracle: feed %s has an empty price", asset))
		}
	}

	// Adaptor venues need both identity and spender when enabled.
	for _, venue := range []struct {
		name string
		cfg  AdaptorVenue
	}{
		{"oneinch", c.Adaptors.OneInch},
		{"zeroex", c.Adaptors.ZeroEx},
	} {
		if !venue.cfg.Enabled {
			continue
		}
		if !validAddress(venue.cfg.Address) {
			errs = append(errs, fmt.Sprintf("adaptors: %s.address must be a valid 0x address", venue.name))
		}
		if !validAddress(venue.cfg.Spender) {
			errs = append(errs, fmt.Sprintf("adaptors: %s.spender must be a valid 0x address", venue.name))
		}
	}
	if c.Adaptors.ERC20Address != "" && !validAddress(c.Adaptors.ERC20Address) {
		errs = append(errs, "adaptors: erc20_address must be a valid 0x address when set")
	}

	// Governance keyfile needs its password.
	if c.Governance.EncryptedKeyPath != "" && c.Governance.KeyPassword == "" {
		errs = append(errs, "governance: key_password is required when encrypted_key_path is set")
	}

	// Database.
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
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis.
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3, only needed when archival runs.
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be positive")
		}
	}

	// Server.
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		for key, principal := range c.Server.APIKeys {
			if strings.TrimSpace(key) == "" {
				errs = append(errs, "server: api_keys contains an empty key")
			}
			if !validAddress(principal) {
				errs = append(errs, fmt.Sprintf("server: api key principal %q is not a valid 0x address", principal))
			}
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindowSec < 1 {
			errs = append(errs, "server: rate_window_sec must be >= 1 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validAddress reports whether s is a 0x-prefixed hex address of the right
// length.
func validAddress(s string) bool {
	return common.IsHexAddress(s)
}
