package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner  = "0x1111111111111111111111111111111111111111"
	testZeroID = "0x2222222222222222222222222222222222222222"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mode = "server"
log_level = "debug"

[registry]
owner_address = "`+testOwner+`"
zero_id_address = "`+testZeroID+`"

[oracle]
cache_max_age = "30s"

[database]
host = "db.internal"
port = 5433

[archive]
enabled = true
retention_days = 30
interval = "6h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, testOwner, cfg.Registry.OwnerAddress)
	assert.Equal(t, 30*time.Second, cfg.Oracle.CacheMaxAge.Duration)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, 6*time.Hour, cfg.Archive.Interval.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	path := writeConfigFile(t, `
[registry]
owner_address = "` + testOwner + `"

[redis]
addr = "file-redis:6379"
`)

	t.Setenv("VAULTGUARD_REDIS_ADDR", "env-redis:6379")
	t.Setenv("VAULTGUARD_REGISTRY_ZERO_ID_ADDRESS", testZeroID)
	t.Setenv("VAULTGUARD_ARCHIVE_SEAL_SECRET", "hush")
	t.Setenv("VAULTGUARD_GOVERNANCE_PRIVATE_KEY", "0xabcdef")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, testZeroID, cfg.Registry.ZeroIDAddress)
	assert.Equal(t, "hush", cfg.Archive.SealSecret)
	assert.Equal(t, "0xabcdef", cfg.Governance.RawPrivateKey)
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Registry.OwnerAddress = testOwner
	cfg.Registry.ZeroIDAddress = testZeroID

	require.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replicate"
	cfg.Registry.OwnerAddress = "not-an-address"
	cfg.Database.Host = ""
	cfg.Database.PoolMaxConns = 0
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "unknown mode")
	assert.Contains(t, msg, "owner_address")
	assert.Contains(t, msg, "database: host")
	assert.Contains(t, msg, "pool_max_conns")
	assert.Contains(t, msg, "redis: addr")
}

func TestValidate_VenuePairsRequiredWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Registry.OwnerAddress = testOwner
	cfg.Adaptors.OneInch.Enabled = true
	cfg.Adaptors.OneInch.Address = testOwner
	// Spender missing.

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oneinch.spender")
}

func TestValidate_KeyfileNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Registry.OwnerAddress = testOwner
	cfg.Governance.EncryptedKeyPath = "/etc/vaultguard/key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Registry.OwnerAddress = testOwner
	cfg.Governance.KeyPassword = "hunter2"
	cfg.Governance.RawPrivateKey = "0xdeadbeef"
	cfg.Archive.SealSecret = "hush"
	cfg.Database.Password = "pgpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.AccessKey = "AKIA"
	cfg.S3.SecretKey = "s3secret"
	cfg.Server.APIKeys = map[string]string{"key-one": testOwner}

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Governance.KeyPassword)
	assert.Equal(t, "***", out.Governance.RawPrivateKey)
	assert.Equal(t, "***", out.Archive.SealSecret)
	assert.Equal(t, "***", out.Database.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.AccessKey)
	assert.Equal(t, "***", out.S3.SecretKey)

	// Key strings are hidden; the principals stay visible.
	assert.Len(t, out.Server.APIKeys, 1)
	for key, principal := range out.Server.APIKeys {
		assert.NotEqual(t, "key-one", key)
		assert.Equal(t, testOwner, principal)
	}

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Governance.KeyPassword)
	assert.Contains(t, cfg.Server.APIKeys, "key-one")
}
