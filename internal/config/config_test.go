package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3001", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 10, cfg.Feed.PageSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.example.com
  request_timeout: 3s
feed:
  page_size: 20
`), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 20, cfg.Feed.PageSize)
	assert.Equal(t, ":3001", cfg.DevServer.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wallet:\n  address: 0xfile\n"), 0o644))
	t.Setenv("WALLET_ADDRESS", "0xenv")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "0xenv", cfg.Wallet.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  page_size: 0\n"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DevServer.Storage = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.DevServer.DatabaseURL = "postgres://localhost/tweets"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_IgnoresEmpty(t *testing.T) {
	cfg := DefaultConfig()
	applyEnv(&cfg, func(key string) (string, bool) {
		if key == "STORAGE_TYPE" {
			return "", true
		}
		return "", false
	})
	assert.Equal(t, "memory", cfg.DevServer.Storage)
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Wallet.Address = "0xA"

	require.NoError(t, Write(path, cfg))
	got, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
