package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestLoadDefaults
func TestLoadDefaults(t *testing.T) {
	t.Setenv("KLINECACHE_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wss://stream.binance.com:9443/ws", cfg.Binance.WS.URL)
	assert.Equal(t, "BINANCE:ETHUSDT", cfg.Binance.DefaultSymbol)
	assert.Equal(t, "1", cfg.Binance.DefaultInterval)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.False(t, cfg.Cache.KeyByInterval)
	assert.Equal(t, 2*time.Second, cfg.Cache.OpTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

// go test -v --run TestLoadFileAndEnv
func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
binance:
  default_symbol: BINANCE:BNBUSDT
  default_interval: "5"
cache:
  backend: redis
  key_by_interval: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("KLINECACHE_CONFIG_DIR", dir)
	t.Setenv("BINANCE_WS_URL", "ws://localhost:9999/ws")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BINANCE:BNBUSDT", cfg.Binance.DefaultSymbol)
	assert.Equal(t, "5", cfg.Binance.DefaultInterval)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.True(t, cfg.Cache.KeyByInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "ws://localhost:9999/ws", cfg.Binance.WS.URL)
}

// go test -v --run TestPostgresDSN
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "pw",
		DBName:   "klinecache",
		SSLMode:  "disable",
		TimeZone: "UTC",
		SSM:      SSMParams{Host: "DB_HOST", Password: "DB_PASSWORD"},
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=pw dbname=klinecache sslmode=disable TimeZone=UTC",
		cfg.dsn("dev", nil))

	lookup := func(name string, decrypt bool) string {
		assert.True(t, decrypt)
		switch name {
		case "DB_HOST":
			return "db.internal"
		case "DB_PASSWORD":
			return ""
		}
		t.Errorf("unexpected parameter lookup: %s", name)
		return ""
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=postgres password=pw dbname=klinecache sslmode=disable TimeZone=UTC",
		cfg.dsn("prod", lookup))
}
