package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Binance  BinanceConfig  `mapstructure:"binance"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type BinanceConfig struct {
	WS              WSConfig `mapstructure:"ws"`
	DefaultSymbol   string   `mapstructure:"default_symbol"`   // e.g. "BINANCE:ETHUSDT"
	DefaultInterval string   `mapstructure:"default_interval"` // e.g. "1"
}

type WSConfig struct {
	URL              string        `mapstructure:"url"`               // stream base, e.g. "wss://stream.binance.com:9443/ws"
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"` // 0 means no timeout
}

// CacheConfig selects the persistent store backing the rolling buffers.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`         // "file", "memory", "postgres" or "redis"
	Dir           string        `mapstructure:"dir"`             // directory for the file backend
	KeyByInterval bool          `mapstructure:"key_by_interval"` // key entries by symbol and interval instead of symbol only
	OpTimeout     time.Duration `mapstructure:"op_timeout"`      // per read/write timeout for remote backends
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Defaults are applied before config.yaml and the environment are read.
var Defaults = map[string]any{
	"binance.ws.url":               "wss://stream.binance.com:9443/ws",
	"binance.ws.handshake_timeout": 10 * time.Second,
	"binance.default_symbol":       "BINANCE:ETHUSDT",
	"binance.default_interval":     "1",

	"cache.backend":         "file",
	"cache.dir":             "data/cache",
	"cache.key_by_interval": false,
	"cache.op_timeout":      2 * time.Second,

	"log.level":       "info",
	"log.format":      "console",
	"log.environment": "dev",

	"postgres.port":    5432,
	"postgres.sslmode": "disable",

	"redis.addr":       "localhost:6379",
	"redis.prefix_key": "klinecache:",
}

// Load loads application configuration using Viper.
// It reads from config.yaml (if present) and overrides with environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if p := os.Getenv("KLINECACHE_CONFIG_DIR"); p != "" {
		v.AddConfigPath(p)
	}
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "config"))
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	for k, val := range Defaults {
		v.SetDefault(k, val)
	}

	// Support environment variables with dot notation (e.g., BINANCE_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
