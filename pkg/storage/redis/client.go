package redis

import (
	"context"
	"errors"
	"fmt"

	"klinecache/config"
	"klinecache/pkg/storage"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore is a storage.Store backed by plain redis string keys.
// Values never expire.
type RedisStore struct {
	cmdable goredis.UniversalClient
	prefix  string
}

// NewRedisStore connects to the configured instance and pings it.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: empty address")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return NewFromClient(client, cfg.PrefixKey), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client goredis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{cmdable: client, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.cmdable.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.cmdable.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.cmdable.Close()
}
