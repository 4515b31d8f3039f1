package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"klinecache/internal/binance/rolling"
	"klinecache/internal/diag"
	"klinecache/pkg/storage"
)

var (
	// ErrCacheReadCorrupt marks a stored snapshot that could not be read or decoded.
	ErrCacheReadCorrupt = errors.New("cache read corrupt")
	// ErrCacheWriteFailed marks a snapshot that could not be written.
	ErrCacheWriteFailed = errors.New("cache write failed")
)

// Options tune how entries are keyed and how long store calls may take.
type Options struct {
	// KeyByInterval keys entries by symbol and interval. When false (the
	// default) every interval of a symbol shares a single entry.
	KeyByInterval bool
	// OpTimeout bounds each store call. Zero means no extra bound.
	OpTimeout time.Duration
}

// Cache persists rolling buffers. Neither Load nor Save ever fails toward
// the caller; problems are reported as diagnostics.
type Cache struct {
	store    storage.Store
	reporter *diag.Reporter
	opts     Options
}

func New(store storage.Store, reporter *diag.Reporter, opts Options) *Cache {
	return &Cache{store: store, reporter: reporter, opts: opts}
}

// Key returns the storage key for a selection.
func (c *Cache) Key(symbol, interval string) string {
	if c.opts.KeyByInterval {
		return symbol + "|" + interval
	}
	return symbol
}

// Load returns the persisted buffer for the selection, or an empty buffer if
// there is none or it cannot be read.
func (c *Cache) Load(ctx context.Context, symbol, interval string) rolling.Buffer {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	raw, err := c.store.Get(ctx, c.Key(symbol, interval))
	if errors.Is(err, storage.ErrNotFound) {
		return rolling.Buffer{}
	}
	if err != nil {
		c.report(diag.CacheReadCorrupt, symbol, interval, fmt.Errorf("%w: %v", ErrCacheReadCorrupt, err))
		return rolling.Buffer{}
	}

	buf, err := rolling.Unmarshal(raw)
	if err != nil {
		c.report(diag.CacheReadCorrupt, symbol, interval, fmt.Errorf("%w: %v", ErrCacheReadCorrupt, err))
		return rolling.Buffer{}
	}
	return buf
}

// Save overwrites the persisted buffer for the selection. Failures are
// swallowed after being reported.
func (c *Cache) Save(ctx context.Context, symbol, interval string, buf rolling.Buffer) {
	raw, err := rolling.Marshal(buf)
	if err != nil {
		c.report(diag.CacheWriteFailed, symbol, interval, fmt.Errorf("%w: %v", ErrCacheWriteFailed, err))
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.store.Put(ctx, c.Key(symbol, interval), raw); err != nil {
		c.report(diag.CacheWriteFailed, symbol, interval, fmt.Errorf("%w: %v", ErrCacheWriteFailed, err))
	}
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.OpTimeout > 0 {
		return context.WithTimeout(ctx, c.opts.OpTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Cache) report(kind diag.Kind, symbol, interval string, err error) {
	c.reporter.Report(diag.Event{Kind: kind, Symbol: symbol, Interval: interval, Err: err})
}
