package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"klinecache/config"
	"klinecache/internal/binance/cache"
	"klinecache/internal/binance/controller"
	"klinecache/internal/diag"
	"klinecache/logger"
	"klinecache/pkg/binance"
	"klinecache/pkg/storage"
	"klinecache/pkg/storage/file"
	"klinecache/pkg/storage/memory"
	"klinecache/pkg/storage/postgres"
	"klinecache/pkg/storage/redis"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("klinecache failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	reporter := diag.NewReporter(log, nil)
	kc := cache.New(store, reporter, cache.Options{
		KeyByInterval: cfg.Cache.KeyByInterval,
		OpTimeout:     cfg.Cache.OpTimeout,
	})

	view := newRenderer(os.Stdout, true)
	ctrl := controller.New(kc,
		binance.NewWSDialer(cfg.Binance.WS.HandshakeTimeout, log),
		controller.WithStreamURL(cfg.Binance.WS.URL),
		controller.WithLogger(log),
		controller.WithReporter(reporter),
		controller.WithPublisher(view.Render),
	)

	initial := controller.Update{
		Symbol:   binance.QualifySymbol(cfg.Binance.DefaultSymbol),
		Interval: cfg.Binance.DefaultInterval,
	}
	ctrl.Select(initial.Symbol, initial.Interval)
	go readSelections(ctx, os.Stdin, ctrl, initial, log)

	return ctrl.Run(ctx)
}

// openStore builds the configured persistent backend.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	switch cfg.Cache.Backend {
	case "", "file":
		return file.NewFileStore(cfg.Cache.Dir)
	case "memory":
		log.Warn("memory cache backend does not survive restarts")
		return memory.NewMemoryStore(), nil
	case "postgres":
		client, err := postgres.InitializeAndMigrateCacheRecord(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		return client, nil
	case "redis":
		return redis.NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// readSelections turns stdin lines into selections until input ends.
func readSelections(ctx context.Context, in io.Reader, ctrl *controller.Controller,
	current controller.Update, log *zap.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		symbol, interval, err := parseSelection(scanner.Text(), current.Symbol, current.Interval)
		if err != nil {
			log.Warn("ignoring selection", zap.String("input", scanner.Text()), zap.Error(err))
			continue
		}
		if symbol == "" {
			continue
		}
		current.Symbol, current.Interval = symbol, interval
		ctrl.Select(symbol, interval)
	}
}
