package app

import (
	"context"
	"fmt"
	"log"

	"quiz-tracker/internal/cache"
	"quiz-tracker/internal/config"
	"quiz-tracker/internal/quiz"
	"quiz-tracker/internal/quiz/postgres"
	"quiz-tracker/internal/quiz/sqlite"
)

// App owns the store, the cache and the service built on top of them.
type App struct {
	Config  *config.Config
	Store   quiz.Store
	Service *quiz.Service

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	const op = "app.New"

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{Config: cfg, Store: store}
	a.closers = append(a.closers, store.Close)

	statsCache, err := NewCache(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if closer, ok := statsCache.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	opts := quiz.Options{
		Cache:              statsCache,
		BatchPolicy:        cfg.Policy(),
		DefaultRandomLimit: cfg.RandomDefaultLimit,
	}
	if backups, ok := store.(quiz.BackupStore); ok {
		opts.Backups = backups
	}
	a.Service = quiz.NewService(store, store, store, opts)

	return a, nil
}

// OpenStore opens the storage engine selected by the configured driver.
func OpenStore(ctx context.Context, cfg *config.Config) (quiz.Store, error) {
	const op = "app.OpenStore"

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		store, err := sqlite.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open sqlite database %s: %w", op, cfg.Database.Path, err)
		}
		log.Printf("using sqlite database %s", store.Path())
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to connect to postgres: %w", op, err)
		}
		log.Println("using postgres database")
		return store, nil
	default:
		return nil, fmt.Errorf("%s: unknown database driver %q", op, cfg.Database.Driver)
	}
}

// NewCache builds the stats cache for the configured mode. The default is no
// cache unless Redis is configured, because quiz-service and quiz-cli can share
// one database and an in-process cache would miss the other process's writes.
func NewCache(ctx context.Context, cfg *config.Config) (quiz.StatsCache, error) {
	const op = "app.NewCache"

	switch mode := cfg.CacheMode(); mode {
	case config.CacheNone:
		return quiz.NoCache(), nil
	case config.CacheMemory:
		log.Printf("using in-process cache with ttl %s", cfg.CacheTTL())
		return quiz.NewMemoryCache(cfg.CacheTTL()), nil
	case config.CacheRedis:
		redisCache, err := cache.NewRedisCache(ctx, cache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.CacheTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		log.Printf("using redis cache at %s", cfg.Redis.Addr)
		return redisCache, nil
	default:
		return nil, fmt.Errorf("%s: unknown cache mode %q", op, mode)
	}
}

func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
