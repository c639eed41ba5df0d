package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/mxindex/internal/cache"
	"github.com/jonesrussell/mxindex/internal/database"
	"github.com/jonesrussell/mxindex/internal/discovery"
	"github.com/jonesrussell/mxindex/internal/metrics"
	"github.com/jonesrussell/mxindex/internal/probe"
	"github.com/jonesrussell/mxindex/internal/service"
)

// App is the wired service graph behind every command.
type App struct {
	Deps    *Deps
	DB      *sqlx.DB
	Repo    *database.ServerRepository
	Cache   *cache.Cache
	Metrics *metrics.Metrics
	Service *service.Service
	Engine  *discovery.Engine
}

// NewApp connects the database and cache and wires the service graph. The
// cache is optional: a failed connection logs a warning and every read
// degrades to a miss.
func NewApp(ctx context.Context, deps *Deps) (*App, error) {
	cfg := deps.Config
	m := metrics.New()

	db, err := database.NewPostgresConnection(database.Config{
		URL:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	repo := database.NewServerRepository(db)

	c := cache.New(m)
	if err := c.Connect(cfg.Redis.URL); err != nil {
		deps.Logger.Warn("cache unavailable, continuing without it", "error", err)
	}

	prober := probe.New(probe.NewHTTPClient(cfg.Discovery.ProbeTimeout), deps.Logger)
	svc := service.New(repo, c, prober, deps.Logger)

	engine := discovery.NewEngine(svc, discovery.NewPeerFetcher(prober), m, deps.Logger, discovery.Config{
		MaxConcurrent: cfg.Discovery.MaxConcurrent,
		MaxDepth:      cfg.Discovery.MaxDepth,
		BatchSize:     cfg.Discovery.BatchSize,
		ProbeTimeout:  cfg.Discovery.ProbeTimeout,
	})

	if count, countErr := repo.Count(ctx); countErr == nil {
		m.SetServersIndexed(count)
	}

	return &App{
		Deps:    deps,
		DB:      db,
		Repo:    repo,
		Cache:   c,
		Metrics: m,
		Service: svc,
		Engine:  engine,
	}, nil
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		a.Deps.Logger.Warn("failed to close cache", "error", err)
	}
	if err := a.DB.Close(); err != nil {
		a.Deps.Logger.Warn("failed to close database", "error", err)
	}
}
