package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/edulens/edulens/internal/catalog"
	"github.com/edulens/edulens/internal/db"
	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/eviction"
	_ "github.com/edulens/edulens/internal/eviction/lru"
	"github.com/edulens/edulens/internal/eviction/policy"
	"github.com/edulens/edulens/internal/eviction/policy/maxsize"
	"github.com/edulens/edulens/internal/eviction/policy/minfree"
	"github.com/edulens/edulens/internal/filecache"
	"github.com/edulens/edulens/internal/handler"
	"github.com/edulens/edulens/internal/repository"
	"github.com/edulens/edulens/internal/task"
)

const indexFile = "index.db"

type Config struct {
	Port             int
	DataDir          string
	CacheDir         string
	MaxCacheSize     int64
	MinFreeSpace     int64
	EvictionInterval time.Duration
	EvictionStrategy string
	CacheHash        string
	MaxRows          int
}

// App holds the long-lived components, built once and shared by reference.
type App struct {
	Config  Config
	Cache   *filecache.Cache
	Index   *db.DB
	Repo    *repository.LocalRepository
	Catalog *catalog.Catalog
	Runner  *task.Runner

	cancel context.CancelFunc
}

// New builds every component from cfg. The returned App must be closed.
func New(cfg Config) (*App, error) {
	strat, err := eviction.GetStrategy(cfg.EvictionStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize eviction strategy: %w", err)
	}

	var policies []policy.Policy
	if cfg.MaxCacheSize > 0 {
		slog.Debug("Adding MaxCacheSize policy", "max_size", cfg.MaxCacheSize)
		policies = append(policies, &maxsize.Policy{MaxBytes: cfg.MaxCacheSize})
	}
	if cfg.MinFreeSpace > 0 {
		slog.Debug("Adding MinFreeSpace policy", "min_free", cfg.MinFreeSpace)
		policies = append(policies, &minfree.Policy{
			Path:         cfg.CacheDir,
			MinFreeBytes: cfg.MinFreeSpace,
		})
	}
	if len(policies) == 0 {
		slog.Info("No eviction policies configured (unlimited cache)")
	}

	mgr := eviction.NewManager(policies, cfg.EvictionInterval, strat)

	opts := []filecache.Option{filecache.WithEvictionManager(mgr)}
	if cfg.CacheHash != "" {
		opts = append(opts, filecache.WithHash(cfg.CacheHash))
	}
	cache, err := filecache.New(cfg.CacheDir, opts...)
	if err != nil {
		// The cache is advisory: a nil cache is an always-empty one.
		errutil.ReportError(err, "Cache unavailable, continuing without it", "dir", cfg.CacheDir)
		cache = nil
	}

	repo, err := repository.NewLocalRepository(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	dbPath := filepath.Join(cfg.DataDir, indexFile)
	index, err := db.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if cache != nil && cfg.EvictionInterval > 0 {
		go mgr.Start(ctx)
	}

	a := &App{
		Config:  cfg,
		Cache:   cache,
		Index:   index,
		Repo:    repo,
		Catalog: catalog.New(repo, cache, index, catalog.WithMaxRows(cfg.MaxRows)),
		Runner:  task.NewRunner(ctx, 16),
		cancel:  cancel,
	}
	return a, nil
}

// Server returns the HTTP server for the dataset API.
func (a *App) Server() *http.Server {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	return &http.Server{
		Addr:              addr,
		Handler:           handler.NewHandler(a.Catalog, a.Cache),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Close stops background work and releases the index.
func (a *App) Close() {
	a.Runner.Close()
	a.cancel()
	errutil.LogMsg(a.Index.Close(), "Failed to close database")
}
