package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rebalancer/internal/metrics"
	"github.com/wonny/rebalancer/internal/momentum"
	"github.com/wonny/rebalancer/internal/optimizer"
	"github.com/wonny/rebalancer/internal/quotes"
	"github.com/wonny/rebalancer/internal/strategy"
	"github.com/wonny/rebalancer/pkg/cache"
	"github.com/wonny/rebalancer/pkg/config"
	"github.com/wonny/rebalancer/pkg/database"
	"github.com/wonny/rebalancer/pkg/logger"
)

// app holds every wired component shared by the commands
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	metrics   *metrics.Registry
	db        *database.DB
	redis     *cache.RedisStore
	momentum  *momentum.Service
	engine    *strategy.Engine
	templates *strategy.TemplateSet
	optimizer *optimizer.Optimizer
	runs      *optimizer.RunRepository
}

// newApp loads config and wires the pipeline. withQuotes=false skips the
// quote provider, momentum service and strategy engine (optimize only).
// Database and Redis are optional; without them runs are not recorded and
// momentum is cached in memory.
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp(ctx context.Context, withQuotes bool) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewRegistry(),
	}

	// 3. Connect to database (optional)
	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.db = db
		if err := db.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.runs = optimizer.NewRunRepository(db.Pool)
		log.Info("Connected to database")
	}

	// 4. Optimizer
	a.optimizer = optimizer.New(optimizer.ConfigFrom(cfg.Optimizer), log).WithMetrics(a.metrics)
	if a.runs != nil {
		a.optimizer.WithRecorder(a.runs)
	}

	if !withQuotes {
		return a, nil
	}

	// 5. Momentum cache: Redis when enabled, memory otherwise
	var store cache.Store = cache.NewMemoryStore()
	if cfg.Redis.Enabled {
		rs, err := cache.NewRedisStore(cfg, "rebalancer")
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = rs
		store = rs
	}
	momentumCache := cache.New(store, "momentum", log).WithObserver(a.metrics)

	// 6. Quote provider
	quoteProvider, err := quotes.New(cfg, a.pool(), a.metrics, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("quote provider: %w", err)
	}

	// 7. Momentum service
	a.momentum = momentum.NewService(quoteProvider, momentumCache, momentum.Config{
		CacheTTL:      cfg.Momentum.CacheTTL,
		Concurrency:   cfg.Momentum.BatchConcurrency,
		BatchDelay:    cfg.Momentum.BatchDelay,
		HistoryMonths: cfg.Momentum.HistoryMonths,
	}, log).WithMetrics(a.metrics)

	// 8. Strategy engine + templates
	a.engine = strategy.NewEngine(strategy.NewRegistry(), a.momentum, log)
	if cfg.Optimizer.TemplatesFile != "" {
		set, err := strategy.LoadTemplates(cfg.Optimizer.TemplatesFile)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.templates = set
		log.WithFields(map[string]interface{}{
			"file":      cfg.Optimizer.TemplatesFile,
			"templates": len(set.Templates),
			"hash":      set.Hash,
		}).Info("Strategy templates loaded")
	}

	return a, nil
}

func (a *app) pool() *pgxpool.Pool {
	if a.db == nil {
		return nil
	}
	return a.db.Pool
}

// Close releases the database pool and the Redis client
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close Redis")
		}
	}
	a.db.Close()
}

// readJSONFile decodes path ("-" for stdin) into v
func readJSONFile(path string, v interface{}) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// signalContext is canceled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
