package momentum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/cache"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Metrics is the subset of the metrics registry used here
type Metrics interface {
	MomentumComputed(ok bool)
}

// Config tunes the batch service
type Config struct {
	CacheTTL      time.Duration
	Concurrency   int
	BatchDelay    time.Duration // minimum spacing between upstream fetches
	HistoryMonths int
}

// DefaultConfig returns default service configuration
func DefaultConfig() Config {
	return Config{
		CacheTTL:      time.Hour,
		Concurrency:   4,
		BatchDelay:    200 * time.Millisecond,
		HistoryMonths: 13,
	}
}

// Service fetches quotes and scores momentum with a read-through cache
// ⭐ SSOT: 모멘텀 조회(캐시 포함)는 이 서비스를 통해서만
type Service struct {
	provider contracts.QuoteProvider
	cache    *cache.Cache
	scorer   *Scorer
	limiter  *rate.Limiter
	cfg      Config
	metrics  Metrics
	now      func() time.Time
	logger   *logger.Logger
}

// NewService creates a momentum service. c may be nil (no caching).
func NewService(provider contracts.QuoteProvider, c *cache.Cache, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.HistoryMonths < 12 {
		cfg.HistoryMonths = 13
	}

	limit := rate.Inf
	if cfg.BatchDelay > 0 {
		limit = rate.Every(cfg.BatchDelay)
	}

	return &Service{
		provider: provider,
		cache:    c,
		scorer:   NewScorer(log),
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
		now:      time.Now,
		logger:   log.Component("momentum_service"),
	}
}

// WithMetrics attaches a metrics sink
func (s *Service) WithMetrics(m Metrics) *Service {
	s.metrics = m
	return s
}

// CacheKey is the cache key of a ticker's momentum record
func CacheKey(ticker string) string {
	parts := make([]string, len(contracts.Horizons))
	for i, h := range contracts.Horizons {
		parts[i] = fmt.Sprint(h)
	}
	return fmt.Sprintf("momentum:%s:%s", ticker, strings.Join(parts, "-"))
}

// recordError carries an error-flagged record through the cache loader so
// failed records are returned but never cached
type recordError struct {
	record contracts.MomentumRecord
}

func (e *recordError) Error() string {
	return fmt.Sprintf("%s: %s", e.record.Ticker, e.record.Error)
}

// Record returns the momentum record of ticker. Failures are reported in
// the record's Error field.
func (s *Service) Record(ctx context.Context, ticker string) contracts.MomentumRecord {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if s.cache == nil {
		rec := s.compute(ctx, ticker)
		s.observe(rec)
		return rec
	}

	var rec contracts.MomentumRecord
	err := s.cache.GetOrSet(ctx, CacheKey(ticker), &rec, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		r := s.compute(ctx, ticker)
		if r.HasError() {
			return nil, &recordError{record: r}
		}
		return r, nil
	})
	if err != nil {
		var re *recordError
		if errors.As(err, &re) {
			rec = re.record
		} else {
			rec = ErrorRecord(ticker, s.now(), err.Error())
		}
	}

	s.observe(rec)
	return rec
}

// Batch scores every ticker concurrently, preserving input order.
// One ticker's failure never aborts the batch.
func (s *Service) Batch(ctx context.Context, tickers []string) []contracts.MomentumRecord {
	out := make([]contracts.MomentumRecord, len(tickers))
	s.Stream(ctx, tickers, func(i int, rec contracts.MomentumRecord) {
		out[i] = rec
	})
	return out
}

// Stream scores tickers and calls emit as each record completes.
// emit receives the input index and may be called concurrently.
func (s *Service) Stream(ctx context.Context, tickers []string, emit func(i int, rec contracts.MomentumRecord)) {
	s.fanOut(ctx, tickers, s.Record, emit)
	s.logger.WithField("tickers", len(tickers)).Debug("Momentum batch completed")
}

// Refresh recomputes every ticker, overwriting live cache entries.
// Failed records leave the cached value untouched.
func (s *Service) Refresh(ctx context.Context, tickers []string) []contracts.MomentumRecord {
	out := make([]contracts.MomentumRecord, len(tickers))
	s.fanOut(ctx, tickers, s.refresh, func(i int, rec contracts.MomentumRecord) {
		out[i] = rec
	})
	s.logger.WithField("tickers", len(tickers)).Debug("Momentum refresh completed")
	return out
}

func (s *Service) refresh(ctx context.Context, ticker string) contracts.MomentumRecord {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	rec := s.compute(ctx, ticker)
	s.observe(rec)

	if s.cache != nil && !rec.HasError() {
		if err := s.cache.Set(ctx, CacheKey(ticker), rec, s.cfg.CacheTTL); err != nil {
			s.logger.WithError(err).Ticker(ticker).Warn("Cache refresh failed")
		}
	}
	return rec
}

func (s *Service) fanOut(ctx context.Context, tickers []string, score func(context.Context, string) contracts.MomentumRecord, emit func(i int, rec contracts.MomentumRecord)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, ticker := range tickers {
		i, ticker := i, ticker
		g.Go(func() error {
			emit(i, score(gctx, ticker))
			return nil
		})
	}

	// workers never return errors
	_ = g.Wait()
}

// Price returns the current price of ticker without scoring it
func (s *Service) Price(ctx context.Context, ticker string) (float64, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("price %s: %w", ticker, err)
	}

	quote, err := s.provider.Quote(ctx, ticker, s.now().AddDate(0, -1, 0))
	if err != nil {
		return 0, fmt.Errorf("price %s: %w", ticker, err)
	}
	if quote.Price <= 0 {
		return 0, fmt.Errorf("price %s: %w", ticker, contracts.ErrDataUnavailable)
	}
	return quote.Price, nil
}

// Trend returns the price vs SMA signal of ticker
func (s *Service) Trend(ctx context.Context, ticker string, months int) (Trend, error) {
	asOf := s.now()
	quote, err := s.provider.Quote(ctx, ticker, asOf.AddDate(0, -months-1, 0))
	if err != nil {
		return Trend{}, fmt.Errorf("trend %s: %w", ticker, err)
	}
	if !quote.AsOf.IsZero() {
		asOf = quote.AsOf
	}
	return TrendSignal(ticker, quote.History, quote.Price, months, asOf), nil
}

// compute fetches and scores ticker. The limiter spaces upstream fetches
// only; cache hits never reach here.
func (s *Service) compute(ctx context.Context, ticker string) contracts.MomentumRecord {
	asOf := s.now()
	if err := s.limiter.Wait(ctx); err != nil {
		return ErrorRecord(ticker, asOf, fmt.Sprintf("canceled: %v", err))
	}
	quote, err := s.provider.Quote(ctx, ticker, asOf.AddDate(0, -s.cfg.HistoryMonths, 0))
	if err != nil {
		s.logger.WithError(err).Ticker(ticker).Warn("Quote fetch failed")
		return ErrorRecord(ticker, asOf, err.Error())
	}
	if !quote.AsOf.IsZero() {
		asOf = quote.AsOf
	}
	return s.scorer.Score(ticker, quote.History, quote.Price, asOf)
}

func (s *Service) observe(rec contracts.MomentumRecord) {
	if s.metrics != nil {
		s.metrics.MomentumComputed(!rec.HasError())
	}
}
