package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Metrics is the subset of the metrics registry used here
type Metrics interface {
	QuoteFetched(source string, err error)
}

// Chain serves stored history when it is fresh and complete, otherwise
// fetches from the remote provider and writes the result through
// ⭐ SSOT: 저장소 우선 → 원격 조회 → write-through
type Chain struct {
	store     contracts.PriceHistoryRepository
	remote    contracts.QuoteProvider
	source    string
	staleness time.Duration
	metrics   Metrics
	now       func() time.Time
	logger    *logger.Logger
}

// NewChain creates a chained provider. store may be nil.
func NewChain(store contracts.PriceHistoryRepository, remote contracts.QuoteProvider, source string, log *logger.Logger) *Chain {
	return &Chain{
		store:     store,
		remote:    remote,
		source:    source,
		staleness: 4 * 24 * time.Hour, // covers weekends and a holiday
		now:       time.Now,
		logger:    log.Component("quote_chain"),
	}
}

// WithMetrics attaches a metrics sink
func (c *Chain) WithMetrics(m Metrics) *Chain {
	c.metrics = m
	return c
}

// Quote implements contracts.QuoteProvider
func (c *Chain) Quote(ctx context.Context, ticker string, from time.Time) (*contracts.Quote, error) {
	if c.store != nil {
		history, err := c.store.History(ctx, ticker, from.AddDate(0, 0, -7))
		c.observe(SourceDatabase, err)
		if err != nil {
			c.logger.WithError(err).Ticker(ticker).Warn("Stored history unavailable, using remote")
		} else if c.covers(history, from) {
			return quoteFromHistory(ticker, history, SourceDatabase)
		}
	}

	if c.remote == nil {
		return nil, fmt.Errorf("%w: no remote provider for %s", contracts.ErrDataUnavailable, ticker)
	}

	quote, err := c.remote.Quote(ctx, ticker, from)
	c.observe(c.source, err)
	if err != nil {
		return nil, err
	}

	if c.store != nil && len(quote.History) > 0 {
		if err := c.store.SaveHistory(ctx, ticker, quote.History, quote.Source); err != nil {
			c.logger.WithError(err).Ticker(ticker).Warn("Failed to write through price history")
		}
	}
	return quote, nil
}

// covers reports whether history spans from and is recent
func (c *Chain) covers(history []contracts.PricePoint, from time.Time) bool {
	if len(history) == 0 {
		return false
	}
	first, last := history[0].Date, history[len(history)-1].Date
	if first.After(from.AddDate(0, 0, 7)) {
		return false
	}
	return c.now().Sub(last) <= c.staleness
}

func (c *Chain) observe(source string, err error) {
	if c.metrics != nil {
		c.metrics.QuoteFetched(source, err)
	}
}
