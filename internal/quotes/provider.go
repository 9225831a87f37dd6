package quotes

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/config"
	"github.com/wonny/rebalancer/pkg/httputil"
	"github.com/wonny/rebalancer/pkg/logger"
)

// New builds the quote provider selected by QUOTES_PROVIDER. Remote
// providers are chained behind the price repository when a pool is given.
// ⭐ SSOT: 시세 공급자 선택은 여기서만
func New(cfg *config.Config, pool *pgxpool.Pool, metrics Metrics, log *logger.Logger) (contracts.QuoteProvider, error) {
	var repo *PriceRepository
	if pool != nil {
		repo = NewPriceRepository(pool)
	}

	switch cfg.Quotes.Provider {
	case SourceFile:
		return LoadFile(cfg.Quotes.File)

	case SourceDatabase:
		if repo == nil {
			return nil, fmt.Errorf("quotes provider %q requires a database", cfg.Quotes.Provider)
		}
		return repo, nil

	case SourceChart, SourceHTML:
		client := httputil.New(cfg, log).
			WithRateLimiter(cfg.Quotes.RatePerSecond).
			WithBreaker("quotes-" + cfg.Quotes.Provider)

		var remote contracts.QuoteProvider = NewChartClient(client, cfg.Quotes.BaseURL, log)
		if cfg.Quotes.Provider == SourceHTML {
			remote = NewHTMLClient(client, cfg.Quotes.BaseURL, log)
		}

		var store contracts.PriceHistoryRepository
		if repo != nil {
			store = repo
		}
		return NewChain(store, remote, cfg.Quotes.Provider, log).WithMetrics(metrics), nil
	}

	return nil, fmt.Errorf("unknown quotes provider %q", cfg.Quotes.Provider)
}
