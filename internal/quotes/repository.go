package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rebalancer/internal/contracts"
)

// SourceDatabase tags quotes served from stored history
const SourceDatabase = "database"

// PriceRepository implements contracts.PriceHistoryRepository on
// market.price_history
// ⭐ SSOT: 가격 히스토리 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// History returns closes on or after from, oldest first
func (r *PriceRepository) History(ctx context.Context, ticker string, from time.Time) ([]contracts.PricePoint, error) {
	query := `
		SELECT trade_date, close_price
		FROM market.price_history
		WHERE ticker = $1 AND trade_date >= $2
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []contracts.PricePoint
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// SaveHistory upserts closes in one batch
func (r *PriceRepository) SaveHistory(ctx context.Context, ticker string, points []contracts.PricePoint, source string) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.price_history (ticker, trade_date, close_price, source, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			close_price = EXCLUDED.close_price,
			source = EXCLUDED.source,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query, ticker, p.Date, p.Close, source)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range points {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert price history %s: %w", ticker, err)
		}
	}
	return nil
}

// Quote implements contracts.QuoteProvider from stored history. The
// latest close is the current price.
func (r *PriceRepository) Quote(ctx context.Context, ticker string, from time.Time) (*contracts.Quote, error) {
	history, err := r.History(ctx, ticker, from)
	if err != nil {
		return nil, err
	}
	return quoteFromHistory(ticker, history, SourceDatabase)
}

func quoteFromHistory(ticker string, history []contracts.PricePoint, source string) (*contracts.Quote, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: no stored history for %s", contracts.ErrDataUnavailable, ticker)
	}
	last := history[len(history)-1]
	return &contracts.Quote{
		Ticker:  ticker,
		Price:   last.Close,
		AsOf:    last.Date,
		History: history,
		Source:  source,
	}, nil
}
