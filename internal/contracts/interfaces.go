package contracts

import (
	"context"
	"time"
)

// QuoteProvider returns the latest price and close history of a ticker
// ⭐ SSOT: 시세/히스토리 조회 인터페이스
type QuoteProvider interface {
	Quote(ctx context.Context, ticker string, from time.Time) (*Quote, error)
}

// PriceHistoryRepository persists close histories
type PriceHistoryRepository interface {
	History(ctx context.Context, ticker string, from time.Time) ([]PricePoint, error)
	SaveHistory(ctx context.Context, ticker string, points []PricePoint, source string) error
}

// RunRecorder stores optimization runs for audit
type RunRecorder interface {
	Record(ctx context.Context, req *OptimizationRequest, res *OptimizationResult) error
}
