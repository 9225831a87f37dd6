package strategy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/momentum"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Request asks the engine for target allocations
type Request struct {
	Strategy string   `json:"strategy"`
	Tickers  []string `json:"tickers,omitempty"`
	Params   Params   `json:"params"`
}

// Result holds the targets plus the momentum records used to derive them
type Result struct {
	Strategy string                       `json:"strategy"`
	Targets  []contracts.TargetAllocation `json:"targets"`
	Momentum []contracts.MomentumRecord   `json:"momentum,omitempty"`
	Trends   map[string]bool              `json:"trends,omitempty"`
}

// Engine resolves a strategy, gathers its inputs and prices the targets
// ⭐ SSOT: 전략 실행은 여기서만
type Engine struct {
	registry *Registry
	momentum *momentum.Service
	logger   *logger.Logger
}

// NewEngine creates a strategy engine
func NewEngine(registry *Registry, svc *momentum.Service, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		registry: registry,
		momentum: svc,
		logger:   log.Component("strategy"),
	}
}

// FromTemplate builds a request from a template
func FromTemplate(t Template) Request {
	return Request{Strategy: t.Strategy, Tickers: t.Tickers, Params: t.Params}
}

// Targets runs the requested strategy
func (e *Engine) Targets(ctx context.Context, req Request) (*Result, error) {
	s, err := e.registry.Get(req.Strategy)
	if err != nil {
		return nil, err
	}

	tickers := upper(req.Tickers)
	params := req.Params
	res := &Result{Strategy: s.Name()}

	var records []contracts.MomentumRecord
	if NeedsMomentum(s.Name()) {
		if len(tickers) == 0 {
			return nil, contracts.Invalid("tickers", "momentum strategy needs candidate tickers")
		}
		records = e.momentum.Batch(ctx, tickers)
		res.Momentum = records
	}

	if params.TrendFilter {
		months := params.TrendMonths
		if months <= 0 {
			months = 10
		}
		params.Trends = make(map[string]bool, len(params.Weights))
		for _, ticker := range sortedKeys(params.Weights) {
			trend, err := e.momentum.Trend(ctx, ticker, months)
			if err != nil {
				e.logger.WithError(err).Ticker(ticker).Warn("Trend unavailable, keeping target")
				continue
			}
			params.Trends[strings.ToUpper(ticker)] = trend.Above
		}
		res.Trends = params.Trends
	}

	targets, err := s.TargetAllocation(tickers, records, params)
	if err != nil {
		return nil, fmt.Errorf("%s strategy: %w", s.Name(), err)
	}

	if err := e.fillPrices(ctx, targets, records); err != nil {
		return nil, err
	}
	res.Targets = targets

	e.logger.WithFields(map[string]interface{}{
		"strategy": s.Name(),
		"targets":  len(targets),
	}).Info("Targets computed")

	return res, nil
}

// fillPrices prices targets that have none, reusing scored records where
// possible. A target that cannot be priced fails the whole request.
func (e *Engine) fillPrices(ctx context.Context, targets []contracts.TargetAllocation, records []contracts.MomentumRecord) error {
	known := make(map[string]float64, len(records))
	for _, rec := range records {
		if !rec.HasError() && rec.CurrentPrice > 0 {
			known[rec.Ticker] = rec.CurrentPrice
		}
	}

	for i := range targets {
		t := &targets[i]
		if t.Price > 0 {
			continue
		}
		if price, ok := known[t.Ticker]; ok {
			t.Price = price
			continue
		}
		if e.momentum == nil {
			return fmt.Errorf("%w: no price for %s", contracts.ErrDataUnavailable, t.Ticker)
		}

		price, err := e.momentum.Price(ctx, t.Ticker)
		if err != nil {
			if !errors.Is(err, contracts.ErrDataUnavailable) {
				err = fmt.Errorf("%w: %w", contracts.ErrDataUnavailable, err)
			}
			return fmt.Errorf("no price for %s: %w", t.Ticker, err)
		}
		t.Price = price
	}
	return nil
}

func upper(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// MomentumScores maps each scored ticker to its composite average.
// Error records are left out.
func (r *Result) MomentumScores() map[string]float64 {
	if len(r.Momentum) == 0 {
		return nil
	}
	scores := make(map[string]float64, len(r.Momentum))
	for _, rec := range r.Momentum {
		if rec.HasError() {
			continue
		}
		scores[rec.Ticker] = rec.Average
	}
	return scores
}
