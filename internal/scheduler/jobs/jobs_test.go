package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/momentum"
	"github.com/wonny/rebalancer/pkg/cache"
	"github.com/wonny/rebalancer/pkg/logger"
)

type refresher struct {
	failing map[string]bool
	got     []string
}

func (b *refresher) Refresh(_ context.Context, tickers []string) []contracts.MomentumRecord {
	b.got = tickers
	out := make([]contracts.MomentumRecord, len(tickers))
	for i, t := range tickers {
		out[i] = contracts.MomentumRecord{Ticker: t}
		if b.failing[t] {
			out[i].Error = "no data"
		}
	}
	return out
}

func TestMomentumWarmJob(t *testing.T) {
	tests := []struct {
		name    string
		tickers []string
		failing map[string]bool
		wantErr bool
	}{
		{"all ok", []string{"VTI", "TLT"}, nil, false},
		{"partial failure", []string{"VTI", "TLT"}, map[string]bool{"TLT": true}, false},
		{"all failed", []string{"VTI", "TLT"}, map[string]bool{"VTI": true, "TLT": true}, true},
		{"no tickers", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &refresher{failing: tt.failing}
			job := NewMomentumWarmJob(b, tt.tickers, "0 30 6 * * 1-5", logger.Nop())

			err := job.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.tickers, b.got)
		})
	}
}

func TestMomentumWarmJob_Identity(t *testing.T) {
	job := NewMomentumWarmJob(&refresher{}, nil, "@hourly", logger.Nop())
	assert.Equal(t, "momentum_warm", job.Name())
	assert.Equal(t, "@hourly", job.Schedule())
}

type risingProvider struct {
	price float64
}

func (p *risingProvider) Quote(_ context.Context, ticker string, from time.Time) (*contracts.Quote, error) {
	var history []contracts.PricePoint
	for d := from; d.Before(from.AddDate(1, 1, 0)); d = d.AddDate(0, 0, 7) {
		history = append(history, contracts.PricePoint{Date: d, Close: 50})
	}
	return &contracts.Quote{Ticker: ticker, Price: p.price, History: history}, nil
}

func TestMomentumWarmJob_ReplacesLiveEntries(t *testing.T) {
	provider := &risingProvider{price: 100}
	cfg := momentum.DefaultConfig()
	cfg.BatchDelay = 0
	svc := momentum.NewService(provider, cache.New(cache.NewMemoryStore(), "momentum", nil), cfg, nil)

	require.Equal(t, 100.0, svc.Record(context.Background(), "VTI").CurrentPrice)

	provider.price = 120
	job := NewMomentumWarmJob(svc, []string{"VTI"}, "@hourly", logger.Nop())
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, 120.0, svc.Record(context.Background(), "VTI").CurrentPrice)
}

type pruner struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (p *pruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.removed, p.err
}

func TestRunPruneJob(t *testing.T) {
	now := time.Date(2025, 7, 1, 3, 0, 0, 0, time.UTC)
	p := &pruner{removed: 4}
	job := NewRunPruneJob(p, 48*time.Hour, "0 0 3 * * *", logger.Nop())
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour), p.cutoff)
	assert.Equal(t, "run_prune", job.Name())

	p.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))
}
