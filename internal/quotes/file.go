package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/wonny/rebalancer/internal/contracts"
)

// SourceFile tags quotes from a local JSON snapshot
const SourceFile = "file"

// fileEntry is one ticker in a quotes file
type fileEntry struct {
	Price   float64     `json:"price"`
	AsOf    string      `json:"asOf,omitempty"`
	History []filePoint `json:"history"`
}

type filePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// StaticProvider serves quotes from an in-memory snapshot, usually loaded
// from a JSON file keyed by ticker
type StaticProvider struct {
	quotes map[string]*contracts.Quote
}

// NewStaticProvider wraps quotes keyed by ticker
func NewStaticProvider(quotes map[string]*contracts.Quote) *StaticProvider {
	out := make(map[string]*contracts.Quote, len(quotes))
	for ticker, q := range quotes {
		out[strings.ToUpper(ticker)] = q
	}
	return &StaticProvider{quotes: out}
}

// LoadFile reads a quotes file:
//
//	{"VTI": {"price": 250, "history": [{"date": "2025-01-02", "close": 240.1}]}}
func LoadFile(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quotes file: %w", err)
	}

	var raw map[string]fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse quotes file %s: %w", path, err)
	}

	quotes := make(map[string]*contracts.Quote, len(raw))
	for ticker, e := range raw {
		q := &contracts.Quote{Ticker: strings.ToUpper(ticker), Price: e.Price, Source: SourceFile}
		for _, p := range e.History {
			date, err := time.Parse("2006-01-02", p.Date)
			if err != nil {
				return nil, fmt.Errorf("quotes file %s: %s: bad date %q", path, ticker, p.Date)
			}
			q.History = append(q.History, contracts.PricePoint{Date: date, Close: p.Close})
		}
		sort.Slice(q.History, func(i, j int) bool { return q.History[i].Date.Before(q.History[j].Date) })

		if e.AsOf != "" {
			asOf, err := time.Parse("2006-01-02", e.AsOf)
			if err != nil {
				return nil, fmt.Errorf("quotes file %s: %s: bad asOf %q", path, ticker, e.AsOf)
			}
			q.AsOf = asOf
		} else if n := len(q.History); n > 0 {
			q.AsOf = q.History[n-1].Date
		}
		if q.Price <= 0 && len(q.History) > 0 {
			q.Price = q.History[len(q.History)-1].Close
		}
		quotes[q.Ticker] = q
	}
	return &StaticProvider{quotes: quotes}, nil
}

// Quote implements contracts.QuoteProvider
func (p *StaticProvider) Quote(ctx context.Context, ticker string, from time.Time) (*contracts.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, ok := p.quotes[strings.ToUpper(ticker)]
	if !ok {
		return nil, fmt.Errorf("%w: %s not in quotes file", contracts.ErrDataUnavailable, ticker)
	}

	out := *q
	out.History = nil
	for _, pt := range q.History {
		if !pt.Date.Before(from) {
			out.History = append(out.History, pt)
		}
	}
	// keep the latest sample before from as the horizon fallback
	if len(out.History) < len(q.History) {
		idx := len(q.History) - len(out.History) - 1
		out.History = append([]contracts.PricePoint{q.History[idx]}, out.History...)
	}
	return &out, nil
}

// Tickers lists the tickers in the snapshot
func (p *StaticProvider) Tickers() []string {
	out := make([]string, 0, len(p.quotes))
	for t := range p.quotes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
