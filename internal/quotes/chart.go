package quotes

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/httputil"
	"github.com/wonny/rebalancer/pkg/logger"
)

// SourceChart tags quotes from the JSON chart API
const SourceChart = "chart"

// ChartClient reads daily closes from a v8 chart style JSON endpoint
// ⭐ SSOT: 원격 차트 API 호출은 이 클라이언트에서만
type ChartClient struct {
	httpClient *httputil.Client
	baseURL    string
	now        func() time.Time
	logger     *logger.Logger
}

// NewChartClient creates a chart client
func NewChartClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *ChartClient {
	return &ChartClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		now:        time.Now,
		logger:     log.Component("chart_quotes"),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote implements contracts.QuoteProvider
func (c *ChartClient) Quote(ctx context.Context, ticker string, from time.Time) (*contracts.Quote, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprint(from.Unix()))
	params.Set("period2", fmt.Sprint(c.now().Unix()))
	params.Set("interval", "1d")
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return nil, fmt.Errorf("chart %s: %w", ticker, err)
	}

	quote, err := parseChart(ticker, &resp)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"count":  len(quote.History),
		"price":  quote.Price,
	}).Debug("Fetched chart history")
	return quote, nil
}

func parseChart(ticker string, resp *chartResponse) (*contracts.Quote, error) {
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: chart %s: %s %s", contracts.ErrDataUnavailable, ticker, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: chart %s: empty result", contracts.ErrDataUnavailable, ticker)
	}

	r := resp.Chart.Result[0]
	var closes []*float64
	if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	quote := &contracts.Quote{Ticker: ticker, Source: SourceChart}
	for i, ts := range r.Timestamp {
		// null closes mark halted sessions
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 || math.IsNaN(*closes[i]) {
			continue
		}
		date := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		quote.History = append(quote.History, contracts.PricePoint{Date: date, Close: *closes[i]})
	}

	quote.Price = r.Meta.RegularMarketPrice
	if r.Meta.RegularMarketTime > 0 {
		quote.AsOf = time.Unix(r.Meta.RegularMarketTime, 0).UTC()
	}
	if n := len(quote.History); n > 0 {
		last := quote.History[n-1]
		if quote.Price <= 0 {
			quote.Price = last.Close
		}
		if quote.AsOf.IsZero() {
			quote.AsOf = last.Date
		}
	}
	if quote.Price <= 0 {
		return nil, fmt.Errorf("%w: chart %s: no price", contracts.ErrDataUnavailable, ticker)
	}
	return quote, nil
}
