package quotes

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/httputil"
	"github.com/wonny/rebalancer/pkg/logger"
)

// SourceHTML tags quotes scraped from a history page
const SourceHTML = "html"

var historyDateLayouts = []string{"2006-01-02", "Jan 2, 2006", "Jan 02, 2006", "2006.01.02", "01/02/2006"}

// HTMLClient scrapes a price history table
// ⭐ SSOT: 시세 히스토리 HTML 파싱은 여기서만
type HTMLClient struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// NewHTMLClient creates a history page scraper
func NewHTMLClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *HTMLClient {
	return &HTMLClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     log.Component("html_quotes"),
	}
}

// Quote implements contracts.QuoteProvider
func (c *HTMLClient) Quote(ctx context.Context, ticker string, from time.Time) (*contracts.Quote, error) {
	fullURL := fmt.Sprintf("%s/quote/%s/history", c.baseURL, url.PathEscape(ticker))

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("history page %s: %w", ticker, err)
	}

	history, err := parseHistoryHTML(body)
	if err != nil {
		return nil, fmt.Errorf("history page %s: %w", ticker, err)
	}

	filtered := history[:0]
	for _, p := range history {
		if !p.Date.Before(from) {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: history page %s has no rows since %s", contracts.ErrDataUnavailable, ticker, from.Format("2006-01-02"))
	}

	last := filtered[len(filtered)-1]
	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"count":  len(filtered),
	}).Debug("Scraped price history")

	return &contracts.Quote{
		Ticker:  ticker,
		Price:   last.Close,
		AsOf:    last.Date,
		History: filtered,
		Source:  SourceHTML,
	}, nil
}

// parseHistoryHTML reads the first table with Date and Close headers.
// Rows that are not prices (dividends, splits) are skipped.
func parseHistoryHTML(body []byte) ([]contracts.PricePoint, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var points []contracts.PricePoint
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		dateCol, closeCol := -1, -1
		table.Find("thead th, tr:first-child th").Each(func(i int, th *goquery.Selection) {
			h := strings.ToLower(strings.TrimSpace(th.Text()))
			switch {
			case h == "date":
				dateCol = i
			case closeCol < 0 && (h == "close" || strings.HasPrefix(h, "close")):
				closeCol = i
			}
		})
		if dateCol < 0 || closeCol < 0 {
			return true
		}
		found = true

		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= closeCol || cells.Length() <= dateCol {
				return
			}
			date, ok := parseHistoryDate(cells.Eq(dateCol).Text())
			if !ok {
				return
			}
			closePrice, ok := parsePrice(cells.Eq(closeCol).Text())
			if !ok {
				return
			}
			points = append(points, contracts.PricePoint{Date: date, Close: closePrice})
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("%w: no history table", contracts.ErrDataUnavailable)
	}

	// pages list newest first
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

func parseHistoryDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range historyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parsePrice(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "$")
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
