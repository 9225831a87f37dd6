package httputil_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/wonny/rebalancer/pkg/config"
	"github.com/wonny/rebalancer/pkg/httputil"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Example_getJSON demonstrates decoding a quote payload
func Example_getJSON() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ticker":"VTI","price":250.5}`)
	}))
	defer srv.Close()

	// Create HTTP client (SSOT) with a limiter and breaker, as quote providers do
	client := httputil.New(config.Default(), logger.Nop()).
		WithRateLimiter(5).
		WithBreaker("example")

	var quote struct {
		Ticker string  `json:"ticker"`
		Price  float64 `json:"price"`
	}
	if err := client.GetJSON(context.Background(), srv.URL+"/quote/VTI", &quote); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("%s %.2f\n", quote.Ticker, quote.Price)

	// Output:
	// VTI 250.50
}

// Example_statusError demonstrates non-retryable status handling
func Example_statusError() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := httputil.New(config.Default(), logger.Nop()).DisableRetry()

	_, err := client.GetBytes(context.Background(), srv.URL+"/quote/NOPE")
	fmt.Println(httputil.IsRetryableStatus(http.StatusNotFound), err != nil)

	// Output:
	// false true
}
