package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/rebalancer/internal/api/handlers"
	"github.com/wonny/rebalancer/pkg/database"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Handlers bundles the endpoint handlers served by the router
type Handlers struct {
	Optimize *handlers.OptimizeHandler
	Strategy *handlers.StrategyHandler
	Momentum *handlers.MomentumHandler

	// Metrics serves /metrics when set
	Metrics http.Handler

	// DB adds a database probe to /health when set
	DB *database.DB
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler(h.DB)).Methods("GET")

	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}

	// API v1
	// Full paths on the root router so a method mismatch answers 405
	r.HandleFunc("/api/optimize", h.Optimize.Optimize).Methods("POST")
	r.HandleFunc("/api/strategies", h.Optimize.Strategies).Methods("GET")
	r.HandleFunc("/api/runs", h.Optimize.ListRuns).Methods("GET")
	r.HandleFunc("/api/runs/{id}", h.Optimize.GetRun).Methods("GET")

	// Strategy endpoints
	r.HandleFunc("/api/targets", h.Strategy.Targets).Methods("POST")
	r.HandleFunc("/api/rebalance", h.Strategy.Rebalance).Methods("POST")
	r.HandleFunc("/api/templates", h.Strategy.Templates).Methods("GET")

	// Momentum endpoints
	r.HandleFunc("/api/momentum/batch", h.Momentum.Batch).Methods("POST")
	r.HandleFunc("/api/momentum/{ticker}", h.Momentum.Get).Methods("GET")

	// Streaming
	r.HandleFunc("/ws/momentum", h.Momentum.Stream).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":  "ok",
			"service": "rebalancer",
		}
		status := http.StatusOK

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			health := db.HealthCheck(ctx)
			body["database"] = health
			if !health.Healthy {
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

// loggingMiddleware logs HTTP requests.
// The writer is passed through untouched so websocket upgrades can hijack it.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
