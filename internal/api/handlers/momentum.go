package handlers

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxBatchSize   = 200
	streamDoneType = "done"
)

// MomentumService scores tickers
type MomentumService interface {
	Record(ctx context.Context, ticker string) contracts.MomentumRecord
	Batch(ctx context.Context, tickers []string) []contracts.MomentumRecord
	Stream(ctx context.Context, tickers []string, emit func(i int, rec contracts.MomentumRecord))
}

// BatchRequest lists tickers to score
type BatchRequest struct {
	Tickers []string `json:"tickers"`
}

// StreamMessage is one WebSocket frame of a momentum stream
type StreamMessage struct {
	Type   string                    `json:"type"` // record, done, error
	Index  int                       `json:"index,omitempty"`
	Record *contracts.MomentumRecord `json:"record,omitempty"`
	Count  int                       `json:"count,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// MomentumHandler handles momentum endpoints
type MomentumHandler struct {
	service  MomentumService
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewMomentumHandler creates a new momentum handler
func NewMomentumHandler(svc MomentumService, log *logger.Logger) *MomentumHandler {
	return &MomentumHandler{
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: log.Component("momentum_handler"),
	}
}

// Get scores one ticker
// GET /api/momentum/{ticker}
func (h *MomentumHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(mux.Vars(r)["ticker"])
	if ticker == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "ticker is required", Code: "invalid_input", Field: "ticker"})
		return
	}

	respondJSON(w, http.StatusOK, h.service.Record(r.Context(), ticker))
}

// Batch scores many tickers, preserving request order
// POST /api/momentum/batch
func (h *MomentumHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tickers, err := cleanTickers(req.Tickers)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	records := h.service.Batch(r.Context(), tickers)
	failed := 0
	for _, rec := range records {
		if rec.HasError() {
			failed++
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
		"failed":  failed,
	})
}

// Stream scores tickers and pushes each record as it completes.
// Tickers come from ?tickers=A,B or, when absent, from a first
// {"tickers":[...]} message.
// GET /ws/momentum
func (h *MomentumHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	var raw []string
	if q := r.URL.Query().Get("tickers"); q != "" {
		raw = strings.Split(q, ",")
	} else {
		var req BatchRequest
		if err := conn.ReadJSON(&req); err != nil {
			h.writeFinal(conn, StreamMessage{Type: "error", Error: "expected {\"tickers\": [...]}"})
			return
		}
		raw = req.Tickers
	}

	tickers, err := cleanTickers(raw)
	if err != nil {
		h.writeFinal(conn, StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 클라이언트 종료 감지
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	var mu sync.Mutex
	sent := 0
	h.service.Stream(ctx, tickers, func(i int, rec contracts.MomentumRecord) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(StreamMessage{Type: "record", Index: i, Record: &rec}); err != nil {
			h.logger.WithError(err).Debug("Stream write failed")
			cancel()
			return
		}
		sent++
	})

	mu.Lock()
	defer mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	h.writeFinal(conn, StreamMessage{Type: streamDoneType, Count: sent})

	h.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"sent":    sent,
	}).Debug("Momentum stream finished")
}

func (h *MomentumHandler) writeFinal(conn *websocket.Conn, msg StreamMessage) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

// cleanTickers upper-cases, trims and de-duplicates tickers
func cleanTickers(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, contracts.Invalid("tickers", "at least one ticker is required")
	}
	if len(out) > maxBatchSize {
		return nil, contracts.Invalid("tickers", "at most %d tickers per batch", maxBatchSize)
	}
	return out, nil
}
