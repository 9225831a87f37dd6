package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/optimizer"
	"github.com/wonny/rebalancer/pkg/logger"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondFailure maps domain errors onto HTTP status codes
// ⭐ SSOT: 에러 → HTTP 상태 매핑은 여기서만
func respondFailure(w http.ResponseWriter, log *logger.Logger, err error) {
	var ve *contracts.ValidationError
	switch {
	case errors.Is(err, contracts.ErrUnknownStrategy):
		body := ErrorResponse{Error: err.Error(), Code: "unknown_strategy"}
		if errors.As(err, &ve) {
			body.Field = ve.Field
		}
		respondJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input", Field: ve.Field})
	case errors.Is(err, contracts.ErrInvalidInput):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_input"})
	case errors.Is(err, optimizer.ErrRunNotFound):
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "not_found"})
	case errors.Is(err, contracts.ErrDataUnavailable):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "data_unavailable"})
	default:
		log.WithError(err).Error("Request failed")
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Code: "internal"})
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error(), Code: "invalid_body"})
		return false
	}
	return true
}
