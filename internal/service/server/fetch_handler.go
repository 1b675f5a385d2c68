package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/vertextoedge/issue-exporter/internal/port"
	"go.uber.org/zap"
)

// maxFetchRequestBytes bounds the JSON body of a one-shot request
const maxFetchRequestBytes = 64 * 1024

// FetchHandler serves one-shot requests
type FetchHandler struct {
	fetcher FetchService
	logger  *zap.Logger
}

// NewFetchHandler creates a new FetchHandler
func NewFetchHandler(fetcher FetchService, logger *zap.Logger) *FetchHandler {
	return &FetchHandler{fetcher: fetcher, logger: logger}
}

// HandleFetch handles POST /fetch. Upstream failures are reported inside the
// result with status 200; only malformed requests get an error status.
func (h *FetchHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req port.OneShotRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxFetchRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	result, err := h.fetcher.FetchOnce(r.Context(), req)
	if err != nil {
		h.logger.Error("one-shot fetch failed", zap.String("url", req.URL), zap.Error(err))
		http.Error(w, "Fetch failed", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("one-shot fetch",
		zap.String("url", req.URL),
		zap.Bool("success", result.Success),
		zap.Int64("size", result.Size))
	writeJSON(w, http.StatusOK, result)
}
