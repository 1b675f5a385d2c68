package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"go.uber.org/zap"
)

// ChannelHandler upgrades requests to a chunked transfer channel and serves
// one streamed download per connection.
type ChannelHandler struct {
	fetcher  FetchService
	config   transfer.Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewChannelHandler creates a new ChannelHandler
func NewChannelHandler(fetcher FetchService, cfg transfer.Config, logger *zap.Logger) *ChannelHandler {
	if cfg.Name == "" {
		cfg.Name = transfer.ChannelName
	}
	return &ChannelHandler{
		fetcher: fetcher,
		config:  cfg,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{cfg.Name},
			// the requester is a local process, not a browser page
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// HandleChannel handles GET /channel/file-download-stream
func (h *ChannelHandler) HandleChannel(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an error status
		h.logger.Warn("channel upgrade failed", zap.Error(err))
		return
	}

	conn := transfer.NewWebsocketConn(ws, h.config)
	if err := h.fetcher.Serve(r.Context(), conn); err != nil {
		h.logger.Debug("channel session ended with error", zap.Error(err))
	}
}
