package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"go.uber.org/zap"
)

// FetchService is the privileged fetch service exposed by the server
type FetchService interface {
	FetchOnce(ctx context.Context, req port.OneShotRequest) (*port.OneShotResult, error)
	Serve(ctx context.Context, conn transfer.Conn) error
	ActiveStreams() int64
}

// Config contains HTTP server configuration
type Config struct {
	BindAddr     string
	Token        string
	Transfer     transfer.Config
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "127.0.0.1:8765",
		Transfer:     transfer.DefaultConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// ChannelPath is the websocket endpoint of the chunked transfer channel
const ChannelPath = "/channel/" + transfer.ChannelName

// Server represents the privileged fetcher HTTP server
type Server struct {
	config         *Config
	fetcher        FetchService
	logger         *zap.Logger
	server         *http.Server
	fetchHandler   *FetchHandler
	channelHandler *ChannelHandler
}

// New creates a new HTTP server
func New(cfg *Config, fetcher FetchService, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		config:  cfg,
		fetcher: fetcher,
		logger:  logger,
	}

	s.fetchHandler = NewFetchHandler(fetcher, logger)
	s.channelHandler = NewChannelHandler(fetcher, cfg.Transfer, logger)

	auth := BearerAuthMiddleware(cfg.Token, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// One-shot mode
	mux.HandleFunc("/fetch", auth(s.fetchHandler.HandleFetch))

	// Streaming mode
	mux.HandleFunc(ChannelPath, auth(s.channelHandler.HandleChannel))

	s.server = &http.Server{
		Addr:         cfg.BindAddr,
		Handler:      LoggingMiddleware(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, including middleware
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"active_streams": s.fetcher.ActiveStreams(),
		"time":           time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
