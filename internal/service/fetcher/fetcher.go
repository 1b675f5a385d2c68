package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"github.com/vertextoedge/issue-exporter/internal/util/contenttype"
	"go.uber.org/zap"
)

// Config contains privileged fetcher configuration
type Config struct {
	// MaxChunkSize bounds every chunk message emitted in streaming mode
	MaxChunkSize int

	// MaxOneShotBytes bounds payloads returned in one-shot mode
	MaxOneShotBytes int64

	// OneShotTimeout bounds a complete one-shot request
	OneShotTimeout time.Duration

	// MaxRedirects bounds redirect chains
	MaxRedirects int

	UserAgent string
}

// DefaultConfig returns default fetcher configuration
func DefaultConfig() *Config {
	return &Config{
		MaxChunkSize:    transfer.DefaultMaxChunkSize,
		MaxOneShotBytes: 32 * 1024 * 1024, // 32MB
		OneShotTimeout:  60 * time.Second,
		MaxRedirects:    10,
		UserAgent:       "issue-exporter/fetcher",
	}
}

// Service performs requests with elevated network capability on behalf of
// the requester: its own session cookie jar and no origin restrictions.
type Service struct {
	config    *Config
	withCreds *http.Client
	anonymous *http.Client
	logger    *zap.Logger
	active    atomic.Int64
}

// New creates a new Service. jar holds the ambient session credentials and may be nil.
func New(cfg *Config, jar http.CookieJar, transport http.RoundTripper, logger *zap.Logger) *Service {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	d := DefaultConfig()
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = d.MaxChunkSize
	}
	if cfg.MaxOneShotBytes <= 0 {
		cfg.MaxOneShotBytes = d.MaxOneShotBytes
	}
	if cfg.OneShotTimeout == 0 {
		cfg.OneShotTimeout = d.OneShotTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = d.MaxRedirects
	}
	if transport == nil {
		transport = http.DefaultTransport
	}

	s := &Service{config: cfg, logger: logger}
	s.withCreds = &http.Client{
		Transport:     transport,
		Jar:           jar,
		CheckRedirect: s.checkRedirect,
	}
	s.anonymous = &http.Client{
		Transport:     transport,
		CheckRedirect: s.checkRedirect,
	}
	return s
}

// ActiveStreams returns the number of streaming sessions in flight
func (s *Service) ActiveStreams() int64 {
	return s.active.Load()
}

// checkRedirect logs every hop. net/http already drops Authorization when a
// redirect leaves the original host, which signed storage URLs require.
func (s *Service) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= s.config.MaxRedirects {
		return fmt.Errorf("stopped after %d redirects", len(via))
	}
	s.logger.Debug("following redirect",
		zap.String("from_host", via[len(via)-1].URL.Host),
		zap.String("to_host", req.URL.Host),
		zap.Int("hop", len(via)))
	return nil
}

func (s *Service) newRequest(ctx context.Context, rawURL string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// FetchOnce performs a single buffered request with ambient credentials and
// any explicit headers. Failures are reported in the result, not as errors.
func (s *Service) FetchOnce(ctx context.Context, req port.OneShotRequest) (*port.OneShotResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.OneShotTimeout)
	defer cancel()

	httpReq, err := s.newRequest(ctx, req.URL, req.Headers)
	if err != nil {
		return &port.OneShotResult{Success: false, Error: err.Error()}, nil
	}

	resp, err := s.withCreds.Do(httpReq)
	if err != nil {
		s.logger.Debug("one-shot request failed", zap.String("url", req.URL), zap.Error(err))
		return &port.OneShotResult{Success: false, Error: fmt.Sprintf("request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return &port.OneShotResult{
			Success: false,
			Status:  resp.StatusCode,
			Error:   fmt.Sprintf("HTTP %d", resp.StatusCode),
		}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxOneShotBytes+1))
	if err != nil {
		return &port.OneShotResult{Success: false, Status: resp.StatusCode, Error: fmt.Sprintf("read failed: %v", err)}, nil
	}
	if int64(len(body)) > s.config.MaxOneShotBytes {
		return &port.OneShotResult{
			Success: false,
			Status:  resp.StatusCode,
			Error:   fmt.Sprintf("payload exceeds one-shot limit of %d bytes", s.config.MaxOneShotBytes),
		}, nil
	}

	return &port.OneShotResult{
		Success:     true,
		Data:        base64.StdEncoding.EncodeToString(body),
		ContentType: contenttype.Resolve(resp.Header.Get("Content-Type"), body),
		Size:        int64(len(body)),
		Status:      resp.StatusCode,
	}, nil
}
