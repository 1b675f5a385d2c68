package fetcherclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"go.uber.org/zap"
)

// Config contains the remote fetcher connection settings
type Config struct {
	// BaseURL of the fetcher server, e.g. http://127.0.0.1:8765
	BaseURL string
	Token   string

	// Transfer must use the same MaxChunkSize as the server
	Transfer transfer.Config

	// Timeout bounds one-shot requests and the channel handshake
	Timeout time.Duration
}

// Client reaches a privileged fetcher over HTTP and websocket
type Client struct {
	baseURL    *url.URL
	token      string
	transfer   transfer.Config
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger
}

var _ port.PrivilegedFetcher = (*Client)(nil)

// New creates a new Client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid fetcher base url %q", cfg.BaseURL)
	}
	if cfg.Transfer.Name == "" {
		cfg.Transfer.Name = transfer.ChannelName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Client{
		baseURL:    u,
		token:      cfg.Token,
		transfer:   cfg.Transfer,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.Timeout,
			Subprotocols:     []string{cfg.Transfer.Name},
		},
		logger: logger,
	}, nil
}

func (c *Client) endpoint(scheme, path string) string {
	u := *c.baseURL
	u.Scheme = scheme
	u.Path = u.Path + path
	return u.String()
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// FetchOnce posts the request to the fetcher's one-shot endpoint
func (c *Client) FetchOnce(ctx context.Context, req port.OneShotRequest) (*port.OneShotResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.baseURL.Scheme, "/fetch"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = c.authHeader()
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetcher request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetcher returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result port.OneShotResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode fetcher response: %w", err)
	}
	return &result, nil
}

// OpenChannel dials a fresh websocket channel to the fetcher
func (c *Client) OpenChannel(ctx context.Context) (transfer.Conn, error) {
	scheme := "ws"
	if c.baseURL.Scheme == "https" {
		scheme = "wss"
	}
	target := c.endpoint(scheme, "/channel/"+c.transfer.Name)

	ws, resp, err := c.dialer.DialContext(ctx, target, c.authHeader())
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("channel handshake failed with HTTP %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial channel: %w", err)
	}

	c.logger.Debug("channel opened", zap.String("url", target))
	return transfer.NewWebsocketConn(ws, c.transfer), nil
}
