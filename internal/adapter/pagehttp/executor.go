package pagehttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vertextoedge/issue-exporter/internal/port"
	"go.uber.org/zap"
)

// ErrCORSRejected is the transport-level error the low-level primitive reports
// when a cross-origin response is not shared with the page origin.
var ErrCORSRejected = errors.New("cross-origin response not shared with page origin")

// Config contains page context executor configuration
type Config struct {
	// PageOrigin is the origin of the document the requester runs alongside,
	// e.g. "https://example.atlassian.net"
	PageOrigin string

	// Timeout bounds a complete request including the body
	Timeout time.Duration

	// MaxBodyBytes bounds buffered response bodies
	MaxBodyBytes int64

	UserAgent string
}

// Executor issues requests the way the unprivileged page context can:
// ambient cookies follow the credentials mode and cross-origin responses are
// only readable when the server shares them with the page origin.
type Executor struct {
	config    *Config
	origin    *url.URL
	jar       http.CookieJar
	transport http.RoundTripper
	logger    *zap.Logger
}

// Ensure Executor implements port.NetworkExecutor
var _ port.NetworkExecutor = (*Executor)(nil)

// New creates a new Executor. jar holds the page's session cookies.
func New(cfg *Config, jar http.CookieJar, transport http.RoundTripper, logger *zap.Logger) (*Executor, error) {
	if cfg == nil || cfg.PageOrigin == "" {
		return nil, errors.New("page origin is required")
	}
	origin, err := url.Parse(cfg.PageOrigin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid page origin %q", cfg.PageOrigin)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 512 * 1024 * 1024 // 512MB
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Executor{
		config:    cfg,
		origin:    origin,
		jar:       jar,
		transport: transport,
		logger:    logger,
	}, nil
}

// Origin returns the page origin as scheme://host
func (e *Executor) Origin() string {
	return originOf(e.origin)
}

// Do performs req and buffers the response body
func (e *Executor) Do(ctx context.Context, req *port.Request) (*port.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if e.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", e.config.UserAgent)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	// Carried across redirects so every hop can decide whether to share
	httpReq.Header.Set("Origin", e.Origin())

	client := &http.Client{
		Transport: e.transport,
		Jar:       e.jarFor(req.Credentials),
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	finalURL := resp.Request.URL
	result := &port.Response{
		Status:      resp.StatusCode,
		Type:        port.ResponseBasic,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    finalURL.String(),
	}

	if !e.sameOrigin(finalURL) {
		withCreds := req.Credentials == port.CredentialsInclude
		if !e.sharedWithOrigin(resp.Header, withCreds, req.Primitive) {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
			e.logger.Debug("cross-origin response withheld",
				zap.String("url", req.URL),
				zap.String("final_host", finalURL.Host),
				zap.Int("status", resp.StatusCode))
			if req.Primitive == port.PrimitiveLowLevel {
				return nil, ErrCORSRejected
			}
			return &port.Response{Type: port.ResponseOpaque, FinalURL: finalURL.String()}, nil
		}
		result.Type = port.ResponseCORS
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.config.MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > e.config.MaxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", e.config.MaxBodyBytes)
	}
	result.Body = body
	return result, nil
}

// jarFor returns the cookie jar visible to a request in the given mode
func (e *Executor) jarFor(mode port.CredentialsMode) http.CookieJar {
	if e.jar == nil {
		return nil
	}
	switch mode {
	case port.CredentialsInclude:
		return e.jar
	case port.CredentialsSameOrigin:
		return &sameOriginJar{jar: e.jar, isSameOrigin: e.sameOrigin}
	default:
		return nil
	}
}

// sharedWithOrigin applies the Access-Control-Allow-* checks. The low-level
// primitive accepts a wildcard even for credentialed requests.
func (e *Executor) sharedWithOrigin(h http.Header, withCreds bool, primitive port.Primitive) bool {
	allow := strings.TrimSpace(h.Get("Access-Control-Allow-Origin"))
	switch {
	case allow == "":
		return false
	case allow == "*":
		return !withCreds || primitive == port.PrimitiveLowLevel
	case !strings.EqualFold(allow, e.Origin()):
		return false
	}
	if withCreds && primitive == port.PrimitiveFetch {
		return strings.EqualFold(h.Get("Access-Control-Allow-Credentials"), "true")
	}
	return true
}

func (e *Executor) sameOrigin(u *url.URL) bool {
	return originOf(u) == originOf(e.origin)
}

func originOf(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// sameOriginJar exposes cookies only to requests for the page origin.
// Cookies set by any response are still stored.
type sameOriginJar struct {
	jar          http.CookieJar
	isSameOrigin func(*url.URL) bool
}

func (j *sameOriginJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)
}

func (j *sameOriginJar) Cookies(u *url.URL) []*http.Cookie {
	if !j.isSameOrigin(u) {
		return nil
	}
	return j.jar.Cookies(u)
}
