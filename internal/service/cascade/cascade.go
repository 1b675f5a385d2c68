package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/util/contenttype"
	"go.uber.org/zap"
)

// Config contains cascade configuration
type Config struct {
	// SessionTimeout bounds one privileged streaming session
	SessionTimeout time.Duration
}

// DefaultConfig returns default cascade configuration
func DefaultConfig() *Config {
	return &Config{
		SessionTimeout: 5 * time.Minute,
	}
}

// Cascade retrieves one resource by trying strategies in a fixed priority
// order until one yields a non-empty payload.
type Cascade struct {
	config       *Config
	page         port.NetworkExecutor
	privileged   port.PrivilegedFetcher
	local        port.LocalHandleResolver
	logger       *zap.Logger
	newRequestID func() string
	strategies   []strategy
}

// New creates a new Cascade. privileged and local may be nil, in which case
// the strategies depending on them are skipped.
func New(
	cfg *Config,
	page port.NetworkExecutor,
	privileged port.PrivilegedFetcher,
	local port.LocalHandleResolver,
	logger *zap.Logger,
) *Cascade {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 5 * time.Minute
	}

	c := &Cascade{
		config:       cfg,
		page:         page,
		privileged:   privileged,
		local:        local,
		logger:       logger,
		newRequestID: func() string { return uuid.NewString() },
	}
	c.strategies = c.buildStrategies()
	return c
}

// Strategies returns the strategy names in the order they are tried
func (c *Cascade) Strategies() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.name
	}
	return names
}

// Download runs the cascade for desc. When every strategy fails the returned
// error wraps domain.ErrAllStrategiesFailed and the last failure.
func (c *Cascade) Download(ctx context.Context, desc domain.ResourceDescriptor) (*domain.DownloadResult, error) {
	logger := c.logger.With(zap.String("url", desc.URL))
	a := &attempt{desc: desc}
	urlErr := validateURL(desc)
	var last *domain.FetchError

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.network && urlErr != nil {
			last = urlErr
			break
		}

		out := s.run(ctx, a)
		if out.OK() && len(out.Payload) == 0 {
			out = failure(domain.KindEmptyPayload, "zero-length body")
		}

		if out.OK() {
			logger.Debug("strategy succeeded",
				zap.String("strategy", s.name),
				zap.Int("bytes", len(out.Payload)))
			return &domain.DownloadResult{
				Name:        desc.DisplayName(),
				Payload:     out.Payload,
				ContentType: contenttype.Resolve(out.ContentType, out.Payload),
				Strategy:    s.name,
			}, nil
		}

		if out.Failure.Kind == domain.KindNotApplicable {
			continue
		}
		if out.Failure.Kind == domain.KindCORSBlocked {
			a.sawOpaque = true
		}
		last = out.Failure
		logger.Debug("strategy failed",
			zap.String("strategy", s.name),
			zap.Stringer("kind", out.Failure.Kind),
			zap.Error(out.Failure))
	}

	if last == nil {
		last = domain.NewFetchError(domain.KindUnknown, "no strategy applicable")
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrAllStrategiesFailed, last)
}

func validateURL(desc domain.ResourceDescriptor) *domain.FetchError {
	if _, err := desc.NetworkURL(); err != nil {
		return &domain.FetchError{Kind: domain.KindInvalidURL, Detail: desc.URL, Err: err}
	}
	return nil
}
