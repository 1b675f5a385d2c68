package fetcherclient

import (
	"context"

	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"go.uber.org/zap"
)

// Service is the privileged fetch service hosted in-process
type Service interface {
	FetchOnce(ctx context.Context, req port.OneShotRequest) (*port.OneShotResult, error)
	Serve(ctx context.Context, conn transfer.Conn) error
}

// InProcess connects to a fetch service running in the same process over an
// in-memory pipe with the same per-message ceiling as the websocket channel.
type InProcess struct {
	svc      Service
	transfer transfer.Config
	logger   *zap.Logger
}

var _ port.PrivilegedFetcher = (*InProcess)(nil)

// NewInProcess creates a new InProcess fetcher
func NewInProcess(svc Service, cfg transfer.Config, logger *zap.Logger) *InProcess {
	return &InProcess{svc: svc, transfer: cfg, logger: logger}
}

// FetchOnce calls the service directly
func (p *InProcess) FetchOnce(ctx context.Context, req port.OneShotRequest) (*port.OneShotResult, error) {
	return p.svc.FetchOnce(ctx, req)
}

// OpenChannel starts a serving goroutine on a new pipe. The goroutine ends
// when the session completes or the returned end is closed.
func (p *InProcess) OpenChannel(ctx context.Context) (transfer.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	requester, fetcher := transfer.NewPipe(p.transfer)
	go func() {
		if err := p.svc.Serve(context.Background(), fetcher); err != nil {
			p.logger.Debug("in-process session ended with error", zap.Error(err))
		}
	}()
	return requester, nil
}
