package port

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/vertextoedge/issue-exporter/internal/transfer"
)

// OneShotRequest asks the privileged fetcher for a single buffered request
type OneShotRequest struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// OneShotResult is the buffered answer of the privileged fetcher.
// Data carries the payload base64-encoded so it survives JSON transport.
type OneShotResult struct {
	Success     bool   `json:"success"`
	Data        string `json:"data,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Status      int    `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Payload decodes Data
func (r *OneShotResult) Payload() ([]byte, error) {
	if r.Data == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(r.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return b, nil
}

// PrivilegedFetcher is the requesting side's view of the privileged fetch service
type PrivilegedFetcher interface {
	// FetchOnce performs a single buffered request
	FetchOnce(ctx context.Context, req OneShotRequest) (*OneShotResult, error)

	// OpenChannel opens a fresh chunked transfer channel to the fetcher.
	// The caller owns the returned connection and must close it.
	OpenChannel(ctx context.Context) (transfer.Conn, error)
}
