package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"github.com/vertextoedge/issue-exporter/internal/util/contenttype"
	"go.uber.org/zap"
)

// errUnexpectedMessage is returned by Serve when the first frame is not a stream request
var errUnexpectedMessage = errors.New("expected stream request")

// Serve handles exactly one streamed download on conn and closes it afterwards.
// Any read error on conn, including the requester closing it, cancels the
// in-flight request.
func (s *Service) Serve(ctx context.Context, conn transfer.Conn) error {
	defer conn.Close()

	msg, err := conn.Receive(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stream request: %w", err)
	}
	req, ok := msg.(transfer.StreamRequest)
	if !ok {
		return fmt.Errorf("%w, got %T", errUnexpectedMessage, msg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			if _, err := conn.Receive(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	return s.Stream(ctx, conn, req)
}

// Stream fetches req.URL and relays the body over conn as ordered chunk
// messages followed by a complete message. A cancelled ctx or a closed conn
// stops production without emitting anything further.
func (s *Service) Stream(ctx context.Context, conn transfer.Conn, req transfer.StreamRequest) error {
	s.active.Add(1)
	defer s.active.Add(-1)

	logger := s.logger.With(zap.String("request_id", req.RequestID))
	logger.Debug("stream started", zap.String("url", req.URL))

	resp, err := s.open(ctx, req.URL)
	if err != nil {
		return s.fail(ctx, conn, req.RequestID, logger, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.fail(ctx, conn, req.RequestID, logger, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	maxChunk := s.config.MaxChunkSize
	if conn.MaxChunkSize() < maxChunk {
		maxChunk = conn.MaxChunkSize()
	}

	if resp.ContentLength > 0 {
		logger.Debug("relaying body",
			zap.Int64("content_length", resp.ContentLength),
			zap.Int("expected_chunks", transfer.ChunkCount(resp.ContentLength, maxChunk)))
	}

	// Full chunks go out as soon as they are buffered; only the tail of the
	// body may be short.
	declared := resp.Header.Get("Content-Type")
	contentType := declared
	var total int64
	var chunks int

	readBuf := make([]byte, maxChunk)
	var pending []byte
	for {
		n, readErr := resp.Body.Read(readBuf)
		pending = append(pending, readBuf[:n]...)
		total += int64(n)

		if readErr != nil && readErr != io.EOF {
			return s.fail(ctx, conn, req.RequestID, logger, fmt.Errorf("read failed: %w", readErr))
		}
		eof := readErr == io.EOF

		pieces := transfer.Split(pending, maxChunk)
		ready := len(pieces)
		if !eof && ready > 0 && len(pieces[ready-1]) < maxChunk {
			ready--
		}
		for _, piece := range pieces[:ready] {
			if chunks == 0 {
				contentType = contenttype.Resolve(declared, piece)
			}
			if err := conn.Send(ctx, transfer.Chunk{RequestID: req.RequestID, Data: piece}); err != nil {
				return s.fail(ctx, conn, req.RequestID, logger, err)
			}
			chunks++
		}
		if ready < len(pieces) {
			pending = append([]byte(nil), pieces[ready]...)
		} else {
			pending = nil
		}

		if eof {
			break
		}
		if ctx.Err() != nil {
			return s.fail(ctx, conn, req.RequestID, logger, ctx.Err())
		}
	}

	if contentType == "" {
		contentType = contenttype.Generic
	}
	if err := conn.Send(ctx, transfer.Complete{RequestID: req.RequestID, ContentType: contentType}); err != nil {
		return s.fail(ctx, conn, req.RequestID, logger, err)
	}

	logger.Debug("stream completed",
		zap.Int64("bytes", total),
		zap.Int("chunks", chunks),
		zap.String("content_type", contentType))
	return nil
}

// open performs the request with ambient credentials and, if that is rejected
// with 403 or blocked, retries once without them.
func (s *Service) open(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := s.newRequest(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.withCreds.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	if !shouldRetryAnonymously(resp) {
		return resp, nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	s.logger.Debug("retrying without credentials",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode))

	req, err = s.newRequest(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err = s.anonymous.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anonymous request failed: %w", err)
	}
	return resp, nil
}

// shouldRetryAnonymously reports a 403, or a redirect that could not be
// followed, which is how a blocked response surfaces outside a browser.
func shouldRetryAnonymously(resp *http.Response) bool {
	if resp.StatusCode == http.StatusForbidden {
		return true
	}
	return resp.StatusCode >= 300 && resp.StatusCode < 400
}

// fail emits an error message unless the session was cancelled, in which case
// nothing more is sent.
func (s *Service) fail(ctx context.Context, conn transfer.Conn, requestID string, logger *zap.Logger, err error) error {
	if ctx.Err() != nil || errors.Is(err, transfer.ErrDisconnected) {
		logger.Debug("stream cancelled", zap.Error(err))
		return nil
	}

	logger.Warn("stream failed", zap.Error(err))
	if sendErr := conn.Send(ctx, transfer.Failure{RequestID: requestID, Error: err.Error()}); sendErr != nil {
		logger.Debug("failed to deliver error message", zap.Error(sendErr))
	}
	return err
}
