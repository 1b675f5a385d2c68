package domain

import (
	"bytes"
	"fmt"
)

// SessionState is the lifecycle state of a TransferSession
type SessionState string

// Session state constants
const (
	SessionOpen      SessionState = "open"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
	SessionCancelled SessionState = "cancelled"
)

// IsTerminal returns true once the session can no longer change
func (s SessionState) IsTerminal() bool {
	return s != SessionOpen
}

// TransferSession tracks one in-flight streamed download on the requesting side.
// Chunks are kept in arrival order and never reordered.
type TransferSession struct {
	RequestID   string
	ContentType string
	TotalBytes  int64
	State       SessionState
	Err         error

	chunks [][]byte
}

// NewTransferSession creates an open session for requestID
func NewTransferSession(requestID string) *TransferSession {
	return &TransferSession{
		RequestID: requestID,
		State:     SessionOpen,
	}
}

// AppendChunk records the next chunk in arrival order
func (s *TransferSession) AppendChunk(chunk []byte) error {
	if s.State != SessionOpen {
		return fmt.Errorf("%w: append in state %s", ErrInvalidSessionState, s.State)
	}
	s.chunks = append(s.chunks, chunk)
	s.TotalBytes += int64(len(chunk))
	return nil
}

// Complete marks the session as finished successfully
func (s *TransferSession) Complete(contentType string) error {
	if s.State != SessionOpen {
		return fmt.Errorf("%w: complete in state %s", ErrInvalidSessionState, s.State)
	}
	s.ContentType = contentType
	s.State = SessionCompleted
	return nil
}

// Fail marks the session as failed with err
func (s *TransferSession) Fail(err error) {
	if s.State != SessionOpen {
		return
	}
	s.State = SessionFailed
	s.Err = err
	s.chunks = nil
}

// Cancel marks the session as cancelled, dropping any buffered chunks
func (s *TransferSession) Cancel(err error) {
	if s.State != SessionOpen {
		return
	}
	s.State = SessionCancelled
	s.Err = err
	s.chunks = nil
}

// ChunkCount returns how many chunks have been received
func (s *TransferSession) ChunkCount() int {
	return len(s.chunks)
}

// Bytes concatenates the received chunks in arrival order
func (s *TransferSession) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(int(s.TotalBytes))
	for _, c := range s.chunks {
		buf.Write(c)
	}
	return buf.Bytes()
}
