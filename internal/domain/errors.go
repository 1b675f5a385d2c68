package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidURL     = errors.New("url is not an absolute network url")
	ErrNoSourceHandle = errors.New("resource has no local source handle")

	// Transfer errors
	ErrAllStrategiesFailed  = errors.New("all download strategies failed")
	ErrInvalidSessionState  = errors.New("invalid transfer session state")
	ErrSessionAlreadyClosed = errors.New("transfer session already closed")

	// Archive errors
	ErrEmptyArchiveName = errors.New("archive name cannot be empty")
)

// ErrorKind classifies why a download attempt failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNetworkFailure
	KindHTTPStatusFailure
	KindCORSBlocked
	KindEmptyPayload
	KindChannelDisconnected
	KindSessionTimeout
	KindAuthRejected
	KindInvalidURL
	KindNotApplicable
)

var kindNames = map[ErrorKind]string{
	KindUnknown:             "unknown",
	KindNetworkFailure:      "network_failure",
	KindHTTPStatusFailure:   "http_status_failure",
	KindCORSBlocked:         "cors_blocked",
	KindEmptyPayload:        "empty_payload",
	KindChannelDisconnected: "channel_disconnected",
	KindSessionTimeout:      "session_timeout",
	KindAuthRejected:        "auth_rejected",
	KindInvalidURL:          "invalid_url",
	KindNotApplicable:       "not_applicable",
}

// String returns the snake_case name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FetchError describes a failed download attempt.
type FetchError struct {
	Kind   ErrorKind
	Status int
	Detail string
	Err    error
}

// Error returns the error message
func (e *FetchError) Error() string {
	msg := e.Kind.String()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new fetch error
func NewFetchError(kind ErrorKind, detail string) *FetchError {
	return &FetchError{Kind: kind, Detail: detail}
}

// NewStatusError creates a fetch error for an unexpected HTTP status.
// 403 is reported as KindAuthRejected so callers can strip credentials.
func NewStatusError(status int) *FetchError {
	kind := KindHTTPStatusFailure
	if status == 403 {
		kind = KindAuthRejected
	}
	return &FetchError{Kind: kind, Status: status}
}

// KindOf returns the ErrorKind carried by err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// SkippableError represents an error that can be logged and skipped.
// Processing can continue with the next item when this error occurs.
type SkippableError struct {
	Err     error
	Context string
}

// Error returns the error message
func (e *SkippableError) Error() string {
	if e.Context != "" {
		if e.Err != nil {
			return e.Context + ": " + e.Err.Error()
		}
		return e.Context
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "skippable error"
}

// Unwrap returns the underlying error
func (e *SkippableError) Unwrap() error {
	return e.Err
}

// NewSkippableError creates a new skippable error
func NewSkippableError(err error, context string) *SkippableError {
	return &SkippableError{Err: err, Context: context}
}

// IsSkippable returns true if the error can be skipped
func IsSkippable(err error) bool {
	var se *SkippableError
	return errors.As(err, &se)
}
