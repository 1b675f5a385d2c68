package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestSkippableError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		context string
		want    string
	}{
		{
			name:    "with context and error",
			err:     errors.New("underlying error"),
			context: "processing file",
			want:    "processing file: underlying error",
		},
		{
			name:    "with context only",
			err:     nil,
			context: "file already cached",
			want:    "file already cached",
		},
		{
			name:    "with error only",
			err:     errors.New("underlying error"),
			context: "",
			want:    "underlying error",
		},
		{
			name:    "empty",
			err:     nil,
			context: "",
			want:    "skippable error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := NewSkippableError(tt.err, tt.context)
			if got := se.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSkippableError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	se := NewSkippableError(underlying, "context")

	if got := se.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	// Test with nil error
	seNil := NewSkippableError(nil, "context")
	if got := seNil.Unwrap(); got != nil {
		t.Errorf("Unwrap() with nil = %v, want nil", got)
	}
}

func TestIsSkippable(t *testing.T) {
	se := NewSkippableError(errors.New("disk full"), "archive attachments/a.pdf")
	if !IsSkippable(se) {
		t.Error("IsSkippable() = false for SkippableError")
	}
	if !IsSkippable(fmt.Errorf("wrapped: %w", se)) {
		t.Error("IsSkippable() = false for wrapped SkippableError")
	}
	if IsSkippable(errors.New("plain")) {
		t.Error("IsSkippable() = true for plain error")
	}
}

func TestFetchError(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want string
		kind ErrorKind
	}{
		{
			name: "status",
			err:  NewStatusError(500),
			want: "http_status_failure (status 500)",
			kind: KindHTTPStatusFailure,
		},
		{
			name: "forbidden is auth rejected",
			err:  NewStatusError(403),
			want: "auth_rejected (status 403)",
			kind: KindAuthRejected,
		},
		{
			name: "detail",
			err:  NewFetchError(KindEmptyPayload, "zero-length body"),
			want: "empty_payload: zero-length body",
			kind: KindEmptyPayload,
		},
		{
			name: "wrapped cause",
			err:  &FetchError{Kind: KindNetworkFailure, Detail: "dial", Err: errors.New("connection refused")},
			want: "network_failure: dial: connection refused",
			kind: KindNetworkFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			wrapped := fmt.Errorf("%w: %w", ErrAllStrategiesFailed, tt.err)
			if got := KindOf(wrapped); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
			if !errors.Is(wrapped, ErrAllStrategiesFailed) {
				t.Error("wrapped error lost ErrAllStrategiesFailed")
			}
		})
	}
}

func TestKindOf_Unknown(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf() = %v, want %v", got, KindUnknown)
	}
	if got := ErrorKind(99).String(); got != "kind(99)" {
		t.Errorf("String() = %q", got)
	}
}
