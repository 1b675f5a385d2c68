package port

import (
	"context"
)

// CredentialsMode controls when ambient session credentials (cookies) are sent
type CredentialsMode int

const (
	// CredentialsOmit never sends ambient credentials
	CredentialsOmit CredentialsMode = iota
	// CredentialsSameOrigin sends ambient credentials only to the page origin
	CredentialsSameOrigin
	// CredentialsInclude sends ambient credentials on every hop
	CredentialsInclude
)

// String returns the mode name
func (m CredentialsMode) String() string {
	switch m {
	case CredentialsSameOrigin:
		return "same-origin"
	case CredentialsInclude:
		return "include"
	default:
		return "omit"
	}
}

// Primitive selects which request primitive of the execution context is used
type Primitive int

const (
	// PrimitiveFetch is the high-level request primitive
	PrimitiveFetch Primitive = iota
	// PrimitiveLowLevel is the low-level request object, which carries cookies
	// across redirects more permissively
	PrimitiveLowLevel
)

// ResponseType mirrors how the execution context exposes a response
type ResponseType string

// Response types
const (
	ResponseBasic  ResponseType = "basic"
	ResponseCORS   ResponseType = "cors"
	ResponseOpaque ResponseType = "opaque"
	ResponseError  ResponseType = "error"
)

// Request is a single network request issued through a NetworkExecutor
type Request struct {
	URL         string
	Headers     map[string]string
	Credentials CredentialsMode
	Primitive   Primitive
}

// Response is the fully buffered outcome of a Request.
// Opaque responses carry no status and no body.
type Response struct {
	Status      int
	Type        ResponseType
	ContentType string
	FinalURL    string
	Body        []byte
}

// OK returns true for a readable 2xx response
func (r *Response) OK() bool {
	if r == nil || r.Type == ResponseOpaque || r.Type == ResponseError {
		return false
	}
	return r.Status >= 200 && r.Status < 300
}

// IsOpaque returns true when the body was withheld by cross-origin policy
func (r *Response) IsOpaque() bool {
	return r != nil && r.Type == ResponseOpaque
}

// NetworkExecutor is the capability to issue requests from one execution context.
// A returned error means a transport-level failure; HTTP failures and opaque
// responses are reported through Response.
type NetworkExecutor interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}
