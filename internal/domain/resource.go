package domain

import (
	"net/url"
	"path"
	"strings"
)

// ResourceDescriptor identifies one fetchable binary attachment.
type ResourceDescriptor struct {
	URL           string
	SuggestedName string

	// AuthHeader is a preformatted Authorization value; empty means none.
	AuthHeader string

	// SourceHandle refers to a locally materialized copy of the resource
	// (for example a rendered preview); empty means none.
	SourceHandle string
}

// HasAuthHeader reports whether an explicit Authorization value was supplied
func (r ResourceDescriptor) HasAuthHeader() bool {
	return r.AuthHeader != ""
}

// HasSourceHandle reports whether a local handle was supplied
func (r ResourceDescriptor) HasSourceHandle() bool {
	return r.SourceHandle != ""
}

// NetworkURL parses URL and returns it only when it is an absolute http(s) URL.
func (r ResourceDescriptor) NetworkURL() (*url.URL, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, ErrInvalidURL
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, nil
	default:
		return nil, ErrInvalidURL
	}
}

// IsAPIPath reports whether the URL targets a REST API path, where an
// explicit Authorization header is accepted.
func (r ResourceDescriptor) IsAPIPath() bool {
	u, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, "/rest/api/")
}

// DisplayName returns SuggestedName, falling back to the last URL path segment.
func (r ResourceDescriptor) DisplayName() string {
	if r.SuggestedName != "" {
		return r.SuggestedName
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Path == "" {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}
