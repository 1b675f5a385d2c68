package domain

import (
	"errors"
	"testing"
)

func TestResourceDescriptor_NetworkURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.atlassian.net/secure/attachment/1/a.pdf", false},
		{"http://localhost:8080/file", false},
		{"HTTPS://example.com/x", false},
		{"blob:https://example.com/123", true},
		{"data:text/plain;base64,SGk=", true},
		{"/relative/path", true},
		{"ftp://example.com/file", true},
		{"https://", true},
		{"://bad", true},
	}

	for _, tt := range tests {
		r := ResourceDescriptor{URL: tt.url}
		_, err := r.NetworkURL()
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("NetworkURL(%q): expected ErrInvalidURL, got %v", tt.url, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NetworkURL(%q): unexpected error %v", tt.url, err)
		}
	}
}

func TestResourceDescriptor_IsAPIPath(t *testing.T) {
	api := ResourceDescriptor{URL: "https://x.atlassian.net/rest/api/3/attachment/content/10001"}
	if !api.IsAPIPath() {
		t.Error("expected REST path to be an API path")
	}

	page := ResourceDescriptor{URL: "https://x.atlassian.net/secure/attachment/10001/a.png"}
	if page.IsAPIPath() {
		t.Error("expected attachment page path not to be an API path")
	}
}

func TestResourceDescriptor_DisplayName(t *testing.T) {
	tests := []struct {
		desc ResourceDescriptor
		want string
	}{
		{ResourceDescriptor{URL: "https://x/a/b.pdf", SuggestedName: "given.pdf"}, "given.pdf"},
		{ResourceDescriptor{URL: "https://x/a/my%20file.pdf"}, "my file.pdf"},
		{ResourceDescriptor{URL: "https://x/"}, ""},
		{ResourceDescriptor{URL: "https://x"}, ""},
	}

	for _, tt := range tests {
		if got := tt.desc.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.desc.URL, got, tt.want)
		}
	}
}

func TestResourceDescriptor_Flags(t *testing.T) {
	r := ResourceDescriptor{URL: "https://x/a"}
	if r.HasAuthHeader() || r.HasSourceHandle() {
		t.Error("expected no auth header and no source handle")
	}

	r.AuthHeader = "Basic abc"
	r.SourceHandle = "preview-1"
	if !r.HasAuthHeader() || !r.HasSourceHandle() {
		t.Error("expected auth header and source handle")
	}
}
