package jira

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/transfer"
	"go.uber.org/zap"
)

// cannedFetcher answers one-shot requests by URL path
type cannedFetcher struct {
	bodies   map[string]string
	statuses map[string]int
	requests []port.OneShotRequest
}

func (f *cannedFetcher) FetchOnce(_ context.Context, req port.OneShotRequest) (*port.OneShotResult, error) {
	f.requests = append(f.requests, req)
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}
	if status, ok := f.statuses[u.Path]; ok {
		return &port.OneShotResult{Success: false, Status: status, Error: "HTTP error"}, nil
	}
	body, ok := f.bodies[u.Path]
	if !ok {
		return &port.OneShotResult{Success: false, Status: 404, Error: "HTTP 404"}, nil
	}
	return &port.OneShotResult{
		Success: true,
		Data:    base64.StdEncoding.EncodeToString([]byte(body)),
		Size:    int64(len(body)),
		Status:  200,
	}, nil
}

func (f *cannedFetcher) OpenChannel(context.Context) (transfer.Conn, error) {
	return nil, errors.New("not supported")
}

const issueJSON = `{
  "id": "10042",
  "key": "PROJ-518",
  "fields": {
    "summary": "Broken export",
    "attachment": [
      {"id": "1", "filename": "report.pdf", "content": "https://site.example/rest/api/3/attachment/content/1", "mimeType": "application/pdf", "size": 2048},
      {"id": "2", "filename": "screen shot.png", "content": "https://site.example/rest/api/3/attachment/content/2", "mimeType": "image/png", "size": 512},
      {"id": "3", "filename": "ghost.txt", "content": ""}
    ]
  }
}`

func TestClient_Myself(t *testing.T) {
	f := &cannedFetcher{bodies: map[string]string{
		"/rest/api/3/myself": `{"accountId":"abc","emailAddress":"dev@example.com","displayName":"Dev"}`,
	}}
	c, err := NewClient("https://site.example/", "Basic Zm9vOmJhcg==", f, zap.NewNop())
	require.NoError(t, err)

	user, err := c.Myself(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.EmailAddress)
	assert.Equal(t, "Dev", user.DisplayName)

	require.Len(t, f.requests, 1)
	assert.Equal(t, "https://site.example/rest/api/3/myself", f.requests[0].URL)
	assert.Equal(t, "Basic Zm9vOmJhcg==", f.requests[0].Headers["Authorization"])
	assert.Equal(t, "application/json", f.requests[0].Headers["Accept"])

	who, err := c.CheckIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com (Dev)", who)
}

func TestClient_MyselfRejected(t *testing.T) {
	f := &cannedFetcher{statuses: map[string]int{"/rest/api/3/myself": 401}}
	c, err := NewClient("https://site.example", "Basic bad", f, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Myself(context.Background())
	assert.ErrorIs(t, err, ErrAuthRejected)
}

func TestClient_Discover(t *testing.T) {
	f := &cannedFetcher{bodies: map[string]string{"/rest/api/3/issue/PROJ-518": issueJSON}}
	c, err := NewClient("https://site.example", "Basic x", f, zap.NewNop())
	require.NoError(t, err)

	for _, source := range []string{"PROJ-518", "https://site.example/browse/PROJ-518"} {
		descs, err := c.Discover(context.Background(), source)
		require.NoError(t, err, source)
		require.Len(t, descs, 2)
		assert.Equal(t, "report.pdf", descs[0].SuggestedName)
		assert.Equal(t, "https://site.example/rest/api/3/attachment/content/1", descs[0].URL)
		assert.Equal(t, "Basic x", descs[0].AuthHeader)
		assert.True(t, descs[0].IsAPIPath())
		assert.Equal(t, "screen shot.png", descs[1].SuggestedName)
	}

	assert.Contains(t, f.requests[0].URL, "fields=attachment%2Csummary")
}

func TestClient_DiscoverMissingIssue(t *testing.T) {
	c, err := NewClient("https://site.example", "", &cannedFetcher{}, zap.NewNop())
	require.NoError(t, err)

	_, err = c.Discover(context.Background(), "NOPE-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient("site.example", "", &cannedFetcher{}, zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestIssueKeyFromSource(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"PROJ-1", "PROJ-1"},
		{" PROJ-2 ", "PROJ-2"},
		{"https://site.example/browse/PROJ-3", "PROJ-3"},
		{"https://site.example/browse/PROJ-4/extra", "PROJ-4"},
		{"https://site.example/jira/software/projects/PROJ/boards/1?selectedIssue=PROJ-5", "PROJ-5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IssueKeyFromSource(tt.source), tt.source)
	}
}

const pageHTML = `<html><body>
<div id="attachmentmodule">
  <a href="/secure/attachment/100/report.pdf" title="report.pdf">report.pdf</a>
  <a href="/secure/attachment/101/diagram%20v2.png"><img src="/secure/thumbnail/101/diagram.png"></a>
  <a href="https://site.example/secure/attachment/100/report.pdf#preview">again</a>
  <a href="/browse/PROJ-9">linked issue</a>
  <img src="/secure/attachment/102/inline.gif" alt="inline.gif">
</div>
</body></html>`

func TestParseAttachmentLinks(t *testing.T) {
	base, _ := url.Parse("https://site.example/browse/PROJ-1")
	descs, err := ParseAttachmentLinks(strings.NewReader(pageHTML), base)
	require.NoError(t, err)

	require.Len(t, descs, 3)
	assert.Equal(t, "https://site.example/secure/attachment/100/report.pdf", descs[0].URL)
	assert.Equal(t, "report.pdf", descs[0].SuggestedName)
	assert.Equal(t, "https://site.example/secure/attachment/101/diagram%20v2.png", descs[1].URL)
	assert.Equal(t, "diagram v2.png", descs[1].SuggestedName)
	assert.Equal(t, "https://site.example/secure/attachment/102/inline.gif", descs[2].URL)
	assert.Equal(t, "inline.gif", descs[2].SuggestedName)
}

func TestPageDiscoverer(t *testing.T) {
	f := &cannedFetcher{bodies: map[string]string{"/browse/PROJ-1": pageHTML}}
	d := NewPageDiscoverer(f, zap.NewNop())

	descs, err := d.Discover(context.Background(), "https://site.example/browse/PROJ-1")
	require.NoError(t, err)
	assert.Len(t, descs, 3)
	assert.Empty(t, descs[0].AuthHeader)

	_, err = d.Discover(context.Background(), "/browse/PROJ-1")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}
