package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"go.uber.org/zap"
)

// ErrAuthRejected is returned when the site rejects the configured credentials
var ErrAuthRejected = errors.New("jira rejected credentials")

// Client calls the Jira REST API through the privileged fetcher, which is not
// subject to the page's origin restrictions.
type Client struct {
	baseURL    *url.URL
	authHeader string
	fetcher    port.PrivilegedFetcher
	logger     *zap.Logger
}

var (
	_ port.Discoverer      = (*Client)(nil)
	_ port.IdentityChecker = (*Client)(nil)
)

// NewClient creates a new Client. authHeader is a preformatted Authorization
// value and may be empty, in which case only the session cookies apply.
func NewClient(baseURL, authHeader string, fetcher port.PrivilegedFetcher, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: base url %q", domain.ErrInvalidURL, baseURL)
	}

	return &Client{
		baseURL:    u,
		authHeader: authHeader,
		fetcher:    fetcher,
		logger:     logger,
	}, nil
}

// BaseURL returns the site root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) apiURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

// getJSON performs a one-shot GET and decodes the JSON body into v
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	headers := map[string]string{"Accept": "application/json"}
	if c.authHeader != "" {
		headers["Authorization"] = c.authHeader
	}

	result, err := c.fetcher.FetchOnce(ctx, port.OneShotRequest{URL: rawURL, Headers: headers})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !result.Success {
		switch result.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: HTTP %d", ErrAuthRejected, result.Status)
		case http.StatusNotFound:
			return domain.ErrNotFound
		case 0:
			return fmt.Errorf("request failed: %s", result.Error)
		default:
			return domain.NewStatusError(result.Status)
		}
	}

	body, err := result.Payload()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Myself returns the account the credentials authenticate as
func (c *Client) Myself(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, c.apiURL("/rest/api/3/myself", nil), &user); err != nil {
		return nil, fmt.Errorf("identity check failed: %w", err)
	}
	return &user, nil
}

// IssueAttachments lists the attachments of an issue
func (c *Client) IssueAttachments(ctx context.Context, issueKey string) ([]Attachment, error) {
	if issueKey == "" {
		return nil, fmt.Errorf("%w: empty issue key", domain.ErrInvalidInput)
	}

	var issue issueResponse
	query := url.Values{"fields": {"attachment,summary"}}
	if err := c.getJSON(ctx, c.apiURL("/rest/api/3/issue/"+url.PathEscape(issueKey), query), &issue); err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", issueKey, err)
	}

	c.logger.Debug("issue loaded",
		zap.String("issue", issue.Key),
		zap.Int("attachments", len(issue.Fields.Attachment)))
	return issue.Fields.Attachment, nil
}

// Discover lists the attachments of the issue identified by source, which is
// either an issue key or an issue URL (/browse/KEY).
func (c *Client) Discover(ctx context.Context, source string) ([]domain.ResourceDescriptor, error) {
	key := IssueKeyFromSource(source)
	attachments, err := c.IssueAttachments(ctx, key)
	if err != nil {
		return nil, err
	}

	descs := make([]domain.ResourceDescriptor, 0, len(attachments))
	for _, a := range attachments {
		if a.Content == "" {
			continue
		}
		descs = append(descs, domain.ResourceDescriptor{
			URL:           a.Content,
			SuggestedName: a.Filename,
			AuthHeader:    c.authHeader,
		})
	}
	return descs, nil
}

// IssueKeyFromSource extracts the issue key from a /browse/KEY URL, or returns
// source unchanged.
func IssueKeyFromSource(source string) string {
	source = strings.TrimSpace(source)
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return source
	}
	if _, key, ok := strings.Cut(u.Path, "/browse/"); ok {
		key, _, _ = strings.Cut(key, "/")
		return key
	}
	if key := u.Query().Get("selectedIssue"); key != "" {
		return key
	}
	return source
}

// CheckIdentity reports who the credentials authenticate as
func (c *Client) CheckIdentity(ctx context.Context) (string, error) {
	user, err := c.Myself(ctx)
	if err != nil {
		return "", err
	}
	if user.EmailAddress == "" {
		return user.DisplayName, nil
	}
	return fmt.Sprintf("%s (%s)", user.EmailAddress, user.DisplayName), nil
}
