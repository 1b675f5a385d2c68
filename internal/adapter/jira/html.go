package jira

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"go.uber.org/zap"
)

// attachmentPathPrefix marks attachment download links in rendered issue pages
const attachmentPathPrefix = "/secure/attachment/"

// PageDiscoverer finds attachment links in a rendered issue page. It is used
// when the REST API is unavailable to the configured credentials.
type PageDiscoverer struct {
	fetcher port.PrivilegedFetcher
	logger  *zap.Logger
}

var _ port.Discoverer = (*PageDiscoverer)(nil)

// NewPageDiscoverer creates a new PageDiscoverer
func NewPageDiscoverer(fetcher port.PrivilegedFetcher, logger *zap.Logger) *PageDiscoverer {
	return &PageDiscoverer{fetcher: fetcher, logger: logger}
}

// Discover loads the page at source with the session cookies and returns its
// attachment links
func (d *PageDiscoverer) Discover(ctx context.Context, source string) ([]domain.ResourceDescriptor, error) {
	base, err := url.Parse(source)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidURL, source)
	}

	result, err := d.fetcher.FetchOnce(ctx, port.OneShotRequest{
		URL:     source,
		Headers: map[string]string{"Accept": "text/html"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load page: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("failed to load page: %s", result.Error)
	}
	body, err := result.Payload()
	if err != nil {
		return nil, err
	}

	descs, err := ParseAttachmentLinks(bytes.NewReader(body), base)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("page scanned", zap.String("url", source), zap.Int("attachments", len(descs)))
	return descs, nil
}

// ParseAttachmentLinks extracts attachment links (anchors and images pointing
// under /secure/attachment/) from an HTML document, resolved against base.
// The link text or title becomes the suggested name.
func ParseAttachmentLinks(r io.Reader, base *url.URL) ([]domain.ResourceDescriptor, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var descs []domain.ResourceDescriptor
	seen := make(map[string]bool)
	add := func(ref, name string) {
		u, err := base.Parse(strings.TrimSpace(ref))
		if err != nil || !strings.HasPrefix(u.Path, attachmentPathPrefix) {
			return
		}
		u.Fragment = ""
		abs := u.String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		descs = append(descs, domain.ResourceDescriptor{URL: abs, SuggestedName: name})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := s.AttrOr("data-attachment-name", "")
		if name == "" {
			name = s.AttrOr("title", "")
		}
		if name == "" && s.Find("img").Length() == 0 {
			name = strings.TrimSpace(s.Text())
		}
		add(href, nameOrBase(name, href))
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		add(src, nameOrBase(s.AttrOr("alt", ""), src))
	})

	return descs, nil
}

func nameOrBase(name, ref string) string {
	if name != "" {
		return name
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}
