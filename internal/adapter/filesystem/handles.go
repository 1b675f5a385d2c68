package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/util/contenttype"
)

// HandleResolver materializes source handles that name files below a local
// directory, e.g. copies saved by an earlier run or by the browser.
type HandleResolver struct {
	dir string
}

var _ port.LocalHandleResolver = (*HandleResolver)(nil)

// NewHandleResolver creates a resolver for handles relative to dir
func NewHandleResolver(dir string) *HandleResolver {
	return &HandleResolver{dir: dir}
}

// Materialize reads the file named by handle. "file:" prefixes are accepted.
func (r *HandleResolver) Materialize(ctx context.Context, handle string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	name := strings.TrimPrefix(strings.TrimPrefix(handle, "file://"), "file:")
	name = filepath.Clean(filepath.FromSlash(strings.TrimLeft(name, "/")))
	if name == "." || name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return nil, "", fmt.Errorf("%w: handle %q", domain.ErrInvalidInput, handle)
	}

	payload, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read handle: %w", err)
	}
	return payload, contenttype.Resolve("", payload), nil
}
