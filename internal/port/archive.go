package port

import (
	"context"

	"github.com/vertextoedge/issue-exporter/internal/domain"
)

// ArchiveSink receives downloaded attachments for the archive assembler.
// entry.ArchivePath is relative to the archive root and unique within it.
type ArchiveSink interface {
	Put(ctx context.Context, entry domain.ArchiveEntry, payload []byte) error
}

// Discoverer lists the resources attached to a source document
type Discoverer interface {
	Discover(ctx context.Context, source string) ([]domain.ResourceDescriptor, error)
}

// LocalHandleResolver materializes bytes from an in-process source handle
type LocalHandleResolver interface {
	// Materialize returns the payload and its content type, or
	// domain.ErrNotFound when the handle is unknown.
	Materialize(ctx context.Context, handle string) ([]byte, string, error)
}

// IdentityChecker verifies that the configured credentials are accepted
type IdentityChecker interface {
	// CheckIdentity returns a description of the authenticated account
	CheckIdentity(ctx context.Context) (string, error)
}
