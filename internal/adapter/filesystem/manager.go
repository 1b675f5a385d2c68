package filesystem

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"go.uber.org/zap"
)

// tempSuffix marks files that are still being written
const tempSuffix = ".downloading"

// Archive stores attachments below a root directory, one file per entry.
// Files appear under their final name only once completely written.
type Archive struct {
	rootDir      string
	minFreeBytes uint64
	logger       *zap.Logger
}

// Ensure Archive implements port.ArchiveSink
var _ port.ArchiveSink = (*Archive)(nil)

// NewArchive creates a new filesystem archive. Writes are refused when the
// volume would drop below minFreeBytes; zero disables the check.
func NewArchive(rootDir string, minFreeBytes uint64, logger *zap.Logger) (*Archive, error) {
	// Ensure root directory exists
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive root dir: %w", err)
	}

	return &Archive{
		rootDir:      rootDir,
		minFreeBytes: minFreeBytes,
		logger:       logger,
	}, nil
}

// RootDir returns the archive root directory
func (a *Archive) RootDir() string {
	return a.rootDir
}

// LocalPath returns the filesystem path for an archive-relative path
func (a *Archive) LocalPath(archivePath string) (string, error) {
	if archivePath == "" {
		return "", domain.ErrEmptyArchiveName
	}
	cleaned := path.Clean(archivePath)
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: archive path %q escapes the archive root", domain.ErrInvalidInput, archivePath)
	}
	return filepath.Join(a.rootDir, filepath.FromSlash(cleaned)), nil
}

// Put writes payload to entry.ArchivePath
func (a *Archive) Put(ctx context.Context, entry domain.ArchiveEntry, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := a.LocalPath(entry.ArchivePath)
	if err != nil {
		return err
	}
	if err := a.checkSpace(uint64(len(payload))); err != nil {
		return err
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent dir: %w", err)
	}

	tempPath := target + tempSuffix
	if err := os.WriteFile(tempPath, payload, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	// Rename to final path
	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	a.logger.Debug("attachment stored",
		zap.String("path", entry.ArchivePath),
		zap.String("size", humanize.Bytes(uint64(len(payload)))))
	return nil
}

func (a *Archive) checkSpace(need uint64) error {
	if a.minFreeBytes == 0 {
		return nil
	}
	free, err := freeBytes(a.rootDir)
	if err != nil {
		return err
	}
	if free < need+a.minFreeBytes {
		return fmt.Errorf("not enough disk space: %s free, %s needed plus %s reserve",
			humanize.Bytes(free), humanize.Bytes(need), humanize.Bytes(a.minFreeBytes))
	}
	return nil
}

// CleanOldTempFiles removes temp files older than the specified duration,
// left behind by interrupted runs
func (a *Archive) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	err := filepath.Walk(a.rootDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(p, tempSuffix) && info.ModTime().Before(threshold) {
			if removeErr := os.Remove(p); removeErr == nil {
				count++
			}
		}
		return nil
	})
	return count, err
}
