package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"go.uber.org/zap"
)

func TestArchive_Put(t *testing.T) {
	root := t.TempDir()
	a, err := NewArchive(root, 0, zap.NewNop())
	require.NoError(t, err)

	entry := domain.ArchiveEntry{ID: "1", Name: "report.pdf", ArchivePath: "attachments/report.pdf"}
	require.NoError(t, a.Put(context.Background(), entry, []byte("%PDF-1.4")))

	got, err := os.ReadFile(filepath.Join(root, "attachments", "report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), got)

	_, err = os.Stat(filepath.Join(root, "attachments", "report.pdf"+tempSuffix))
	assert.True(t, os.IsNotExist(err))
}

func TestArchive_RejectsEscapingPaths(t *testing.T) {
	a, err := NewArchive(t.TempDir(), 0, zap.NewNop())
	require.NoError(t, err)

	for _, p := range []string{"../outside.txt", "/etc/passwd", "attachments/../../x", ".."} {
		err := a.Put(context.Background(), domain.ArchiveEntry{ArchivePath: p}, []byte("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, p)
	}

	err = a.Put(context.Background(), domain.ArchiveEntry{}, []byte("x"))
	assert.ErrorIs(t, err, domain.ErrEmptyArchiveName)
}

func TestArchive_ReserveCheck(t *testing.T) {
	a, err := NewArchive(t.TempDir(), 1<<62, zap.NewNop())
	require.NoError(t, err)

	err = a.Put(context.Background(), domain.ArchiveEntry{ArchivePath: "attachments/a"}, []byte("x"))
	assert.ErrorContains(t, err, "not enough disk space")
}

func TestArchive_CleanOldTempFiles(t *testing.T) {
	root := t.TempDir()
	a, err := NewArchive(root, 0, zap.NewNop())
	require.NoError(t, err)

	stale := filepath.Join(root, "old.bin"+tempSuffix)
	fresh := filepath.Join(root, "new.bin"+tempSuffix)
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	n, err := a.CleanOldTempFiles(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestHandleResolver(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.png"), png, 0644))
	r := NewHandleResolver(dir)

	for _, handle := range []string{"shot.png", "file:shot.png", "file:///shot.png"} {
		payload, contentType, err := r.Materialize(context.Background(), handle)
		require.NoError(t, err, handle)
		assert.Equal(t, png, payload)
		assert.Equal(t, "image/png", contentType)
	}

	_, _, err := r.Materialize(context.Background(), "missing.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = r.Materialize(context.Background(), "../secret")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
