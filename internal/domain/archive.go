package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

// DefaultAttachmentName is used when no usable name can be derived
const DefaultAttachmentName = "attachment"

// ArchiveEntry describes one file placed in the archive's attachment directory
type ArchiveEntry struct {
	ID          string
	Name        string
	ArchivePath string
	SourceURL   string
	Size        int64
	ContentType string
	Strategy    string
}

// SkippedResource records a resource for which every strategy failed
type SkippedResource struct {
	URL    string
	Name   string
	Reason string
}

// BatchReport is the outcome of one batch download run
type BatchReport struct {
	Entries  []ArchiveEntry
	Skipped  []SkippedResource
	Failures int
}

// Downloaded returns the number of files placed in the archive
func (r *BatchReport) Downloaded() int {
	return len(r.Entries)
}

// ExportJob is the persisted record of one extraction run
type ExportJob struct {
	ID         string
	IssueKey   string
	SourceURL  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Downloaded int
	Failed     int
	Entries    []ArchiveEntry
	Skipped    []SkippedResource
}

// Finish copies the batch outcome into the job
func (j *ExportJob) Finish(report *BatchReport, at time.Time) {
	j.FinishedAt = &at
	if report == nil {
		return
	}
	j.Downloaded = report.Downloaded()
	j.Failed = report.Failures
	j.Entries = report.Entries
	j.Skipped = report.Skipped
}

// SanitizeFileName replaces path separators and reserved characters, drops
// control characters and trailing dots or spaces so the result is safe as a
// single archive path element. Leading dots are kept.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimRight(strings.TrimSpace(b.String()), ". ")
	if cleaned == "" {
		return DefaultAttachmentName
	}
	return cleaned
}

// NameAllocator hands out collision-free file names within one directory.
// Comparison is case-insensitive so the names survive case-folding filesystems.
type NameAllocator struct {
	used map[string]struct{}
}

// NewNameAllocator creates an empty allocator
func NewNameAllocator() *NameAllocator {
	return &NameAllocator{used: make(map[string]struct{})}
}

// Allocate sanitizes name and appends " (n)" before the extension until unique
func (a *NameAllocator) Allocate(name string) string {
	name = SanitizeFileName(name)
	if a.claim(name) {
		return name
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if a.claim(candidate) {
			return candidate
		}
	}
}

func (a *NameAllocator) claim(name string) bool {
	key := strings.ToLower(name)
	if _, taken := a.used[key]; taken {
		return false
	}
	a.used[key] = struct{}{}
	return true
}
