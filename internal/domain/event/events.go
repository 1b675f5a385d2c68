package event

import (
	"time"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// Event names
const (
	NameAttachmentDownloaded = "attachment.downloaded"
	NameAttachmentSkipped    = "attachment.skipped"
	NameBatchCompleted       = "batch.completed"
)

// AttachmentDownloaded is raised when a resource was retrieved and archived
type AttachmentDownloaded struct {
	BaseEvent
	ID          string
	URL         string
	Name        string
	ArchivePath string
	Size        int64
	Strategy    string
	Duration    time.Duration
}

// EventName returns the event name
func (e AttachmentDownloaded) EventName() string {
	return NameAttachmentDownloaded
}

// NewAttachmentDownloaded creates a new AttachmentDownloaded event
func NewAttachmentDownloaded(id, url, name, archivePath string, size int64, strategy string, duration time.Duration) AttachmentDownloaded {
	return AttachmentDownloaded{
		BaseEvent:   BaseEvent{Timestamp: time.Now()},
		ID:          id,
		URL:         url,
		Name:        name,
		ArchivePath: archivePath,
		Size:        size,
		Strategy:    strategy,
		Duration:    duration,
	}
}

// AttachmentSkipped is raised when every strategy failed for a resource
type AttachmentSkipped struct {
	BaseEvent
	URL    string
	Name   string
	Reason string
}

// EventName returns the event name
func (e AttachmentSkipped) EventName() string {
	return NameAttachmentSkipped
}

// NewAttachmentSkipped creates a new AttachmentSkipped event
func NewAttachmentSkipped(url, name, reason string) AttachmentSkipped {
	return AttachmentSkipped{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		URL:       url,
		Name:      name,
		Reason:    reason,
	}
}

// BatchCompleted is raised when the coordinator finished all resources
type BatchCompleted struct {
	BaseEvent
	Downloaded int
	Failed     int
	Duplicates int
	Duration   time.Duration
}

// EventName returns the event name
func (e BatchCompleted) EventName() string {
	return NameBatchCompleted
}

// NewBatchCompleted creates a new BatchCompleted event
func NewBatchCompleted(downloaded, failed, duplicates int, duration time.Duration) BatchCompleted {
	return BatchCompleted{
		BaseEvent:  BaseEvent{Timestamp: time.Now()},
		Downloaded: downloaded,
		Failed:     failed,
		Duplicates: duplicates,
		Duration:   duration,
	}
}
