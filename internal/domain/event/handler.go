package event

import (
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case AttachmentDownloaded:
		h.logger.Info("attachment downloaded",
			zap.String("id", e.ID),
			zap.String("name", e.Name),
			zap.String("archive_path", e.ArchivePath),
			zap.String("size", humanize.Bytes(uint64(e.Size))),
			zap.String("strategy", e.Strategy),
			zap.Duration("duration", e.Duration),
		)
	case AttachmentSkipped:
		h.logger.Warn("attachment skipped",
			zap.String("url", e.URL),
			zap.String("name", e.Name),
			zap.String("reason", e.Reason),
		)
	case BatchCompleted:
		h.logger.Info("batch completed",
			zap.Int("downloaded", e.Downloaded),
			zap.Int("failed", e.Failed),
			zap.Int("duplicates", e.Duplicates),
			zap.Duration("duration", e.Duration),
		)
	default:
		h.logger.Debug("domain event",
			zap.String("event", event.EventName()),
			zap.Time("occurred_at", event.OccurredAt()),
		)
	}
	return nil
}

// HandledEvents returns all events
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"}
}

// HandlerFunc adapts a function to EventHandler for a fixed set of event names
type HandlerFunc struct {
	Names []string
	Fn    func(event DomainEvent) error
}

// Handle calls Fn
func (f HandlerFunc) Handle(event DomainEvent) error {
	return f.Fn(event)
}

// HandledEvents returns Names
func (f HandlerFunc) HandledEvents() []string {
	return f.Names
}
