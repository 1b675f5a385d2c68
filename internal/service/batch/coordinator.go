package batch

import (
	"context"
	"errors"
	"path"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/domain/event"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"github.com/vertextoedge/issue-exporter/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// Downloader retrieves a single resource
type Downloader interface {
	Download(ctx context.Context, desc domain.ResourceDescriptor) (*domain.DownloadResult, error)
}

// Config contains batch coordinator configuration
type Config struct {
	// AttachmentDir is the archive directory attachments are placed in
	AttachmentDir string

	// MinInterval is the minimum time between the start of two downloads
	MinInterval time.Duration
}

// DefaultConfig returns default batch configuration
func DefaultConfig() *Config {
	return &Config{
		AttachmentDir: "attachments",
		MinInterval:   200 * time.Millisecond,
	}
}

// Coordinator downloads a list of resources one at a time and hands every
// retrieved payload to the archive sink.
type Coordinator struct {
	config     *Config
	downloader Downloader
	sink       port.ArchiveSink
	limiter    *ratelimiter.Limiter
	dispatcher event.EventDispatcher
	logger     *zap.Logger
}

// New creates a new Coordinator. dispatcher may be nil.
func New(
	cfg *Config,
	downloader Downloader,
	sink port.ArchiveSink,
	dispatcher event.EventDispatcher,
	logger *zap.Logger,
) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.AttachmentDir == "" {
		cfg.AttachmentDir = "attachments"
	}
	if dispatcher == nil {
		dispatcher = event.NullDispatcher{}
	}

	return &Coordinator{
		config:     cfg,
		downloader: downloader,
		sink:       sink,
		limiter:    ratelimiter.New(cfg.MinInterval),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Run processes resources strictly sequentially: resource n+1 is not started
// before the result of resource n is final. A resource for which every
// strategy fails is recorded and skipped. If ctx is cancelled the partial
// report is returned together with ctx.Err().
func (c *Coordinator) Run(ctx context.Context, resources []domain.ResourceDescriptor) (*domain.BatchReport, error) {
	start := time.Now()
	unique := lo.UniqBy(resources, func(r domain.ResourceDescriptor) string {
		return r.URL
	})
	duplicates := len(resources) - len(unique)

	c.limiter.Reset()
	c.logger.Info("batch started",
		zap.Int("resources", len(unique)),
		zap.Int("duplicates", duplicates),
		zap.Duration("min_interval", c.limiter.Interval()))

	report := &domain.BatchReport{}
	names := domain.NewNameAllocator()

	for _, desc := range unique {
		if err := c.pace(ctx); err != nil {
			return report, err
		}

		if err := c.process(ctx, desc, names, report); err != nil {
			return report, err
		}
	}

	var total int64
	for _, e := range report.Entries {
		total += e.Size
	}
	c.dispatcher.Dispatch(event.NewBatchCompleted(report.Downloaded(), report.Failures, duplicates, time.Since(start)))
	c.logger.Debug("batch totals",
		zap.Int("entries", len(report.Entries)),
		zap.String("total_size", humanize.Bytes(uint64(total))))

	return report, nil
}

// pace blocks until the next download may start
func (c *Coordinator) pace(ctx context.Context) error {
	ok, delay := c.limiter.Allow()
	if ok {
		return nil
	}
	c.logger.Debug("pacing next download", zap.Duration("delay", delay))
	return c.limiter.Wait(ctx)
}

// process handles one resource. It only returns an error when the batch
// must stop.
func (c *Coordinator) process(ctx context.Context, desc domain.ResourceDescriptor, names *domain.NameAllocator, report *domain.BatchReport) error {
	started := time.Now()
	result, err := c.downloader.Download(ctx, desc)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.skip(desc, report, err)
		return nil
	}

	name := names.Allocate(result.Name)
	entry := domain.ArchiveEntry{
		ID:          strconv.Itoa(report.Downloaded() + 1),
		Name:        name,
		ArchivePath: path.Join(c.config.AttachmentDir, name),
		SourceURL:   desc.URL,
		Size:        result.Size(),
		ContentType: result.ContentType,
		Strategy:    result.Strategy,
	}

	if err := c.sink.Put(ctx, entry, result.Payload); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		c.skip(desc, report, domain.NewSkippableError(err, "archive "+entry.ArchivePath))
		return nil
	}

	report.Entries = append(report.Entries, entry)
	c.dispatcher.Dispatch(event.NewAttachmentDownloaded(
		entry.ID, desc.URL, entry.Name, entry.ArchivePath, entry.Size, entry.Strategy, time.Since(started)))
	return nil
}

func (c *Coordinator) skip(desc domain.ResourceDescriptor, report *domain.BatchReport, err error) {
	skipped := domain.SkippedResource{
		URL:    desc.URL,
		Name:   desc.DisplayName(),
		Reason: err.Error(),
	}
	report.Failures++
	report.Skipped = append(report.Skipped, skipped)
	c.dispatcher.Dispatch(event.NewAttachmentSkipped(skipped.URL, skipped.Name, skipped.Reason))
}
