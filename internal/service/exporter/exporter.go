package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
	"go.uber.org/zap"
)

// BatchRunner downloads a list of resources into the archive
type BatchRunner interface {
	Run(ctx context.Context, resources []domain.ResourceDescriptor) (*domain.BatchReport, error)
}

// Service runs one export: credential probe, discovery, batch download and
// the job record.
type Service struct {
	identity   port.IdentityChecker
	discoverer port.Discoverer
	batch      BatchRunner
	jobs       port.JobRepository
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a new Service. identity and jobs may be nil to skip the
// credential probe and job persistence.
func New(
	identity port.IdentityChecker,
	discoverer port.Discoverer,
	batch BatchRunner,
	jobs port.JobRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		identity:   identity,
		discoverer: discoverer,
		batch:      batch,
		jobs:       jobs,
		logger:     logger,
		now:        time.Now,
	}
}

// Run exports the attachments of source. Individual attachment failures are
// reported in the job and do not fail the export; a cancelled ctx returns the
// partially finished job together with the context error.
func (s *Service) Run(ctx context.Context, issueKey, source string) (*domain.ExportJob, error) {
	if s.identity != nil {
		who, err := s.identity.CheckIdentity(ctx)
		if err != nil {
			return nil, fmt.Errorf("credential check failed: %w", err)
		}
		s.logger.Info("authenticated", zap.String("account", who))
	}

	resources, err := s.discoverer.Discover(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to discover attachments: %w", err)
	}

	job := &domain.ExportJob{
		ID:        uuid.NewString(),
		IssueKey:  issueKey,
		SourceURL: source,
		StartedAt: s.now(),
	}
	if s.jobs != nil {
		if err := s.jobs.CreateJob(job); err != nil {
			return nil, fmt.Errorf("failed to record job: %w", err)
		}
	}

	logger := s.logger.With(zap.String("job_id", job.ID))
	logger.Info("export started",
		zap.String("issue", issueKey),
		zap.Int("attachments", len(resources)))

	report, runErr := s.batch.Run(ctx, resources)
	job.Finish(report, s.now())

	if s.jobs != nil {
		if err := s.jobs.FinishJob(job); err != nil {
			logger.Error("failed to record job outcome", zap.Error(err))
			if runErr == nil {
				runErr = fmt.Errorf("failed to record job outcome: %w", err)
			}
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return job, runErr
	}

	logger.Info("export finished",
		zap.Int("downloaded", job.Downloaded),
		zap.Int("failed", job.Failed),
		zap.Duration("duration", job.FinishedAt.Sub(job.StartedAt)))
	return job, runErr
}
