package port

import (
	"github.com/vertextoedge/issue-exporter/internal/domain"
)

// JobRepository persists export job records
type JobRepository interface {
	// CreateJob stores a new job; job.ID must be set
	CreateJob(job *domain.ExportJob) error

	// FinishJob stores the outcome of a job together with its entries
	FinishJob(job *domain.ExportJob) error

	// GetJob loads a job with its entries and skipped resources
	// Returns domain.ErrNotFound if it does not exist
	GetJob(id string) (*domain.ExportJob, error)

	// ListJobs returns the most recent jobs without entries
	ListJobs(limit int) ([]*domain.ExportJob, error)

	// Ping checks storage connectivity
	Ping() error
}
