package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/vertextoedge/issue-exporter/internal/domain"
	"github.com/vertextoedge/issue-exporter/internal/port"
)

// Ensure Store implements port.JobRepository
var _ port.JobRepository = (*Store)(nil)

// CreateJob stores a new job
func (s *Store) CreateJob(job *domain.ExportJob) error {
	if job.ID == "" {
		return fmt.Errorf("%w: job id is required", domain.ErrInvalidInput)
	}

	_, err := s.db.Exec(`
		INSERT INTO export_jobs (id, issue_key, source_url, started_at)
		VALUES (?, ?, ?, ?)
	`, job.ID, job.IssueKey, job.SourceURL, job.StartedAt.UTC())
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FinishJob stores the outcome of a job together with its entries
func (s *Store) FinishJob(job *domain.ExportJob) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var finishedAt any
	if job.FinishedAt != nil {
		finishedAt = job.FinishedAt.UTC()
	}

	result, err := tx.Exec(`
		UPDATE export_jobs
		SET finished_at = ?, downloaded = ?, failed = ?
		WHERE id = ?
	`, finishedAt, job.Downloaded, job.Failed, job.ID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	// Replace any entries recorded by an earlier call
	if _, err := tx.Exec(`DELETE FROM attachments WHERE job_id = ?`, job.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM skipped_attachments WHERE job_id = ?`, job.ID); err != nil {
		return err
	}

	for _, e := range job.Entries {
		_, err := tx.Exec(`
			INSERT INTO attachments (job_id, seq, name, archive_path, source_url, size, content_type, strategy)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, job.ID, e.ID, e.Name, e.ArchivePath, e.SourceURL, e.Size, e.ContentType, e.Strategy)
		if err != nil {
			return fmt.Errorf("failed to insert attachment %s: %w", e.ID, err)
		}
	}

	for _, sk := range job.Skipped {
		_, err := tx.Exec(`
			INSERT INTO skipped_attachments (job_id, url, name, reason)
			VALUES (?, ?, ?, ?)
		`, job.ID, sk.URL, sk.Name, sk.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert skipped attachment: %w", err)
		}
	}

	return tx.Commit()
}

// GetJob loads a job with its entries and skipped resources
func (s *Store) GetJob(id string) (*domain.ExportJob, error) {
	job, err := scanJob(s.db.QueryRow(`
		SELECT id, issue_key, source_url, started_at, finished_at, downloaded, failed
		FROM export_jobs
		WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT seq, name, archive_path, source_url, size, content_type, strategy
		FROM attachments
		WHERE job_id = ?
		ORDER BY CAST(seq AS INTEGER), seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.ArchiveEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.ArchivePath, &e.SourceURL, &e.Size, &e.ContentType, &e.Strategy); err != nil {
			return nil, err
		}
		job.Entries = append(job.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	skipped, err := s.db.Query(`
		SELECT url, name, reason
		FROM skipped_attachments
		WHERE job_id = ?
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer skipped.Close()

	for skipped.Next() {
		var sk domain.SkippedResource
		if err := skipped.Scan(&sk.URL, &sk.Name, &sk.Reason); err != nil {
			return nil, err
		}
		job.Skipped = append(job.Skipped, sk)
	}
	return job, skipped.Err()
}

// ListJobs returns the most recent jobs without entries
func (s *Store) ListJobs(limit int) ([]*domain.ExportJob, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, issue_key, source_url, started_at, finished_at, downloaded, failed
		FROM export_jobs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ExportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.ExportJob, error) {
	job := &domain.ExportJob{}
	var finishedAt sql.NullTime

	if err := row.Scan(&job.ID, &job.IssueKey, &job.SourceURL, &job.StartedAt, &finishedAt, &job.Downloaded, &job.Failed); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}
	return job, nil
}
