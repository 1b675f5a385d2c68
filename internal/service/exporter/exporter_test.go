package exporter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vertextoedge/issue-exporter/internal/domain"
	"go.uber.org/zap"
)

type fakeIdentity struct {
	err   error
	calls int
}

func (f *fakeIdentity) CheckIdentity(context.Context) (string, error) {
	f.calls++
	return "dev@example.com (Dev)", f.err
}

type fakeDiscoverer struct {
	resources []domain.ResourceDescriptor
	source    string
}

func (f *fakeDiscoverer) Discover(_ context.Context, source string) ([]domain.ResourceDescriptor, error) {
	f.source = source
	return f.resources, nil
}

type fakeBatch struct {
	report *domain.BatchReport
	err    error
	got    []domain.ResourceDescriptor
}

func (f *fakeBatch) Run(_ context.Context, resources []domain.ResourceDescriptor) (*domain.BatchReport, error) {
	f.got = resources
	return f.report, f.err
}

// memoryJobs is an in-memory JobRepository
type memoryJobs struct {
	jobs     map[string]domain.ExportJob
	finished int
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[string]domain.ExportJob)}
}

func (m *memoryJobs) CreateJob(job *domain.ExportJob) error {
	if _, ok := m.jobs[job.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memoryJobs) FinishJob(job *domain.ExportJob) error {
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	m.jobs[job.ID] = *job
	m.finished++
	return nil
}

func (m *memoryJobs) GetJob(id string) (*domain.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *memoryJobs) ListJobs(int) ([]*domain.ExportJob, error) { return nil, nil }
func (m *memoryJobs) Ping() error { return nil }

func TestRun(t *testing.T) {
	identity := &fakeIdentity{}
	discoverer := &fakeDiscoverer{resources: []domain.ResourceDescriptor{{URL: "https://x/a"}, {URL: "https://x/b"}}}
	batch := &fakeBatch{report: &domain.BatchReport{
		Entries:  []domain.ArchiveEntry{{ID: "1", Name: "a"}},
		Skipped:  []domain.SkippedResource{{URL: "https://x/b", Reason: "all download strategies failed"}},
		Failures: 1,
	}}
	jobs := newMemoryJobs()

	job, err := New(identity, discoverer, batch, jobs, zap.NewNop()).Run(context.Background(), "PROJ-1", "https://site/browse/PROJ-1")
	require.NoError(t, err)

	assert.Equal(t, 1, identity.calls)
	assert.Equal(t, "https://site/browse/PROJ-1", discoverer.source)
	assert.Len(t, batch.got, 2)
	assert.Equal(t, 1, job.Downloaded)
	assert.Equal(t, 1, job.Failed)
	require.NotNil(t, job.FinishedAt)

	stored, err := jobs.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "PROJ-1", stored.IssueKey)
	assert.Equal(t, 1, jobs.finished)
}

func TestRun_IdentityRejected(t *testing.T) {
	identity := &fakeIdentity{err: errors.New("HTTP 401")}
	batch := &fakeBatch{}

	_, err := New(identity, &fakeDiscoverer{}, batch, nil, zap.NewNop()).Run(context.Background(), "PROJ-1", "PROJ-1")
	assert.ErrorContains(t, err, "credential check failed")
	assert.Nil(t, batch.got)
}

func TestRun_CancelledKeepsPartialJob(t *testing.T) {
	batch := &fakeBatch{
		report: &domain.BatchReport{Entries: []domain.ArchiveEntry{{ID: "1"}}},
		err:    context.Canceled,
	}
	jobs := newMemoryJobs()

	job, err := New(nil, &fakeDiscoverer{}, batch, jobs, zap.NewNop()).Run(context.Background(), "PROJ-1", "PROJ-1")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, job)
	assert.Equal(t, 1, job.Downloaded)
	assert.Equal(t, 1, jobs.finished)
}
