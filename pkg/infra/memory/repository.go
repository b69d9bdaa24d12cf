package memory

import (
	"context"
	"sync"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
)

// Repository keeps fetch jobs in process memory. Jobs are lost on restart.
type Repository struct {
	mu   sync.RWMutex
	jobs map[types.JobID]*model.FetchJob
}

var _ interfaces.JobRepository = (*Repository)(nil)

// New creates an empty Repository
func New() *Repository {
	return &Repository{
		jobs: map[types.JobID]*model.FetchJob{},
	}
}

func (r *Repository) PutJob(ctx context.Context, job *model.FetchJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Copy()
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id types.JobID) (*model.FetchJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return job.Copy(), nil
}
