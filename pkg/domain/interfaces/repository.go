package interfaces

import (
	"context"

	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
)

// JobRepository persists fetch jobs
type JobRepository interface {
	// PutJob creates or replaces a job
	PutJob(ctx context.Context, job *model.FetchJob) error

	// GetJob returns the job, or nil without error if it does not exist
	GetJob(ctx context.Context, id types.JobID) (*model.FetchJob, error)
}
