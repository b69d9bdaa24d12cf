package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/infra/memory"
	"github.com/m-mizutani/gt"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	req := model.NewFetchRequest("https://example.com/data.zip", "/tmp/data")
	job := model.NewFetchJob(*req, time.Now())

	gt.NoError(t, repo.PutJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	gt.NoError(t, err)
	gt.Value(t, got).NotNil()
	gt.Value(t, got.ID).Equal(job.ID)
	gt.Value(t, got.Status).Equal(model.JobStatusQueued)

	// stored value is isolated from the caller's copy
	job.Status = model.JobStatusRunning
	got, err = repo.GetJob(ctx, job.ID)
	gt.NoError(t, err)
	gt.Value(t, got.Status).Equal(model.JobStatusQueued)

	gt.NoError(t, repo.PutJob(ctx, job))
	got, err = repo.GetJob(ctx, job.ID)
	gt.NoError(t, err)
	gt.Value(t, got.Status).Equal(model.JobStatusRunning)
}

func TestRepository_NotFound(t *testing.T) {
	repo := memory.New()

	got, err := repo.GetJob(context.Background(), types.NewJobID())
	gt.NoError(t, err)
	gt.Value(t, got).Nil()
}
