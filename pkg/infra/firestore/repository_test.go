package firestore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/infra/firestore"
	"github.com/m-mizutani/gt"
)

func TestRepository_WithRealFirestore(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID is not set")
	}

	opts := []firestore.Option{
		firestore.WithCollection("kbai_test_fetch_jobs"),
	}
	if dbID := os.Getenv("TEST_FIRESTORE_DATABASE_ID"); dbID != "" {
		opts = append(opts, firestore.WithDatabaseID(dbID))
	}

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, opts...)
	gt.NoError(t, err)
	defer repo.Close()

	req := model.NewFetchRequest("https://example.com/data.zip", "/tmp/data")
	job := model.NewFetchJob(*req, time.Now().UTC().Truncate(time.Millisecond))
	job.Status = model.JobStatusSucceeded
	job.Entries = []string{"hello.txt"}

	gt.NoError(t, repo.PutJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	gt.NoError(t, err)
	gt.Value(t, got).NotNil()
	gt.Value(t, got.Status).Equal(model.JobStatusSucceeded)
	gt.A(t, got.Entries).Equal([]string{"hello.txt"})
	gt.Value(t, got.Request.SourceURL).Equal(req.SourceURL)

	missing, err := repo.GetJob(ctx, types.NewJobID())
	gt.NoError(t, err)
	gt.Value(t, missing).Nil()
}
