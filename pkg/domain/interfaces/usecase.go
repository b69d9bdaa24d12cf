package interfaces

import (
	"context"

	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
)

// FetchUseCase downloads a ZIP archive and extracts it
type FetchUseCase interface {
	// Fetch retrieves req.SourceURL and extracts it into req.Destination.
	// sink may be nil.
	Fetch(ctx context.Context, req *model.FetchRequest, sink ProgressSink) (*model.ExtractionResult, error)
}

// DeviceUseCase selects the compute backend for model execution
type DeviceUseCase interface {
	Select(ctx context.Context) model.DeviceKind
}

// JobUseCase runs fetch requests submitted through the HTTP API
type JobUseCase interface {
	// Submit validates req, records a queued job and starts it in background
	Submit(ctx context.Context, req *model.FetchRequest) (*model.FetchJob, error)

	// Get returns the job, or nil if it does not exist
	Get(ctx context.Context, id types.JobID) (*model.FetchJob, error)
}
