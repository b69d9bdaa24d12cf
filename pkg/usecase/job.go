package usecase

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatcher runs handler outside of the request lifetime
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

// SinkFactory creates the progress sink of a job
type SinkFactory func(ctx context.Context, job *model.FetchJob) interfaces.ProgressSink

type jobUseCase struct {
	fetcher  interfaces.FetchUseCase
	repo     interfaces.JobRepository
	notifier interfaces.Notifier
	dispatch Dispatcher
	newSink  SinkFactory
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// JobOption configures the job use case
type JobOption func(*jobUseCase)

// WithNotifier reports finished jobs to n
func WithNotifier(n interfaces.Notifier) JobOption {
	return func(uc *jobUseCase) {
		uc.notifier = n
	}
}

// WithDispatcher replaces async.Dispatch
func WithDispatcher(d Dispatcher) JobOption {
	return func(uc *jobUseCase) {
		uc.dispatch = d
	}
}

// WithSinkFactory sets how job progress is reported
func WithSinkFactory(f SinkFactory) JobOption {
	return func(uc *jobUseCase) {
		uc.newSink = f
	}
}

// WithJobClock replaces time.Now
func WithJobClock(now func() time.Time) JobOption {
	return func(uc *jobUseCase) {
		uc.now = now
	}
}

// NewJob creates a JobUseCase running fetches in background
func NewJob(fetcher interfaces.FetchUseCase, repo interfaces.JobRepository, opts ...JobOption) interfaces.JobUseCase {
	uc := &jobUseCase{
		fetcher:  fetcher,
		repo:     repo,
		dispatch: async.Dispatch,
		newSink: func(ctx context.Context, job *model.FetchJob) interfaces.ProgressSink {
			return nopSink{}
		},
		now:   time.Now,
		locks: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Submit records a queued job and dispatches it
func (uc *jobUseCase) Submit(ctx context.Context, req *model.FetchRequest) (*model.FetchJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	job := model.NewFetchJob(*req, uc.now())
	if err := uc.repo.PutJob(ctx, job); err != nil {
		return nil, goerr.Wrap(err, "failed to save fetch job")
	}

	ctxlog.From(ctx).Info("Fetch job queued",
		"job_id", job.ID,
		"url", req.SourceURL,
		"destination", req.Destination,
	)

	queued := job.Copy()
	uc.dispatch(ctx, func(ctx context.Context) error {
		return uc.run(ctx, job)
	})

	return queued, nil
}

// Get returns a job by ID
func (uc *jobUseCase) Get(ctx context.Context, id types.JobID) (*model.FetchJob, error) {
	job, err := uc.repo.GetJob(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get fetch job", goerr.V("job_id", id))
	}
	return job, nil
}

// run executes the job. Jobs sharing a destination run one at a time.
func (uc *jobUseCase) run(ctx context.Context, job *model.FetchJob) error {
	logger := ctxlog.From(ctx).With("job_id", job.ID)
	ctx = ctxlog.With(ctx, logger)

	lock := uc.destinationLock(job.Request.Destination)
	lock.Lock()
	defer lock.Unlock()

	job.Status = model.JobStatusRunning
	job.UpdatedAt = uc.now()
	if err := uc.repo.PutJob(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to save running job", goerr.V("job_id", job.ID))
	}

	result, fetchErr := uc.fetcher.Fetch(ctx, &job.Request, uc.newSink(ctx, job))
	switch {
	case fetchErr != nil:
		job.Status = model.JobStatusFailed
		job.Error = fetchErr.Error()
		job.ErrorKind = types.ErrorKind(fetchErr)
		logger.Error("Fetch job failed", "error", fetchErr)
	case result.Skipped:
		job.Status = model.JobStatusSkipped
		logger.Info("Fetch job skipped, destination is not empty")
	default:
		job.Status = model.JobStatusSucceeded
		job.Entries = result.Entries
		job.BytesTransferred = result.Progress.BytesTransferred
		job.TotalBytes = result.Progress.TotalBytes
		logger.Info("Fetch job succeeded", "entry_count", len(result.Entries))
	}
	job.UpdatedAt = uc.now()

	if err := uc.repo.PutJob(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to save finished job", goerr.V("job_id", job.ID))
	}

	if uc.notifier != nil {
		if err := uc.notifier.NotifyJob(ctx, job); err != nil {
			logger.Warn("Failed to notify job result", "error", err)
		}
	}

	return nil
}

func (uc *jobUseCase) destinationLock(dest string) *sync.Mutex {
	key := filepath.Clean(dest)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}

	uc.locksMu.Lock()
	defer uc.locksMu.Unlock()

	lock, ok := uc.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		uc.locks[key] = lock
	}
	return lock
}
