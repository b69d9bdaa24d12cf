package model

import (
	"time"

	"github.com/leoric/kbai/pkg/domain/types"
)

// FetchJobStatus is the lifecycle state of a FetchJob
type FetchJobStatus string

const (
	JobStatusQueued    FetchJobStatus = "queued"
	JobStatusRunning   FetchJobStatus = "running"
	JobStatusSucceeded FetchJobStatus = "succeeded"
	JobStatusSkipped   FetchJobStatus = "skipped"
	JobStatusFailed    FetchJobStatus = "failed"
)

// IsFinished reports whether the job reached a terminal state
func (x FetchJobStatus) IsFinished() bool {
	switch x {
	case JobStatusSucceeded, JobStatusSkipped, JobStatusFailed:
		return true
	default:
		return false
	}
}

// FetchJob is a fetch submitted through the HTTP API and executed in background
type FetchJob struct {
	ID               types.JobID    `json:"id" firestore:"id"`
	Request          FetchRequest   `json:"request" firestore:"request"`
	Status           FetchJobStatus `json:"status" firestore:"status"`
	Error            string         `json:"error,omitempty" firestore:"error"`
	ErrorKind        string         `json:"error_kind,omitempty" firestore:"error_kind"`
	Entries          []string       `json:"entries,omitempty" firestore:"entries"`
	BytesTransferred int64          `json:"bytes_transferred" firestore:"bytes_transferred"`
	TotalBytes       int64          `json:"total_bytes" firestore:"total_bytes"`
	CreatedAt        time.Time      `json:"created_at" firestore:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" firestore:"updated_at"`
}

// NewFetchJob creates a queued job for req
func NewFetchJob(req FetchRequest, now time.Time) *FetchJob {
	return &FetchJob{
		ID:         types.NewJobID(),
		Request:    req,
		Status:     JobStatusQueued,
		TotalBytes: SizeUnknown,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Copy returns a deep copy of the job
func (x *FetchJob) Copy() *FetchJob {
	c := *x
	if x.Entries != nil {
		c.Entries = append([]string(nil), x.Entries...)
	}
	return &c
}
