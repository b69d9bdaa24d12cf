package interfaces

import (
	"context"

	"github.com/leoric/kbai/pkg/domain/model"
)

// Notifier reports finished fetch jobs to an external channel
type Notifier interface {
	NotifyJob(ctx context.Context, job *model.FetchJob) error
}
