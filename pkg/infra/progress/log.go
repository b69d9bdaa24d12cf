package progress

import (
	"log/slog"
	"time"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
)

const defaultLogInterval = 5 * time.Second

// Log reports download progress as structured log records. It is used where
// no terminal is attached, e.g. jobs run by the HTTP server.
type Log struct {
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	progress model.TransferProgress
	started  time.Time
	last     time.Time
}

var _ interfaces.ProgressSink = (*Log)(nil)

// LogOption configures the Log sink
type LogOption func(*Log)

// WithInterval sets the minimum time between two progress records
func WithInterval(d time.Duration) LogOption {
	return func(x *Log) {
		x.interval = d
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) LogOption {
	return func(x *Log) {
		x.now = now
	}
}

// NewLog creates a Log sink writing to logger
func NewLog(logger *slog.Logger, opts ...LogOption) *Log {
	x := &Log{
		logger:   logger,
		interval: defaultLogInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

func (x *Log) Start(total int64) {
	x.progress = model.NewTransferProgress(total)
	x.started = x.now()
	x.last = x.started

	x.logger.Info("Transfer started", "total", FormatBytes(x.progress.TotalBytes))
}

func (x *Log) Advance(n int64) {
	x.progress.Advance(n)

	now := x.now()
	if now.Sub(x.last) < x.interval {
		return
	}
	x.last = now

	attrs := []any{
		"transferred", FormatBytes(x.progress.BytesTransferred),
		"total", FormatBytes(x.progress.TotalBytes),
	}
	if x.progress.TotalKnown() {
		attrs = append(attrs, "percent", int(x.progress.Percent()))
	}
	x.logger.Info("Transfer progress", attrs...)
}

func (x *Log) Finish() {
	elapsed := x.now().Sub(x.started)
	x.logger.Info("Transfer finished",
		"transferred", FormatBytes(x.progress.BytesTransferred),
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"speed", FormatSpeed(x.progress.BytesTransferred, elapsed),
	)
}

// Progress returns the counters accumulated so far
func (x *Log) Progress() model.TransferProgress {
	return x.progress
}
