package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatch executes handler in a new goroutine with a background context.
// The logger and Sentry hub of ctx are carried over, its cancellation is not.
// Panics and returned errors are logged and reported to Sentry.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)
	go run(newCtx, handler)
}

// Group dispatches handlers like Dispatch and tracks them until they return
type Group struct {
	wg sync.WaitGroup
}

// Dispatch runs handler asynchronously as a member of the group
func (g *Group) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(newCtx, handler)
	}()
}

// Wait blocks until every dispatched handler returned or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "async handlers did not finish in time")
	}
}

func run(ctx context.Context, handler func(ctx context.Context) error) {
	logger := ctxlog.From(ctx)

	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger.Error("panic in async handler",
				"recover", r,
				"stack", string(stack))
			if hub := sentry.GetHubFromContext(ctx); hub != nil {
				hub.RecoverWithContext(ctx, r)
			}
		}
	}()

	if err := handler(ctx); err != nil {
		logger.Error("error in async handler", "error", err)
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		}
	}
}

// newBackgroundContext returns context.Background() carrying the ctxlog
// logger and a clone of the Sentry hub of ctx
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	}
	return newCtx
}
