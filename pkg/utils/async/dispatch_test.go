package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/leoric/kbai/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
)

// lockedBuffer collects logs written from handler goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (x *lockedBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *lockedBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.String()
}

// eventRecorder keeps Sentry events instead of sending them
type eventRecorder struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (x *eventRecorder) beforeSend(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, event)
	return nil
}

func (x *eventRecorder) texts() []string {
	x.mu.Lock()
	defer x.mu.Unlock()

	var texts []string
	for _, ev := range x.events {
		text := ev.Message
		for _, exc := range ev.Exception {
			text += " " + exc.Value
		}
		texts = append(texts, text)
	}
	return texts
}

func newHubContext(t *testing.T) (context.Context, *sentry.Hub, *eventRecorder) {
	t.Helper()

	rec := &eventRecorder{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:        "https://public@sentry.example.com/1",
		BeforeSend: rec.beforeSend,
	})
	gt.NoError(t, err)

	hub := sentry.NewHub(client, sentry.NewScope())
	return sentry.SetHubOnContext(context.Background(), hub), hub, rec
}

func newLoggerContext(ctx context.Context, buf *lockedBuffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.With(ctx, logger)
}

func TestDispatch(t *testing.T) {
	t.Run("runs handler in another goroutine", func(t *testing.T) {
		done := make(chan struct{})
		release := make(chan struct{})

		async.Dispatch(context.Background(), func(ctx context.Context) error {
			<-release
			close(done)
			return nil
		})

		// Dispatch returned while the handler is still blocked
		close(release)
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("detaches from caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		errCh := make(chan error, 1)
		async.Dispatch(ctx, func(ctx context.Context) error {
			errCh <- ctx.Err()
			return nil
		})

		select {
		case err := <-errCh:
			gt.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("handler did not run")
		}
	})

	t.Run("carries logger of caller", func(t *testing.T) {
		buf := &lockedBuffer{}
		ctx := newLoggerContext(context.Background(), buf)

		done := make(chan struct{})
		async.Dispatch(ctx, func(ctx context.Context) error {
			defer close(done)
			ctxlog.From(ctx).Info("fetch job started", "job_id", "j-1")
			return nil
		})

		<-done
		gt.String(t, buf.String()).Contains("fetch job started")
		gt.String(t, buf.String()).Contains("job_id=j-1")
	})
}

func TestGroup_SentryHub(t *testing.T) {
	t.Run("handler gets a clone of caller hub", func(t *testing.T) {
		ctx, hub, _ := newHubContext(t)

		var g async.Group
		var got *sentry.Hub
		g.Dispatch(ctx, func(ctx context.Context) error {
			got = sentry.GetHubFromContext(ctx)
			return nil
		})
		gt.NoError(t, g.Wait(context.Background()))

		gt.NotNil(t, got)
		gt.True(t, got != hub)
		gt.True(t, got.Client() == hub.Client())
	})

	t.Run("no hub without caller hub", func(t *testing.T) {
		var g async.Group
		hasHub := true
		g.Dispatch(context.Background(), func(ctx context.Context) error {
			hasHub = sentry.GetHubFromContext(ctx) != nil
			return nil
		})
		gt.NoError(t, g.Wait(context.Background()))
		gt.False(t, hasHub)
	})

	t.Run("returned error is logged and reported", func(t *testing.T) {
		ctx, _, rec := newHubContext(t)
		buf := &lockedBuffer{}
		ctx = newLoggerContext(ctx, buf)

		var g async.Group
		g.Dispatch(ctx, func(ctx context.Context) error {
			return errors.New("staging file vanished")
		})
		gt.NoError(t, g.Wait(context.Background()))

		gt.String(t, buf.String()).Contains("error in async handler")
		texts := rec.texts()
		gt.A(t, texts).Length(1)
		gt.String(t, texts[0]).Contains("staging file vanished")
	})

	t.Run("panic is recovered, logged with stack and reported", func(t *testing.T) {
		ctx, _, rec := newHubContext(t)
		buf := &lockedBuffer{}
		ctx = newLoggerContext(ctx, buf)

		var g async.Group
		g.Dispatch(ctx, func(ctx context.Context) error {
			panic("extractor exploded")
		})
		gt.NoError(t, g.Wait(context.Background()))

		logs := buf.String()
		gt.String(t, logs).Contains("panic in async handler")
		gt.String(t, logs).Contains("extractor exploded")
		gt.String(t, logs).Contains("dispatch_test.go")

		texts := rec.texts()
		gt.A(t, texts).Length(1)
		gt.String(t, texts[0]).Contains("extractor exploded")
	})

	t.Run("nothing is reported on success", func(t *testing.T) {
		ctx, _, rec := newHubContext(t)

		var g async.Group
		g.Dispatch(ctx, func(ctx context.Context) error { return nil })
		gt.NoError(t, g.Wait(context.Background()))

		gt.A(t, rec.texts()).Length(0)
	})
}

func TestGroup_Wait(t *testing.T) {
	t.Run("waits for every handler", func(t *testing.T) {
		var g async.Group
		var mu sync.Mutex
		count := 0

		for i := 0; i < 5; i++ {
			g.Dispatch(context.Background(), func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
		}

		gt.NoError(t, g.Wait(context.Background()))
		gt.Value(t, count).Equal(5)
	})

	t.Run("gives up when context is done", func(t *testing.T) {
		var g async.Group
		release := make(chan struct{})
		defer close(release)

		g.Dispatch(context.Background(), func(ctx context.Context) error {
			<-release
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := g.Wait(ctx)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestGroup_RuntimePanicLogsStack(t *testing.T) {
	buf := &lockedBuffer{}
	ctx := newLoggerContext(context.Background(), buf)

	var g async.Group
	g.Dispatch(ctx, func(ctx context.Context) error {
		var m map[string]int
		m["boom"]++
		return nil
	})
	gt.NoError(t, g.Wait(context.Background()))

	gt.True(t, strings.Contains(buf.String(), "goroutine"))
}
