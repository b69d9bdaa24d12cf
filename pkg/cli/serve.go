package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leoric/kbai/pkg/cli/config"
	controller "github.com/leoric/kbai/pkg/controller/http"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/infra/device"
	"github.com/leoric/kbai/pkg/infra/progress"
	"github.com/leoric/kbai/pkg/usecase"
	"github.com/leoric/kbai/pkg/utils/async"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		fetchCfg  config.Fetch
		cloudCfg  config.Cloud
		notifyCfg config.Notify
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, fetchCfg.Flags()...)
	flags = append(flags, cloudCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server accepting fetch jobs",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting kbai server",
				slog.String("addr", serverCfg.Addr),
			)

			fetcher, closeSources, err := fetchCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer closeSources()

			repo, closeRepo, err := cloudCfg.NewRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			var jobs async.Group
			jobOpts := []usecase.JobOption{
				usecase.WithDispatcher(jobs.Dispatch),
				usecase.WithSinkFactory(func(ctx context.Context, job *model.FetchJob) interfaces.ProgressSink {
					return progress.NewLog(ctxlog.From(ctx))
				}),
			}
			if notifier := notifyCfg.NewNotifier(); notifier != nil {
				jobOpts = append(jobOpts, usecase.WithNotifier(notifier))
			}

			jobUC := usecase.NewJob(fetcher, repo, jobOpts...)
			deviceUC := usecase.NewDeviceSelector(device.NewProber())

			server, err := controller.NewServer(
				ctx,
				jobUC,
				deviceUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithAPISecret(serverCfg.Secret()),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "HTTP server failed", goerr.V("addr", serverCfg.Addr))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-errCh:
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Running jobs are given the rest of the shutdown period
			if err := jobs.Wait(shutdownCtx); err != nil {
				logger.Warn("Fetch jobs still running at shutdown", "error", err)
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
