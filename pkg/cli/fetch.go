package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leoric/kbai/pkg/cli/config"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/infra/progress"
	"github.com/leoric/kbai/pkg/utils/manifest"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdFetch(w io.Writer) *cli.Command {
	var (
		fetchCfg     config.Fetch
		manifestPath string
		force        bool
		noProgress   bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "manifest",
			Aliases:     []string{"m"},
			Usage:       "TOML or YAML file listing datasets to fetch",
			Destination: &manifestPath,
			Sources:     cli.EnvVars("KBAI_MANIFEST"),
		},
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Download even if the destination is not empty",
			Destination: &force,
		},
		&cli.BoolFlag{
			Name:        "no-progress",
			Usage:       "Report progress in logs instead of a progress bar",
			Destination: &noProgress,
			Sources:     cli.EnvVars("KBAI_NO_PROGRESS"),
		},
	}
	flags = append(flags, fetchCfg.Flags()...)

	return &cli.Command{
		Name:      "fetch",
		Aliases:   []string{"f"},
		Usage:     "Download a ZIP archive and extract it into a directory",
		ArgsUsage: "[URL DESTINATION]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			reqs, err := fetchRequests(manifestPath, c.Args().Slice())
			if err != nil {
				return err
			}

			fetcher, cleanup, err := fetchCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			logger := ctxlog.From(ctx)
			for _, req := range reqs {
				if force {
					req.SkipIfNotEmpty = false
				}

				logger.Info("Fetching dataset",
					slog.String("url", req.SourceURL),
					slog.String("destination", req.Destination),
				)

				result, err := fetcher.Fetch(ctx, req, newProgressSink(ctx, req, noProgress))
				if err != nil {
					return goerr.Wrap(err, "failed to fetch dataset",
						goerr.V("url", req.SourceURL),
						goerr.V("destination", req.Destination),
					)
				}

				printSummary(w, req, result)
			}

			return nil
		},
	}
}

func fetchRequests(manifestPath string, args []string) ([]*model.FetchRequest, error) {
	if manifestPath != "" {
		if len(args) > 0 {
			return nil, goerr.New("URL arguments cannot be combined with --manifest", goerr.T(types.ErrTagInvalidRequest))
		}
		return manifest.Load(manifestPath)
	}

	if len(args) != 2 {
		return nil, goerr.New("URL and DESTINATION arguments are required",
			goerr.T(types.ErrTagInvalidRequest),
			goerr.V("args", args),
		)
	}

	req := model.NewFetchRequest(args[0], args[1])
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return []*model.FetchRequest{req}, nil
}

func newProgressSink(ctx context.Context, req *model.FetchRequest, noProgress bool) interfaces.ProgressSink {
	if noProgress {
		return progress.NewLog(ctxlog.From(ctx).With("url", req.SourceURL))
	}
	return progress.NewBar(os.Stderr, "📥 Downloading")
}
