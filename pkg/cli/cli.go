package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/leoric/kbai/pkg/cli/config"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const defaultEnvFile = ".env"

type options struct {
	writer io.Writer
}

// Option configures Run
type Option func(*options)

// WithWriter sets where command output (banner, summaries) is written.
// Default is os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// Run runs the CLI application
func Run(ctx context.Context, args []string, opts ...Option) error {
	o := &options{writer: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	if err := loadEnvFile(envFileFromArgs(args)); err != nil {
		return err
	}

	var (
		loggerCfg config.Logger
		sentryCfg config.Sentry
		envFile   string
		logger    *slog.Logger
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "Dotenv file loaded before reading flags",
			Value:       defaultEnvFile,
			Destination: &envFile,
		},
	}
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    types.ServiceName,
		Usage:   "Leoric KB AI toolkit: knowledge base archive fetcher and device selector",
		Version: types.Version,
		Flags:   flags,
		Writer:  o.writer,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = ctxlog.With(ctx, logger)

			return sentryCfg.Configure(ctx)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			printBanner(o.writer)
			return nil
		},
		Commands: []*cli.Command{
			cmdFetch(o.writer),
			cmdDevice(o.writer),
			cmdServe(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		sentryCfg.Report(ctx, err)
		return err
	}

	return nil
}

// envFileFromArgs finds --env-file in args before flags are parsed, since
// the file may provide values of other flags
func envFileFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--env-file" || arg == "-env-file":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file=")
		case strings.HasPrefix(arg, "-env-file="):
			return strings.TrimPrefix(arg, "-env-file=")
		}
	}

	if path, ok := os.LookupEnv("KBAI_ENV_FILE"); ok {
		return path
	}
	return defaultEnvFile
}

// loadEnvFile sets variables of path that are not already set. A missing
// file is ignored.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
	}
	return nil
}
