package config

import (
	"context"
	"strings"
	"time"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/infra/gcs"
	httpsrc "github.com/leoric/kbai/pkg/infra/http"
	"github.com/leoric/kbai/pkg/usecase"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Fetch holds archive download configuration
type Fetch struct {
	TempDir        string
	ChunkSize      int
	ProbeTimeout   time.Duration
	ConnectTimeout time.Duration
	Headers        []string
	BearerToken    string
	GCSCredentials string
	DisableGCS     bool
}

// Flags returns CLI flags for download configuration
func (c *Fetch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "temp-dir",
			Usage:       "Directory of the staging file (default: OS temp dir)",
			Destination: &c.TempDir,
			Sources:     cli.EnvVars("KBAI_TEMP_DIR"),
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Read size of the body transfer in bytes",
			Value:       usecase.DefaultChunkSize,
			Destination: &c.ChunkSize,
			Sources:     cli.EnvVars("KBAI_CHUNK_SIZE"),
		},
		&cli.DurationFlag{
			Name:        "probe-timeout",
			Usage:       "Timeout of the size probe request",
			Value:       httpsrc.DefaultProbeTimeout,
			Destination: &c.ProbeTimeout,
			Sources:     cli.EnvVars("KBAI_PROBE_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:        "connect-timeout",
			Usage:       "Timeout to connect and receive response headers of the download",
			Value:       httpsrc.DefaultConnectTimeout,
			Destination: &c.ConnectTimeout,
			Sources:     cli.EnvVars("KBAI_CONNECT_TIMEOUT"),
		},
		&cli.StringSliceFlag{
			Name:        "header",
			Usage:       "Extra request header as KEY=VALUE (repeatable)",
			Destination: &c.Headers,
			Sources:     cli.EnvVars("KBAI_HEADERS"),
		},
		&cli.StringFlag{
			Name:        "bearer-token",
			Usage:       "Bearer token sent in the Authorization header",
			Destination: &c.BearerToken,
			Sources:     cli.EnvVars("KBAI_BEARER_TOKEN", "HF_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "gcs-credentials",
			Usage:       "Service account key file for gs:// sources (default: application default credentials)",
			Destination: &c.GCSCredentials,
			Sources:     cli.EnvVars("KBAI_GCS_CREDENTIALS"),
		},
		&cli.BoolFlag{
			Name:        "disable-gcs",
			Usage:       "Do not register the gs:// source",
			Destination: &c.DisableGCS,
			Sources:     cli.EnvVars("KBAI_DISABLE_GCS"),
		},
	}
}

// ParseHeaders converts KEY=VALUE pairs into a header map
func (c *Fetch) ParseHeaders() (map[string]string, error) {
	headers := make(map[string]string, len(c.Headers))
	for _, h := range c.Headers {
		key, value, ok := strings.Cut(h, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, goerr.New("header must be KEY=VALUE", goerr.V("header", h))
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// Configure builds the fetch use case with the http(s) source and, when
// available, the gs source. The returned function releases the sources.
func (c *Fetch) Configure(ctx context.Context) (interfaces.FetchUseCase, func(), error) {
	if c.ChunkSize <= 0 {
		return nil, nil, goerr.New("chunk size must be positive", goerr.V("chunk_size", c.ChunkSize))
	}

	headers, err := c.ParseHeaders()
	if err != nil {
		return nil, nil, err
	}

	httpOpts := []httpsrc.Option{
		httpsrc.WithProbeTimeout(c.ProbeTimeout),
		httpsrc.WithConnectTimeout(c.ConnectTimeout),
		httpsrc.WithBearerToken(types.Secret(c.BearerToken)),
	}
	for k, v := range headers {
		httpOpts = append(httpOpts, httpsrc.WithHeader(k, v))
	}

	opts := []usecase.FetcherOption{
		usecase.WithSource(httpsrc.NewClient(httpOpts...), "http", "https"),
		usecase.WithTempDir(c.TempDir),
		usecase.WithChunkSize(c.ChunkSize),
	}

	cleanup := func() {}
	if !c.DisableGCS {
		var gcsOpts []option.ClientOption
		if c.GCSCredentials != "" {
			gcsOpts = append(gcsOpts, option.WithCredentialsFile(c.GCSCredentials))
		}

		client, err := gcs.NewClient(ctx, gcsOpts...)
		if err != nil {
			ctxlog.From(ctx).Warn("gs:// source is unavailable", "error", err)
		} else {
			opts = append(opts, usecase.WithSource(client, gcs.Scheme))
			cleanup = func() {
				if err := client.Close(); err != nil {
					ctxlog.From(ctx).Warn("Failed to close storage client", "error", err)
				}
			}
		}
	}

	return usecase.NewFetcher(opts...), cleanup, nil
}
