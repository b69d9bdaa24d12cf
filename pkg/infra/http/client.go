package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultProbeTimeout   = 10 * time.Second
	DefaultConnectTimeout = 60 * time.Second

	userAgent = types.ServiceName + "/" + types.Version
)

type config struct {
	probeTimeout   time.Duration
	connectTimeout time.Duration
	headers        map[string]string
	bearerToken    types.Secret
	httpClient     *http.Client
}

// Option configures the HTTP source client
type Option func(*config)

// WithProbeTimeout bounds the HEAD request
func WithProbeTimeout(d time.Duration) Option {
	return func(c *config) {
		c.probeTimeout = d
	}
}

// WithConnectTimeout bounds dialing and waiting for response headers of the
// body request. The body transfer itself is not bounded.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *config) {
		c.connectTimeout = d
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) Option {
	return func(c *config) {
		c.headers[key] = value
	}
}

// WithBearerToken sets the Authorization header of every request
func WithBearerToken(token types.Secret) Option {
	return func(c *config) {
		c.bearerToken = token
	}
}

// WithHTTPClient replaces the underlying client. Connect timeout is then up
// to the given client's transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

type client struct {
	cfg        config
	httpClient *http.Client
}

var _ interfaces.Source = (*client)(nil)

// NewClient creates a Source for http and https URLs
func NewClient(opts ...Option) interfaces.Source {
	cfg := config{
		probeTimeout:   DefaultProbeTimeout,
		connectTimeout: DefaultConnectTimeout,
		headers:        map[string]string{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{
			Timeout:   cfg.connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = cfg.connectTimeout
		transport.ResponseHeaderTimeout = cfg.connectTimeout

		httpClient = &http.Client{Transport: transport}
	}

	return &client{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// Probe sends a HEAD request and returns Content-Length, -1 if absent
func (c *client) Probe(ctx context.Context, url string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.probeTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to send HEAD request",
			goerr.T(types.ErrTagNetwork),
			goerr.V("url", url),
		)
	}
	defer safeClose(resp.Body)

	if err := checkStatus(resp, url); err != nil {
		return 0, err
	}

	return resp.ContentLength, nil
}

// Open sends a GET request and returns the response body for streaming
func (c *client) Open(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to send GET request",
			goerr.T(types.ErrTagNetwork),
			goerr.V("url", url),
		)
	}

	if err := checkStatus(resp, url); err != nil {
		safeClose(resp.Body)
		return nil, 0, err
	}

	return resp.Body, resp.ContentLength, nil
}

func (c *client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request",
			goerr.T(types.ErrTagNetwork),
			goerr.V("method", method),
			goerr.V("url", url),
		)
	}

	req.Header.Set("User-Agent", userAgent)
	for k, v := range c.cfg.headers {
		req.Header.Set(k, v)
	}
	if c.cfg.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.bearerToken.Unsafe())
	}

	return req, nil
}

func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return goerr.New("unexpected HTTP status",
			goerr.T(types.ErrTagNetwork),
			goerr.V("status", resp.StatusCode),
			goerr.V("method", resp.Request.Method),
			goerr.V("url", url),
		)
	}
	return nil
}

func safeClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	_ = body.Close()
}
