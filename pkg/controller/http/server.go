package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// config holds internal HTTP server configuration
type config struct {
	addr      string
	apiSecret types.Secret
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithAPISecret enables HMAC signature verification of fetch requests
func WithAPISecret(secret types.Secret) Option {
	return func(c *config) {
		c.apiSecret = secret
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	jobUC interfaces.JobUseCase,
	deviceUC interfaces.DeviceUseCase,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	validator, err := newRequestValidator()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load API schema")
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/device", newDeviceHandler(deviceUC).Handle)

		fetch := newFetchHandler(jobUC, validator, cfg.apiSecret)
		r.Post("/fetch", fetch.Submit)
		r.Get("/fetch/{id}", fetch.Get)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
