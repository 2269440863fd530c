package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Record-Gate/Recordgate/internal/domain/auth"
	"github.com/Record-Gate/Recordgate/internal/service"
)

// Transport is the inbound adapter serving the decision API over HTTP.
// TLS termination is left to a reverse proxy.
type Transport struct {
	access       *service.AccessService
	eval         *service.EvalService
	server       *http.Server
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	verifier     *auth.KeyVerifier
	metrics      *Metrics
	logger       *slog.Logger
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithAddr sets the listen address.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithTimeouts sets the server read and write timeouts.
func WithTimeouts(read, write time.Duration) Option {
	return func(t *Transport) {
		t.readTimeout = read
		t.writeTimeout = write
	}
}

// WithKeyVerifier enables API key authentication on the decision routes.
// /healthz and /metrics stay unauthenticated.
func WithKeyVerifier(v *auth.KeyVerifier) Option {
	return func(t *Transport) {
		t.verifier = v
	}
}

// WithLogger sets the logger for the transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates an HTTP transport wrapping the given services.
func NewTransport(access *service.AccessService, eval *service.EvalService, opts ...Option) *Transport {
	t := &Transport{
		access:       access,
		eval:         eval,
		addr:         "127.0.0.1:8080",
		readTimeout:  10 * time.Second,
		writeTimeout: 10 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handler builds the route mux with the full middleware chain. Exposed for
// tests that drive the API via httptest.
func (t *Transport) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)

	h := &handlers{access: t.access, eval: t.eval, metrics: t.metrics}

	// Middleware order (outermost first):
	// 1. Metrics, so the full duration is captured
	// 2. RequestID, so auth failures are correlatable
	// 3. APIKey
	chain := func(inner http.Handler) http.Handler {
		inner = APIKeyMiddleware(t.verifier)(inner)
		inner = RequestIDMiddleware(t.logger)(inner)
		inner = MetricsMiddleware(t.metrics)(inner)
		return inner
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/check/row", chain(http.HandlerFunc(h.checkRow)))
	mux.Handle("POST /v1/check/fields", chain(http.HandlerFunc(h.checkFields)))
	mux.Handle("POST /v1/check/write", chain(http.HandlerFunc(h.checkWrite)))
	mux.Handle("POST /v1/eval", chain(http.HandlerFunc(h.evaluate)))
	mux.Handle("GET /healthz", healthzHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// Start begins serving the decision API. It blocks until the context is
// cancelled or the server fails.
func (t *Transport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:         t.addr,
		Handler:      t.Handler(),
		ReadTimeout:  t.readTimeout,
		WriteTimeout: t.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		t.logger.Info("starting HTTP server", "addr", t.addr)
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *Transport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}
	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
