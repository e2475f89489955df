package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/broady/docgate"
	"github.com/broady/docgate/backend"
	"github.com/broady/docgate/internal/config"
	"github.com/broady/docgate/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServeCmd struct {
	Addr       string `help:"Listen address (overrides config)." short:"a"`
	BackendURL string `help:"Forward requests to this backend instead of echoing them." name:"backend-url"`
	Codec      string `help:"Backend wire codec (json or msgpack)."`
	MaskErrors bool   `help:"Hide internal error messages from clients." name:"mask-errors"`
}

// apply copies the command-line overrides onto cfg.
func (c *ServeCmd) apply(cfg *config.Config) {
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.BackendURL != "" {
		cfg.Backend.Kind = config.BackendHTTP
		cfg.Backend.URL = c.BackendURL
	}
	if c.Codec != "" {
		cfg.Backend.Codec = c.Codec
	}
	if c.MaskErrors {
		cfg.MaskInternalErrors = true
	}
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	caller, err := newCaller(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, caller, logger, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("gateway listening",
			slog.String("addr", cfg.Addr),
			slog.String("backend", cfg.Backend.Kind),
			slog.String("version", Version()))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch cfg.LogFormat {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}
}

func newCaller(cfg *config.Config, logger *slog.Logger) (docgate.Caller, error) {
	switch cfg.Backend.Kind {
	case config.BackendEcho:
		return backend.Echo{}, nil
	case config.BackendHTTP:
		codec, err := backend.CodecByName(cfg.Backend.Codec)
		if err != nil {
			return nil, err
		}
		caller, err := backend.NewHTTPCaller(cfg.Backend.URL,
			backend.WithCodec(codec),
			backend.WithTimeout(cfg.Backend.Timeout.Duration),
			backend.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return caller, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

// newApp wires the gateway: logging and metrics around every backend call,
// CORS and the request deadline around every HTTP request.
func newApp(cfg *config.Config, caller docgate.Caller, logger *slog.Logger, reg prometheus.Registerer) *docgate.App {
	metrics := middleware.NewMetrics(reg)

	app := docgate.NewApp(caller).
		WithLogger(logger).
		WithInfo("docgate", Version()).
		WithMaxRequestBodySize(cfg.MaxRequestBodySize).
		WithUnaryInterceptor(middleware.LoggingInterceptor(logger)).
		WithUnaryInterceptor(metrics.Interceptor())
	if cfg.CORS != nil {
		app.WithMiddleware(middleware.CORS(cfg.CORS))
	}
	app.WithMiddleware(middleware.Timeout(cfg.RequestTimeout.Duration))
	if cfg.MaskInternalErrors {
		app.WithMaskInternalErrors()
	}
	return app.Register(endpoints()...)
}

func newHandler(cfg *config.Config, caller docgate.Caller, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", newApp(cfg, caller, logger, reg).Handler())
	return mux
}
