// Package app wires the engine, its filters and their configuration into a
// runnable server.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/searchktools/pulsation/config"
	"github.com/searchktools/pulsation/core"
	"github.com/searchktools/pulsation/core/middleware"
	"github.com/searchktools/pulsation/core/observability"
	"github.com/searchktools/pulsation/core/router"
)

// App is a configured server instance.
type App struct {
	cfg      *config.Config
	log      *zap.Logger
	engine   *core.Engine
	router   *router.Router
	registry *prometheus.Registry
	tracer   *sdktrace.TracerProvider
	sessions *middleware.Sessions
}

// Option customizes an App.
type Option func(*App)

// WithTracerProvider traces requests through tp instead of a stdout
// exporter built from the configuration.
func WithTracerProvider(tp *sdktrace.TracerProvider) Option {
	return func(a *App) {
		a.tracer = tp
	}
}

// New builds the engine and registers the filters cfg enables. Routes may be
// added through Router until Run is called.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:      cfg,
		log:      log,
		router:   router.New(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := cfg.Server
	a.engine = core.NewEngine(
		core.ListenOnPort(s.Port),
		core.Reactors(s.Reactors),
		core.Workers(s.Workers),
		core.MaxEvents(s.MaxEvents),
		core.PollTimeout(s.PollTimeout),
		core.IdleTimeout(s.IdleTimeout),
		core.WriteTimeout(s.WriteTimeout),
		core.Backlog(s.Backlog),
		core.WithLogger(log.Named("engine")),
		core.WithMetrics(observability.NewMetrics(a.registry)),
	)

	if err := a.registerFilters(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) registerFilters() error {
	cfg := a.cfg
	e := a.engine

	e.UseFilter(middleware.Responder(a.log.Named("responder")))
	e.UseFilter(middleware.RequestID())
	e.UseFilter(middleware.Logger(a.log.Named("access")))

	if cfg.Tracing.Enabled {
		if a.tracer == nil {
			exp, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
			if err != nil {
				return fmt.Errorf("create span exporter: %w", err)
			}
			a.tracer = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		}
		otel.SetTracerProvider(a.tracer)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		e.UseFilter(middleware.Tracing(a.tracer))
	}

	if cfg.Metrics.Enabled {
		e.UseFilter(middleware.MetricsEndpoint(cfg.Metrics.Path, a.registry))
		e.UseFilter(middleware.Stats(cfg.Metrics.StatsPath, a.stats))
		e.UseFilter(middleware.Metrics(a.registry))
	}

	if cfg.RateLimit.Enabled {
		e.UseFilter(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	if cfg.CORS.Enabled {
		e.UseFilter(middleware.CORS(middleware.CORSConfig{
			Origin:           cfg.CORS.Origin,
			AllowMethods:     cfg.CORS.AllowMethods,
			AllowHeaders:     cfg.CORS.AllowHeaders,
			ExposeHeaders:    cfg.CORS.ExposeHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		}))
	}

	if cfg.Compress.Enabled {
		e.UseFilter(middleware.Compress(cfg.Compress.MimeTypes...))
	}

	if cfg.Static.Enabled {
		e.UseFilter(middleware.Static(cfg.Static.Dir, cfg.Static.ErrorPages))
	}

	if cfg.Auth.Enabled {
		protect, err := regexp.Compile(cfg.Auth.Protect)
		if err != nil {
			return fmt.Errorf("compile auth.protect: %w", err)
		}
		a.sessions = middleware.NewSessions(cfg.Auth.SessionLive, cfg.Auth.Users)
		e.UseFilter(middleware.Auth(middleware.AuthConfig{
			Protect:   protect,
			LoginPath: cfg.Auth.LoginPath,
			FailJump:  cfg.Auth.FailJump,
			Sessions:  a.sessions,
		}))
	}

	if cfg.View.Enabled {
		e.UseFilter(middleware.View(cfg.View.Dir))
	}

	e.UseFilter(middleware.Router(a.router))
	return nil
}

// Engine returns the underlying engine.
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Router returns the router consulted last in the chain.
func (a *App) Router() *router.Router {
	return a.router
}

// Registry returns the Prometheus registry the server reports into.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Run serves until ctx is done or the process receives SIGINT or SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := a.engine.Run(ctx)
	if a.tracer != nil {
		err = multierr.Append(err, a.tracer.Shutdown(context.Background()))
	}
	a.log.Info("server stopped")
	return err
}

func (a *App) stats() map[string]any {
	m := a.engine.Stats().Fields()
	if a.sessions != nil {
		m["sessions"] = a.sessions.Len()
	}
	return m
}
