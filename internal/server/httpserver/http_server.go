// Package httpserver wires the mapbuilder HTTP endpoints onto a single listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"git.home.luguber.info/inful/mapbuilder/internal/config"
	derrors "git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
	"git.home.luguber.info/inful/mapbuilder/internal/server/handlers"
	smw "git.home.luguber.info/inful/mapbuilder/internal/server/middleware"
)

// Options carries the runtime dependencies of the HTTP endpoints.
type Options struct {
	Settings handlers.WebhookSettings
	Filter   handlers.ChangeFilter
	Trigger  handlers.BuildTrigger
	Status   handlers.StatusProvider
	Recorder metrics.Recorder

	// Optional: Prometheus exposition at /metrics.
	PrometheusHandler http.Handler
}

// Server manages the HTTP listener (webhook, maps, monitoring).
type Server struct {
	cfg          config.ServerConfig
	publishDir   string
	srv          *http.Server
	ln           net.Listener
	errorAdapter *derrors.HTTPErrorAdapter

	webhookHandlers    *handlers.WebhookHandlers
	monitoringHandlers *handlers.MonitoringHandlers

	mchain func(http.Handler) http.Handler
}

// New constructs the HTTP server wiring.
func New(cfg *config.Config, opts Options) *Server {
	logger := slog.Default()
	s := &Server{
		cfg:          cfg.Server,
		publishDir:   cfg.Storage.PublishDir,
		errorAdapter: derrors.NewHTTPErrorAdapter(logger),
	}
	s.webhookHandlers = handlers.NewWebhookHandlers(opts.Settings, opts.Filter, opts.Trigger, cfg.Server.MaxBodyBytes, logger).
		WithRecorder(opts.Recorder)
	s.monitoringHandlers = handlers.NewMonitoringHandlers(opts.Status)
	s.mchain = smw.Chain(logger, s.errorAdapter)

	s.srv = &http.Server{
		Handler:           s.routes(opts.PrometheusHandler),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	return s
}

// Handler returns the full middleware-wrapped mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) routes(prom http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WebhookPath, s.webhookHandlers.HandlePush)
	mux.Handle(s.cfg.MapsPath, handlers.NewMapsHandler(s.cfg.MapsPath, s.publishDir))
	mux.HandleFunc("/healthz", s.monitoringHandlers.HandleHealthCheck)
	mux.HandleFunc("/status", s.monitoringHandlers.HandleStatus)
	if prom != nil {
		mux.Handle("/metrics", prom)
	}
	return s.mchain(mux)
}

// Start binds the listen address and serves in the background. Binding happens synchronously
// so an occupied port fails startup instead of being logged later.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return derrors.DaemonError(fmt.Sprintf("failed to bind %s", s.cfg.Listen)).
			WithCause(err).
			WithContext("listen", s.cfg.Listen).
			Build()
	}
	s.ln = ln

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	slog.Info("HTTP server started",
		slog.String("addr", ln.Addr().String()),
		slog.String("webhook_path", s.cfg.WebhookPath),
		slog.String("maps_path", s.cfg.MapsPath))
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop gracefully shuts the server down, waiting at most the configured shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped", slog.Duration("took", time.Since(start)))
	return nil
}
