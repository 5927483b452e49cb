// Package daemon runs the long-lived mapbuilder service: HTTP intake, background builds,
// startup prewarm, scheduled refreshes and configuration hot reload.
package daemon

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/config"
	"git.home.luguber.info/inful/mapbuilder/internal/forge"
	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
	"git.home.luguber.info/inful/mapbuilder/internal/notify"
	"git.home.luguber.info/inful/mapbuilder/internal/server/handlers"
	"git.home.luguber.info/inful/mapbuilder/internal/server/httpserver"
	"git.home.luguber.info/inful/mapbuilder/internal/server/responses"
)

// Notifier is a closable build notifier.
type Notifier interface {
	build.Notifier
	io.Closer
}

// Daemon owns every long-lived component of the service.
type Daemon struct {
	cfg        *config.Config
	configPath string
	webhook    atomic.Pointer[config.WebhookConfig]
	startTime  time.Time

	registry   *prometheus.Registry
	recorder   *metrics.PrometheusRecorder
	notifier   Notifier
	dispatcher *Dispatcher
	http       *httpserver.Server
	scheduler  *Scheduler
	watcher    *ConfigWatcher
}

// Options holds optional collaborators; zero values select the production defaults.
type Options struct {
	Runner   Runner
	Filter   handlers.ChangeFilter
	Notifier Notifier
}

// New wires a daemon from configuration. configPath enables hot reload when non-empty.
func New(ctx context.Context, cfg *config.Config, configPath string, opts Options) (*Daemon, error) {
	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		startTime:  time.Now(),
		registry:   metrics.NewRegistry(),
	}
	wh := cfg.Webhook
	d.webhook.Store(&wh)
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	d.notifier = opts.Notifier
	if d.notifier == nil {
		d.notifier = NewNotifier(ctx, cfg.Notify)
	}

	runner := opts.Runner
	if runner == nil {
		runner = NewCoordinator(cfg, d.recorder, d.notifier, slog.Default())
	}
	d.dispatcher = NewDispatcher(runner, slog.Default()).WithRecorder(d.recorder)

	filter := opts.Filter
	if filter == nil {
		compare := forge.NewCompareClient(cfg.Filter.Timeout, cfg.Filter.Token)
		filter = forge.NewChangeFilter(compare, cfg.Filter.TrackedPrefix, slog.Default())
	}

	d.http = httpserver.New(cfg, httpserver.Options{
		Settings:          d.WebhookSettings,
		Filter:            filter,
		Trigger:           d.dispatcher,
		Status:            d,
		Recorder:          d.recorder,
		PrometheusHandler: metrics.HTTPHandler(d.registry),
	})

	if cfg.DefaultTarget.RefreshInterval > 0 {
		s, err := NewScheduler()
		if err != nil {
			return nil, errors.DaemonError("failed to create scheduler").WithCause(err).Build()
		}
		def := cfg.DefaultTarget
		if _, err := s.ScheduleRefresh(def.Name, def.RefreshInterval, func() {
			d.dispatcher.RunSync(context.Background(), TriggerSchedule, def.Name, def.Remote, def.Branch)
		}); err != nil {
			return nil, errors.DaemonError("failed to schedule refresh").WithCause(err).Build()
		}
		d.scheduler = s
	}

	if configPath != "" {
		w, err := NewConfigWatcher(configPath, d.ReloadConfig)
		if err != nil {
			slog.Warn("Configuration hot reload disabled", logfields.Error(err))
		} else {
			d.watcher = w
		}
	}
	return d, nil
}

// NewNotifier returns a NATS notifier when cfg names a server and a no-op otherwise. Connection
// failures disable notifications rather than failing startup.
func NewNotifier(ctx context.Context, cfg config.NotifyConfig) Notifier {
	if cfg.NATSURL == "" {
		return notify.Nop{}
	}
	n, err := notify.NewNATSNotifier(ctx, cfg, slog.Default())
	if err != nil {
		slog.Warn("Build notifications disabled", logfields.URL(cfg.NATSURL), logfields.Error(err))
		return notify.Nop{}
	}
	return n
}

// Run prewarms the default target, serves until ctx is cancelled and then shuts down. In-flight
// builds are waited for, never cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if r := Prewarm(ctx, d.cfg, d.dispatcher); r != nil && r.Status == build.StatusFailed {
		slog.Warn("Prewarm build failed; continuing", logfields.Target(r.Target), slog.String("error", r.Error))
	}

	if err := d.http.Start(ctx); err != nil {
		_ = d.notifier.Close()
		return err
	}
	if d.scheduler != nil {
		d.scheduler.Start(ctx)
	}
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			slog.Warn("Configuration hot reload disabled", logfields.Error(err))
			d.watcher = nil
		}
	}

	slog.Info("mapbuilder daemon running")
	<-ctx.Done()
	return d.shutdown()
}

func (d *Daemon) shutdown() error {
	slog.Info("Shutting down")
	stopCtx := context.Background()

	var errs []error
	if err := d.http.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(stopCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(stopCtx); err != nil {
			errs = append(errs, err)
		}
	}

	if active := d.dispatcher.ActiveBuilds(); len(active) > 0 {
		slog.Info("Waiting for in-flight builds", logfields.Count(len(active)))
	}
	_ = d.dispatcher.Wait(stopCtx)

	if err := d.notifier.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.DaemonError("shutdown completed with errors").WithCause(stderrors.Join(errs...)).Build()
	}
	slog.Info("Shutdown complete")
	return nil
}

// ReloadConfig applies a reloaded configuration. Only the webhook section takes effect at
// runtime; other changes are reported and need a restart.
func (d *Daemon) ReloadConfig(newCfg *config.Config) error {
	if newCfg.Server != d.cfg.Server || newCfg.Storage != d.cfg.Storage || newCfg.DefaultTarget.Name != d.cfg.DefaultTarget.Name {
		slog.Warn("Configuration changes outside the webhook section require a restart")
	}
	wh := newCfg.Webhook
	d.webhook.Store(&wh)
	slog.Info("Webhook settings reloaded", slog.Any("tracked_refs", wh.TrackedRefs))
	return nil
}

// WebhookSettings returns the current webhook configuration.
func (d *Daemon) WebhookSettings() config.WebhookConfig { return *d.webhook.Load() }

// Dispatcher exposes the build dispatcher.
func (d *Daemon) Dispatcher() *Dispatcher { return d.dispatcher }

// StartTime implements handlers.StatusProvider.
func (d *Daemon) StartTime() time.Time { return d.startTime }

// ActiveBuilds implements handlers.StatusProvider.
func (d *Daemon) ActiveBuilds() []responses.ActiveBuild { return d.dispatcher.ActiveBuilds() }

// LastBuilds implements handlers.StatusProvider.
func (d *Daemon) LastBuilds() []responses.FinishedBuild { return d.dispatcher.LastBuilds() }
