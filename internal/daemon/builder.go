package daemon

import (
	"log/slog"

	"git.home.luguber.info/inful/mapbuilder/internal/assets"
	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/config"
	"git.home.luguber.info/inful/mapbuilder/internal/git"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
	"git.home.luguber.info/inful/mapbuilder/internal/publish"
	"git.home.luguber.info/inful/mapbuilder/internal/render"
)

// NewCoordinator assembles the build pipeline from configuration. Both the daemon and the
// one-shot build command use it.
func NewCoordinator(cfg *config.Config, recorder metrics.Recorder, notifier build.Notifier, logger *slog.Logger) *build.Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	syncer := git.NewClient(logger).WithToken(cfg.Git.Token)
	discover := assets.NewDiscoverer(cfg.Render.AssetsDir, cfg.Render.AssetExt)
	renderer := render.NewInvoker(cfg.Render.Tool, cfg.Render.Args, cfg.Render.Timeout, logger)
	publisher := publish.NewPublisher(logger).WithRecorder(recorder)

	return build.NewCoordinator(build.Options{
		CacheDir:   cfg.Storage.CacheDir,
		PublishDir: cfg.Storage.PublishDir,
		OutputDir:  cfg.Render.OutputDir,
	}, syncer, discover, renderer, publisher).
		WithRecorder(recorder).
		WithNotifier(notifier)
}
