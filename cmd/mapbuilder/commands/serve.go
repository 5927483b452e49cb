package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mapbuilder/internal/daemon"
	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/version"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	NoWatch bool `help:"Disable configuration hot reload"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	watchPath := root.Config
	if s.NoWatch {
		watchPath = ""
	}

	slog.Info("Starting mapbuilder",
		slog.String("version", version.Version),
		slog.String("listen", cfg.Server.Listen),
		slog.String("publish_dir", cfg.Storage.PublishDir))

	d, err := daemon.New(ctx, cfg, watchPath, daemon.Options{})
	if err != nil {
		return errors.DaemonError("failed to create daemon").WithCause(err).Build()
	}
	return d.Run(ctx)
}
