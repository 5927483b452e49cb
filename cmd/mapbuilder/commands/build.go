package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/daemon"
	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Name   string `help:"Repository full name (owner/repo); defaults to the configured default target"`
	Remote string `help:"Clone URL; defaults to the configured default target"`
	Branch string `help:"Branch to build; empty uses the configured default, then the remote default"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	name, remote, branch := b.Name, b.Remote, b.Branch
	if name == "" {
		name = cfg.DefaultTarget.Name
		if remote == "" {
			remote = cfg.DefaultTarget.Remote
		}
		if branch == "" {
			branch = cfg.DefaultTarget.Branch
		}
	}
	if remote == "" {
		return errors.ValidationError("--remote is required when --name is given").Build()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := daemon.NewNotifier(ctx, cfg.Notify)
	defer func() { _ = notifier.Close() }()

	coordinator := daemon.NewCoordinator(cfg, metrics.NoopRecorder{}, notifier, nil)
	report := daemon.NewDispatcher(coordinator, nil).RunSync(ctx, daemon.TriggerCLI, name, remote, branch)

	printReport(report)
	if report.Status == build.StatusFailed {
		if report.Err != nil {
			return report.Err
		}
		return errors.InternalError(report.Error).Build()
	}
	return nil
}

func printReport(r *build.Report) {
	fmt.Fprintf(os.Stdout, "%s %s@%s: %s\n", r.JobID, r.Target, r.ResolvedBranch, r.Status)
	fmt.Fprintf(os.Stdout, "  commit:    %s\n", r.Commit)
	fmt.Fprintf(os.Stdout, "  assets:    %d\n", r.Assets)
	fmt.Fprintf(os.Stdout, "  published: %d -> %s\n", r.Published, r.PublishDir)
	for _, f := range r.RenderFailures {
		fmt.Fprintf(os.Stdout, "  failed:    %s\n", f)
	}
	if r.Error != "" {
		fmt.Fprintf(os.Stdout, "  error:     %s (stage %s)\n", r.Error, r.FailedStage)
	}
}
