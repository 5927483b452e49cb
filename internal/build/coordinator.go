package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/git"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
	"git.home.luguber.info/inful/mapbuilder/internal/observability"
)

// Options holds the filesystem layout used by the Coordinator.
type Options struct {
	CacheDir   string // root of working copies
	PublishDir string // root of published sets
	OutputDir  string // renderer output directory, relative to the working tree
}

// Coordinator runs the build pipeline with per-target serialization.
type Coordinator struct {
	opts      Options
	locks     *LockTable
	syncer    Synchronizer
	discover  Discoverer
	renderer  Renderer
	publisher Publisher
	notifier  Notifier
	recorder  metrics.Recorder
}

// NewCoordinator wires the pipeline stages.
func NewCoordinator(opts Options, syncer Synchronizer, discover Discoverer, renderer Renderer, publisher Publisher) *Coordinator {
	return &Coordinator{
		opts:      opts,
		locks:     NewLockTable(),
		syncer:    syncer,
		discover:  discover,
		renderer:  renderer,
		publisher: publisher,
		notifier:  noopNotifier{},
		recorder:  metrics.NoopRecorder{},
	}
}

// WithLockTable shares a lock table between coordinators (fluent helper).
func (c *Coordinator) WithLockTable(t *LockTable) *Coordinator { c.locks = t; return c }

// WithRecorder attaches a metrics recorder (fluent helper).
func (c *Coordinator) WithRecorder(r metrics.Recorder) *Coordinator {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithNotifier attaches a build notifier (fluent helper).
func (c *Coordinator) WithNotifier(n Notifier) *Coordinator {
	if n != nil {
		c.notifier = n
	}
	return c
}

// Locks exposes the lock table.
func (c *Coordinator) Locks() *LockTable { return c.locks }

// Run builds target (owner/repo) from remoteURL at branch. It blocks until the target's lock is
// free, runs sync, discover, render and publish, and always releases the lock. Errors are
// recorded in the Report; Run itself never fails.
func (c *Coordinator) Run(ctx context.Context, target, remoteURL, branch string) (report *Report) {
	start := time.Now()
	report = &Report{
		JobID:     observability.GetContext(ctx).BuildID,
		Target:    target,
		Branch:    branch,
		Status:    StatusSuccess,
		StartedAt: start,
	}
	if report.JobID == "" {
		report.JobID = uuid.NewString()
		ctx = observability.WithBuildID(ctx, report.JobID)
	}
	ctx = observability.WithTarget(ctx, target, branch)

	wcPath := WorkingCopyPath(c.opts.CacheDir, target)
	lockKey := filepath.Clean(wcPath)

	observability.DebugContext(ctx, "Waiting for target lock", logfields.Path(wcPath))
	unlock := c.locks.Lock(lockKey)
	report.LockWait = time.Since(start)
	observability.InfoContext(ctx, "Build started", logfields.DurationMS(float64(report.LockWait.Milliseconds())))

	defer func() {
		unlock()
		report.FinishedAt = time.Now()
		c.finish(ctx, report)
	}()
	defer func() {
		if r := recover(); r != nil {
			report.fail(report.current, errors.InternalError(fmt.Sprintf("build panicked: %v", r)).Build())
		}
	}()

	c.pipeline(ctx, report, wcPath, remoteURL, branch)
	return report
}

func (c *Coordinator) pipeline(ctx context.Context, report *Report, wcPath, remoteURL, branch string) {
	// 1. Sync
	var synced git.SyncResult
	err := c.stage(ctx, report, StageSync, func(sctx context.Context) error {
		var serr error
		synced, serr = c.syncer.Sync(sctx, wcPath, remoteURL, branch)
		return git.ClassifyGitError(serr, "sync", remoteURL)
	})
	if err != nil {
		if git.IsBranchNotFound(err) {
			observability.ErrorContext(ctx, "Bad target, branch does not exist on remote", logfields.Error(err))
		}
		report.fail(StageSync, err)
		return
	}
	report.ResolvedBranch = synced.Branch
	report.Commit = synced.Commit
	report.Changed = synced.Changed()
	if !report.Changed {
		observability.DebugContext(ctx, "Working copy already at remote tip", logfields.Commit(report.Commit))
	}

	publishBranch := branch
	if publishBranch == "" {
		publishBranch = synced.Branch
	}
	report.PublishDir = PublishPath(c.opts.PublishDir, report.Target, publishBranch)
	outputDir := filepath.Join(synced.Root, filepath.FromSlash(c.opts.OutputDir))

	// 2. Discover
	var found []string
	err = c.stage(ctx, report, StageDiscover, func(context.Context) error {
		var derr error
		found, derr = c.discover.Discover(synced.Root)
		return derr
	})
	if err != nil {
		report.fail(StageDiscover, err)
		return
	}
	report.Assets = len(found)

	// 3. Render
	if err := clearStaleOutputs(outputDir); err != nil {
		observability.WarnContext(ctx, "Failed to clear stale renderer outputs", logfields.Path(outputDir), logfields.Error(err))
	}
	_ = c.stage(ctx, report, StageRender, func(sctx context.Context) error {
		sum := c.renderer.RenderAll(sctx, synced.Root, found)
		report.Rendered = sum.Succeeded
		for _, f := range sum.Failures {
			report.RenderFailures = append(report.RenderFailures, f.Asset)
			c.recorder.IncRenderFailure()
		}
		if sum.Failed() > 0 {
			report.Status = StatusDegraded
			return errors.RenderError(fmt.Sprintf("%d of %d renderer invocations failed", sum.Failed(), sum.Invoked)).Build()
		}
		return nil
	})

	// 4. Publish
	err = c.stage(ctx, report, StagePublish, func(context.Context) error {
		res, perr := c.publisher.Publish(report.PublishDir, outputDir, report.Assets)
		report.Published = res.Moved
		report.Mismatch = res.Mismatch
		if res.Mismatch && report.Status == StatusSuccess {
			report.Status = StatusDegraded
		}
		return perr
	})
	if err != nil {
		report.fail(StagePublish, err)
	}
}

// stage runs fn with stage-scoped logging context, timing and metrics. Errors classified as
// warnings count as degraded stage results rather than failures.
func (c *Coordinator) stage(ctx context.Context, report *Report, name string, fn func(context.Context) error) error {
	sctx := observability.WithStage(ctx, name)
	report.current = name
	start := time.Now()
	observability.DebugContext(sctx, "Stage started")

	err := fn(sctx)

	d := time.Since(start)
	report.Stages = append(report.Stages, StageTiming{Name: name, Duration: d})
	c.recorder.ObserveStageDuration(name, d)

	switch {
	case err == nil:
		c.recorder.IncStageResult(name, metrics.ResultSuccess)
		observability.DebugContext(sctx, "Stage finished", logfields.DurationMS(float64(d.Milliseconds())))
	case errors.GetSeverity(err) == errors.SeverityWarning:
		c.recorder.IncStageResult(name, metrics.ResultWarning)
		observability.WarnContext(sctx, "Stage finished with warnings", logfields.Error(err))
	default:
		c.recorder.IncStageResult(name, metrics.ResultFailed)
		attrs := []slog.Attr{logfields.Error(err)}
		if ce, ok := errors.AsClassified(err); ok {
			attrs = append(attrs, slog.String("category", string(ce.Category())), slog.Bool("retryable", ce.CanRetry()))
		}
		observability.ErrorContext(sctx, "Stage failed", attrs...)
	}
	return err
}

func (c *Coordinator) finish(ctx context.Context, report *Report) {
	d := report.Duration()
	c.recorder.ObserveBuildDuration(d)
	switch report.Status {
	case StatusSuccess:
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	case StatusDegraded:
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeDegraded)
	default:
		c.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}

	attrs := []slog.Attr{
		slog.String("status", string(report.Status)),
		logfields.Commit(report.Commit),
		logfields.Count(report.Published),
		logfields.Expected(report.Assets),
		slog.Int("render_failures", len(report.RenderFailures)),
		logfields.DurationMS(float64(d.Milliseconds())),
	}
	if report.Status == StatusFailed {
		attrs = append(attrs, logfields.Stage(report.FailedStage), slog.String("error", report.Error))
		observability.ErrorContext(ctx, "Build failed", attrs...)
	} else {
		observability.InfoContext(ctx, "Build finished", attrs...)
	}

	if err := c.notifier.BuildFinished(ctx, report); err != nil {
		observability.WarnContext(ctx, "Failed to send build notification", logfields.Error(err))
	}
}

// clearStaleOutputs removes leftovers of an earlier interrupted run so they are not published
// as outputs of this one.
func clearStaleOutputs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
