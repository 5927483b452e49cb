package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
	"git.home.luguber.info/inful/mapbuilder/internal/observability"
	"git.home.luguber.info/inful/mapbuilder/internal/server/responses"
)

// Trigger names recorded with every job.
const (
	TriggerWebhook  = "webhook"
	TriggerPrewarm  = "prewarm"
	TriggerSchedule = "schedule"
	TriggerCLI      = "cli"
)

// Runner executes one pipeline run (*build.Coordinator).
type Runner interface {
	Run(ctx context.Context, target, remoteURL, branch string) *build.Report
}

// Dispatcher starts builds in their own goroutines and tracks them for status reporting and
// graceful shutdown. It does not bound concurrency; builds of the same target serialize on the
// coordinator's lock table.
type Dispatcher struct {
	runner   Runner
	recorder metrics.Recorder
	logger   *slog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[string]responses.ActiveBuild
	last   map[string]responses.FinishedBuild
}

// NewDispatcher creates a Dispatcher running jobs through runner.
func NewDispatcher(runner Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		runner:   runner,
		recorder: metrics.NoopRecorder{},
		logger:   logger,
		active:   make(map[string]responses.ActiveBuild),
		last:     make(map[string]responses.FinishedBuild),
	}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (d *Dispatcher) WithRecorder(r metrics.Recorder) *Dispatcher {
	if r != nil {
		d.recorder = r
	}
	return d
}

// TriggerBuild starts a webhook build in the background and returns its job ID.
func (d *Dispatcher) TriggerBuild(target, remoteURL, branch string) string {
	return d.Submit(TriggerWebhook, target, remoteURL, branch)
}

// Submit starts a build in the background and returns its job ID. The build runs detached
// from any request context and cannot be cancelled.
func (d *Dispatcher) Submit(trigger, target, remoteURL, branch string) string {
	id := uuid.NewString()
	d.begin(id, trigger, target, branch)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.execute(context.Background(), id, target, remoteURL, branch)
	}()
	return id
}

// RunSync runs a build on the calling goroutine and returns its report.
func (d *Dispatcher) RunSync(ctx context.Context, trigger, target, remoteURL, branch string) *build.Report {
	id := uuid.NewString()
	d.begin(id, trigger, target, branch)
	d.wg.Add(1)
	defer d.wg.Done()
	return d.execute(ctx, id, target, remoteURL, branch)
}

func (d *Dispatcher) begin(id, trigger, target, branch string) {
	d.mu.Lock()
	d.active[id] = responses.ActiveBuild{
		JobID:     id,
		Trigger:   trigger,
		Target:    target,
		Branch:    branch,
		StartedAt: time.Now(),
	}
	n := len(d.active)
	d.mu.Unlock()
	d.recorder.SetActiveBuilds(n)
	d.logger.Debug("Build dispatched",
		logfields.JobID(id),
		logfields.JobType(trigger),
		logfields.Target(target),
		logfields.Branch(branch))
}

func (d *Dispatcher) execute(ctx context.Context, id, target, remoteURL, branch string) (report *build.Report) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Build goroutine panicked",
				logfields.JobID(id),
				logfields.Target(target),
				slog.String("panic", fmt.Sprint(r)))
			report = &build.Report{JobID: id, Target: target, Branch: branch, Status: build.StatusFailed,
				Error: fmt.Sprintf("panic: %v", r), FinishedAt: time.Now()}
		}
		d.finish(id, report)
	}()
	return d.runner.Run(observability.WithBuildID(ctx, id), target, remoteURL, branch)
}

func (d *Dispatcher) finish(id string, r *build.Report) {
	d.mu.Lock()
	delete(d.active, id)
	if r != nil {
		branch := r.Branch
		if branch == "" {
			branch = r.ResolvedBranch
		}
		d.last[r.Target+"@"+branch] = responses.FinishedBuild{
			JobID:      id,
			Target:     r.Target,
			Branch:     branch,
			Status:     string(r.Status),
			Commit:     r.Commit,
			Published:  r.Published,
			Error:      r.Error,
			FinishedAt: r.FinishedAt,
		}
	}
	n := len(d.active)
	d.mu.Unlock()
	d.recorder.SetActiveBuilds(n)
}

// ActiveBuilds returns running and lock-waiting builds, oldest first.
func (d *Dispatcher) ActiveBuilds() []responses.ActiveBuild {
	d.mu.Lock()
	out := make([]responses.ActiveBuild, 0, len(d.active))
	for _, b := range d.active {
		out = append(out, b)
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// LastBuilds returns the most recent finished build per target and branch.
func (d *Dispatcher) LastBuilds() []responses.FinishedBuild {
	d.mu.Lock()
	out := make([]responses.FinishedBuild, 0, len(d.last))
	for _, b := range d.last {
		out = append(out, b)
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Branch < out[j].Branch
	})
	return out
}

// Wait blocks until every dispatched build has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
