package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/observability"
)

// blockingRunner blocks every run until release is closed.
type blockingRunner struct {
	release chan struct{}
	started chan string

	mu   sync.Mutex
	runs []string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{release: make(chan struct{}), started: make(chan string, 16)}
}

func (b *blockingRunner) Run(ctx context.Context, target, _, branch string) *build.Report {
	id := observability.GetContext(ctx).BuildID
	b.started <- id
	<-b.release
	b.mu.Lock()
	b.runs = append(b.runs, target)
	b.mu.Unlock()
	return &build.Report{JobID: id, Target: target, Branch: branch, Status: build.StatusSuccess, Published: 1, FinishedAt: time.Now()}
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string, string, string) *build.Report { panic("boom") }

func TestDispatcher_SubmitTracksActiveBuilds(t *testing.T) {
	r := newBlockingRunner()
	d := NewDispatcher(r, nil)

	id := d.TriggerBuild("org/repo", "https://example.com/org/repo.git", "master")
	require.NotEmpty(t, id)
	require.Equal(t, id, <-r.started)

	active := d.ActiveBuilds()
	require.Len(t, active, 1)
	require.Equal(t, TriggerWebhook, active[0].Trigger)
	require.Equal(t, "org/repo", active[0].Target)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(r.release)
	require.NoError(t, d.Wait(context.Background()))
	require.Empty(t, d.ActiveBuilds())

	last := d.LastBuilds()
	require.Len(t, last, 1)
	require.Equal(t, id, last[0].JobID)
	require.Equal(t, "success", last[0].Status)
}

func TestDispatcher_RunSync(t *testing.T) {
	r := newBlockingRunner()
	close(r.release)
	d := NewDispatcher(r, nil)

	rep := d.RunSync(context.Background(), TriggerCLI, "org/repo", "remote", "dev")
	require.Equal(t, build.StatusSuccess, rep.Status)
	require.NotEmpty(t, rep.JobID)
	require.Empty(t, d.ActiveBuilds())
}

func TestDispatcher_RecoversRunnerPanic(t *testing.T) {
	d := NewDispatcher(panicRunner{}, nil)

	d.Submit(TriggerWebhook, "org/repo", "remote", "master")
	require.NoError(t, d.Wait(context.Background()))
	require.Empty(t, d.ActiveBuilds())

	last := d.LastBuilds()
	require.Len(t, last, 1)
	require.Equal(t, "failed", last[0].Status)
	require.Contains(t, last[0].Error, "boom")
}
