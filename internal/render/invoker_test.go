package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

type call struct {
	dir  string
	tool string
	args []string
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (f *fakeExecutor) Execute(_ context.Context, dir, tool string, args []string) (Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{dir: dir, tool: tool, args: args})
	if f.fail[args[len(args)-1]] {
		return Output{Stderr: "thread 'main' panicked"}, errors.New("exit status 101")
	}
	return Output{}, nil
}

var defaultArgs = []string{"minimap", "--disable", "icon-smoothing,fancy-layers"}

func TestRenderAll_InvokesOncePerAssetWithRootAsCwd(t *testing.T) {
	fe := &fakeExecutor{}
	inv := NewInvoker("/opt/dmm-tools", defaultArgs, 0, nil).WithExecutor(fe)

	assets := []string{"/wc/maps/a.dmm", "/wc/maps/b.dmm"}
	sum := inv.RenderAll(context.Background(), "/wc", assets)

	require.Equal(t, 2, sum.Invoked)
	require.Equal(t, 2, sum.Succeeded)
	require.Zero(t, sum.Failed())
	require.Len(t, fe.calls, 2)
	for i, c := range fe.calls {
		require.Equal(t, "/wc", c.dir)
		require.Equal(t, "/opt/dmm-tools", c.tool)
		require.Equal(t, []string{"minimap", "--disable", "icon-smoothing,fancy-layers", assets[i]}, c.args)
	}
}

func TestRenderAll_FailureDoesNotAbortRemaining(t *testing.T) {
	fe := &fakeExecutor{fail: map[string]bool{"/wc/maps/b.dmm": true}}
	inv := NewInvoker("/opt/dmm-tools", defaultArgs, 0, nil).WithExecutor(fe)

	sum := inv.RenderAll(context.Background(), "/wc", []string{"/wc/maps/a.dmm", "/wc/maps/b.dmm", "/wc/maps/c.dmm"})

	require.Equal(t, 3, sum.Invoked)
	require.Equal(t, 2, sum.Succeeded)
	require.Len(t, sum.Failures, 1)
	require.Equal(t, "/wc/maps/b.dmm", sum.Failures[0].Asset)
	require.True(t, ferrors.HasCategory(sum.Failures[0].Err, ferrors.CategoryRender))
	c, ok := ferrors.AsClassified(sum.Failures[0].Err)
	require.True(t, ok)
	stderr, _ := c.Context().GetString("stderr")
	require.Contains(t, stderr, "panicked")
	require.Len(t, fe.calls, 3)
}

func TestRenderAll_NoAssets(t *testing.T) {
	fe := &fakeExecutor{}
	sum := NewInvoker("dmm-tools", defaultArgs, 0, nil).WithExecutor(fe).RenderAll(context.Background(), "/wc", nil)
	require.Zero(t, sum.Invoked)
	require.Empty(t, fe.calls)
}

func TestResolveTool(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dmm-tools"), []byte("#!/bin/sh\n"), 0o700))

	resolved := ResolveTool("dmm-tools")
	require.True(t, filepath.IsAbs(resolved))
	require.Equal(t, "dmm-tools", filepath.Base(resolved))

	require.Equal(t, "definitely-not-installed-xyz", ResolveTool("definitely-not-installed-xyz"))
	require.Equal(t, "/abs/tool", ResolveTool("/abs/tool"))
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "fake-renderer.sh")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o700))
	return p
}

func TestBinaryExecutor_RunsInWorkingDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer")
	}
	root := t.TempDir()
	script := writeScript(t, t.TempDir(), `mkdir -p data/minimaps && touch "data/minimaps/$(basename "$4" .dmm).png"`+"\n")

	sum := NewInvoker(script, defaultArgs, 0, nil).RenderAll(context.Background(), root, []string{filepath.Join(root, "maps", "test.dmm")})
	require.Equal(t, 1, sum.Succeeded)
	require.FileExists(t, filepath.Join(root, "data", "minimaps", "test.png"))
}

func TestBinaryExecutor_NonZeroExitAndTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script renderer")
	}
	failing := writeScript(t, t.TempDir(), "echo broken >&2\nexit 3\n")
	sum := NewInvoker(failing, defaultArgs, 0, nil).RenderAll(context.Background(), t.TempDir(), []string{"a.dmm"})
	require.Equal(t, 1, sum.Failed())

	slow := writeScript(t, t.TempDir(), "exec sleep 5\n")
	start := time.Now()
	sum = NewInvoker(slow, defaultArgs, 100*time.Millisecond, nil).RenderAll(context.Background(), t.TempDir(), []string{"a.dmm"})
	require.Equal(t, 1, sum.Failed())
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestBinaryExecutor_MissingTool(t *testing.T) {
	sum := NewInvoker("definitely-not-installed-xyz", defaultArgs, 0, nil).RenderAll(context.Background(), t.TempDir(), []string{"a.dmm", "b.dmm"})
	require.Equal(t, 2, sum.Invoked)
	require.Equal(t, 2, sum.Failed())
}
