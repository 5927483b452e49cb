package render

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Executor runs a single renderer process. It abstracts the external binary so tests and
// alternative strategies can stand in for it without changing the invoker.
type Executor interface {
	Execute(ctx context.Context, dir, tool string, args []string) (Output, error)
}

// Output is the captured output of one invocation.
type Output struct {
	Stdout string
	Stderr string
}

// BinaryExecutor invokes the renderer binary through os/exec.
type BinaryExecutor struct{}

func (BinaryExecutor) Execute(ctx context.Context, dir, tool string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	cmd.WaitDelay = 2 * time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

// ResolveTool returns the absolute path of tool when it exists relative to the process
// working directory, otherwise the PATH lookup result. Unresolvable names are returned
// unchanged so the failure surfaces per invocation.
func ResolveTool(tool string) string {
	if filepath.IsAbs(tool) {
		return tool
	}
	if info, err := os.Stat(tool); err == nil && !info.IsDir() {
		if abs, aerr := filepath.Abs(tool); aerr == nil {
			return abs
		}
	}
	if p, err := exec.LookPath(tool); err == nil {
		if abs, aerr := filepath.Abs(p); aerr == nil {
			return abs
		}
		return p
	}
	return tool
}
