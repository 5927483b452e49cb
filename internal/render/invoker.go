// Package render runs the external map renderer once per asset.
package render

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
)

// Failure records one failed invocation.
type Failure struct {
	Asset string
	Err   error
}

// Summary aggregates the outcome of RenderAll.
type Summary struct {
	Invoked   int
	Succeeded int
	Failures  []Failure
	Duration  time.Duration
}

// Failed returns the number of failed invocations.
func (s Summary) Failed() int { return len(s.Failures) }

// Invoker runs the renderer for each asset of a working tree.
type Invoker struct {
	tool     string
	args     []string
	timeout  time.Duration
	executor Executor
	logger   *slog.Logger
}

// NewInvoker creates an Invoker running "<tool> <args...> <asset>". The tool is resolved
// once, relative to the process working directory. A zero timeout lets every invocation
// run to completion.
func NewInvoker(tool string, args []string, timeout time.Duration, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		tool:     ResolveTool(tool),
		args:     append([]string(nil), args...),
		timeout:  timeout,
		executor: BinaryExecutor{},
		logger:   logger,
	}
}

// WithExecutor replaces the process executor (fluent helper).
func (i *Invoker) WithExecutor(e Executor) *Invoker { i.executor = e; return i }

// Tool returns the resolved renderer path.
func (i *Invoker) Tool() string { return i.tool }

// RenderAll invokes the renderer once per asset with root as working directory. Invocations
// are independent: a failure is recorded and logged, and the remaining assets still run.
func (i *Invoker) RenderAll(ctx context.Context, root string, assets []string) Summary {
	start := time.Now()
	sum := Summary{}

	for _, asset := range assets {
		sum.Invoked++
		if err := i.renderOne(ctx, root, asset); err != nil {
			sum.Failures = append(sum.Failures, Failure{Asset: asset, Err: err})
			i.logger.Error("Renderer invocation failed", logfields.Asset(asset), logfields.Error(err))
			continue
		}
		sum.Succeeded++
	}

	sum.Duration = time.Since(start)
	i.logger.Info("Rendering finished",
		logfields.Count(sum.Succeeded),
		logfields.Expected(sum.Invoked),
		slog.Int("failed", sum.Failed()),
		logfields.DurationMS(float64(sum.Duration.Milliseconds())))
	return sum
}

func (i *Invoker) renderOne(ctx context.Context, root, asset string) error {
	runCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(i.args)+1)
	args = append(args, i.args...)
	args = append(args, asset)

	i.logger.Debug("Invoking renderer", logfields.Asset(asset), slog.String("tool", i.tool))
	out, err := i.executor.Execute(runCtx, root, i.tool, args)
	if out.Stdout != "" {
		i.logger.Debug("renderer stdout", logfields.Asset(asset), slog.String("output", out.Stdout))
	}
	if err == nil {
		return nil
	}

	b := errors.RenderError("renderer invocation failed").
		WithCause(err).
		WithContext("asset", asset).
		WithContext("tool", i.tool)
	if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
		b = b.WithContext("stderr", tail(stderr, 2048))
	}
	if runCtx.Err() == context.DeadlineExceeded {
		b = b.WithContext("timeout", i.timeout.String())
	}
	return b.Build()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
