package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithBuildID(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")

	if lc := GetContext(ctx); lc.BuildID != "build-123" {
		t.Errorf("expected build-123, got %s", lc.BuildID)
	}
}

func TestMultipleContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "build-1")
	ctx = WithTarget(ctx, "org/repo", "master")
	ctx = WithStage(ctx, "render")

	lc := GetContext(ctx)
	if lc.BuildID != "build-1" || lc.Target != "org/repo" || lc.Branch != "master" || lc.Stage != "render" {
		t.Errorf("unexpected log context: %+v", lc)
	}
}

func TestStageOverridesPrevious(t *testing.T) {
	ctx := WithStage(context.Background(), "sync")
	ctx = WithStage(ctx, "publish")

	if lc := GetContext(ctx); lc.Stage != "publish" {
		t.Errorf("expected publish, got %s", lc.Stage)
	}
}

func TestContextAttributesAreLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	ctx := WithTarget(WithBuildID(context.Background(), "b-7"), "org/repo", "main")
	InfoContext(ctx, "pipeline started", slog.Int("assets", 2))

	out := buf.String()
	for _, want := range []string{"build.id=b-7", "target=org/repo", "branch=main", "assets=2", "pipeline started"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output: %s", want, out)
		}
	}
}

func TestEmptyContext(t *testing.T) {
	if attrs := getLogAttrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}
}
