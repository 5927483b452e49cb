package build

import (
	"context"

	"git.home.luguber.info/inful/mapbuilder/internal/git"
	"git.home.luguber.info/inful/mapbuilder/internal/publish"
	"git.home.luguber.info/inful/mapbuilder/internal/render"
)

// Synchronizer brings a working copy to the tip of a branch (*git.Client).
type Synchronizer interface {
	Sync(ctx context.Context, path, remoteURL, branch string) (git.SyncResult, error)
}

// Discoverer lists the assets of a working tree (*assets.Discoverer).
type Discoverer interface {
	Discover(root string) ([]string, error)
}

// Renderer renders every asset of a working tree (*render.Invoker).
type Renderer interface {
	RenderAll(ctx context.Context, root string, assets []string) render.Summary
}

// Publisher replaces a published set with fresh outputs (*publish.Publisher).
type Publisher interface {
	Publish(publishDir, outputDir string, expected int) (publish.Result, error)
}

// Notifier is told about every finished build.
type Notifier interface {
	BuildFinished(ctx context.Context, report *Report) error
}

type noopNotifier struct{}

func (noopNotifier) BuildFinished(context.Context, *Report) error { return nil }
