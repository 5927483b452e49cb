package daemon

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"git.home.luguber.info/inful/mapbuilder/internal/build"
	"git.home.luguber.info/inful/mapbuilder/internal/config"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
)

// errFound stops the walk at the first file.
var errFound = stderrors.New("found")

// NeedsPrewarm reports whether a published set is missing or holds no files at any depth.
// Published sets are flat today; nested files still count.
func NeedsPrewarm(publishDir string) bool {
	err := filepath.WalkDir(publishDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			return errFound
		}
		return nil
	})
	return !stderrors.Is(err, errFound)
}

// Prewarm builds the default target synchronously when its published set is empty. It returns
// nil when nothing had to be built.
func Prewarm(ctx context.Context, cfg *config.Config, d *Dispatcher) *build.Report {
	def := cfg.DefaultTarget
	if !def.PrewarmEnabled() {
		return nil
	}
	dir := build.PublishPath(cfg.Storage.PublishDir, def.Name, def.Branch)
	if !NeedsPrewarm(dir) {
		d.logger.Info("Default target already published, skipping prewarm", logfields.Target(def.Name), logfields.Path(dir))
		return nil
	}

	d.logger.Info("Prewarming default target", logfields.Target(def.Name), logfields.Branch(def.Branch), logfields.URL(def.Remote))
	return d.RunSync(context.WithoutCancel(ctx), TriggerPrewarm, def.Name, def.Remote, def.Branch)
}
