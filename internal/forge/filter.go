package forge

import (
	"context"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
)

// DecisionReason explains a filter outcome.
type DecisionReason string

const (
	DecisionBuild        DecisionReason = "build"
	DecisionNoChanges    DecisionReason = "no_relevant_changes"
	DecisionLookupFailed DecisionReason = "lookup_failed"
)

// Decision is the outcome of a change filter evaluation.
type Decision struct {
	Reason DecisionReason
	// MatchedPath is the first changed file under the tracked prefix.
	MatchedPath string
	// Err is set when Reason is DecisionLookupFailed.
	Err error
}

// Build reports whether a build should be triggered.
func (d Decision) Build() bool { return d.Reason == DecisionBuild }

// ChangedFilesLister is satisfied by CompareClient.
type ChangedFilesLister interface {
	ChangedFiles(ctx context.Context, compareURL, base, head string) ([]string, error)
}

// ChangeFilter decides whether a push changed anything under the tracked prefix.
type ChangeFilter struct {
	lister ChangedFilesLister
	prefix string
	logger *slog.Logger
}

// NewChangeFilter creates a filter matching file names that start with prefix.
func NewChangeFilter(lister ChangedFilesLister, prefix string, logger *slog.Logger) *ChangeFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFilter{lister: lister, prefix: prefix, logger: logger}
}

// Qualifies looks up the files changed between base and head. Lookup failures never
// trigger a build; they are reported with DecisionLookupFailed.
func (f *ChangeFilter) Qualifies(ctx context.Context, compareURL, base, head string) Decision {
	files, err := f.lister.ChangedFiles(ctx, compareURL, base, head)
	if err != nil {
		f.logger.Warn("Change lookup failed, skipping build",
			logfields.URL(ResolveCompareURL(compareURL, base, head)),
			logfields.Error(err))
		return Decision{Reason: DecisionLookupFailed, Err: err}
	}

	if p, ok := MatchPrefix(files, f.prefix); ok {
		f.logger.Debug("Tracked change found", logfields.Path(p), logfields.Count(len(files)))
		return Decision{Reason: DecisionBuild, MatchedPath: p}
	}
	return Decision{Reason: DecisionNoChanges}
}

// MatchPrefix returns the first file starting with prefix.
func MatchPrefix(files []string, prefix string) (string, bool) {
	for _, name := range files {
		if strings.HasPrefix(name, prefix) {
			return name, true
		}
	}
	return "", false
}
