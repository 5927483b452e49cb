package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultFailed  ResultLabel = "failed"
)

// BuildOutcomeLabel enumerates final build outcomes.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeDegraded BuildOutcomeLabel = "degraded" // render failures or integrity mismatch
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
)

// Recorder defines observability hooks for the build pipeline and webhook intake.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncRenderFailure()
	IncIntegrityAlert()
	IncWebhookResult(result string)
	SetActiveBuilds(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) IncRenderFailure()                          {}
func (NoopRecorder) IncIntegrityAlert()                         {}
func (NoopRecorder) IncWebhookResult(string)                    {}
func (NoopRecorder) SetActiveBuilds(int)                        {}
