package build

import (
	"time"
)

// Status is the final state of a build.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusDegraded marks a build that published, but with failed renderer invocations or an
	// output count mismatch.
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Stage names used in reports, logs and metrics.
const (
	StageSync     = "sync"
	StageDiscover = "discover"
	StageRender   = "render"
	StagePublish  = "publish"
)

// StageTiming records how long a stage took.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Report describes one pipeline run.
type Report struct {
	JobID          string        `json:"job_id"`
	Target         string        `json:"target"`
	Branch         string        `json:"branch"`
	ResolvedBranch string        `json:"resolved_branch,omitempty"`
	Commit         string        `json:"commit,omitempty"`
	Changed        bool          `json:"changed"`
	Status         Status        `json:"status"`
	Assets         int           `json:"assets"`
	Rendered       int           `json:"rendered"`
	RenderFailures []string      `json:"render_failures,omitempty"`
	Published      int           `json:"published"`
	Mismatch       bool          `json:"mismatch"`
	PublishDir     string        `json:"publish_dir,omitempty"`
	Stages         []StageTiming `json:"stages"`
	LockWait       time.Duration `json:"lock_wait"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	FailedStage    string        `json:"failed_stage,omitempty"`
	Error          string        `json:"error,omitempty"`

	Err error `json:"-"`

	current string
}

// Duration returns the wall time of the run including lock wait.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// StageDuration returns the recorded duration of a stage, or zero.
func (r *Report) StageDuration(name string) time.Duration {
	for _, s := range r.Stages {
		if s.Name == name {
			return s.Duration
		}
	}
	return 0
}

func (r *Report) fail(stage string, err error) {
	r.Status = StatusFailed
	r.FailedStage = stage
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}
