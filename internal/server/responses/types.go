// Package responses defines JSON response types used by the mapbuilder HTTP handlers.
package responses

import "time"

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       float64   `json:"uptime"`
	ActiveBuilds int       `json:"active_builds"`
}

// ActiveBuild describes one running or lock-waiting build.
type ActiveBuild struct {
	JobID     string    `json:"job_id"`
	Trigger   string    `json:"trigger"`
	Target    string    `json:"target"`
	Branch    string    `json:"branch"`
	StartedAt time.Time `json:"started_at"`
}

// FinishedBuild summarizes the latest finished build of a target.
type FinishedBuild struct {
	JobID      string    `json:"job_id"`
	Target     string    `json:"target"`
	Branch     string    `json:"branch"`
	Status     string    `json:"status"`
	Commit     string    `json:"commit,omitempty"`
	Published  int       `json:"published"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// StatusResponse represents the daemon status API response.
type StatusResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version"`
	Uptime       float64         `json:"uptime"`
	StartTime    time.Time       `json:"start_time"`
	ActiveBuilds []ActiveBuild   `json:"active_builds"`
	LastBuilds   []FinishedBuild `json:"last_builds"`
}
