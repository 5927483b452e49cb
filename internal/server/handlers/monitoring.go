package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/server/responses"
	"git.home.luguber.info/inful/mapbuilder/internal/version"
)

// StatusProvider exposes daemon state to the monitoring handlers.
type StatusProvider interface {
	StartTime() time.Time
	ActiveBuilds() []responses.ActiveBuild
	LastBuilds() []responses.FinishedBuild
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	status       StatusProvider
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(status StatusProvider) *MonitoringHandlers {
	return &MonitoringHandlers{
		status:       status,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

func (h *MonitoringHandlers) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	err := errors.ValidationError("invalid HTTP method").
		WithContext("method", r.Method).
		WithContext("allowed_method", "GET").
		Build()
	h.errorAdapter.WriteErrorResponse(w, r, err)
	return false
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	health := &responses.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		Version:      version.Version,
		Uptime:       time.Since(h.status.StartTime()).Seconds(),
		ActiveBuilds: len(h.status.ActiveBuilds()),
	}

	if err := writeJSONPretty(w, r, http.StatusOK, health); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write health response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

// HandleStatus reports running builds and the last result per target.
func (h *MonitoringHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	active := h.status.ActiveBuilds()
	state := "idle"
	if len(active) > 0 {
		state = "building"
	}
	resp := &responses.StatusResponse{
		Status:       state,
		Version:      version.Version,
		Uptime:       time.Since(h.status.StartTime()).Seconds(),
		StartTime:    h.status.StartTime(),
		ActiveBuilds: active,
		LastBuilds:   h.status.LastBuilds(),
	}

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write status response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}
