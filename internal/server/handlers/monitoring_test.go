package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mapbuilder/internal/server/responses"
)

type fakeStatus struct {
	start  time.Time
	active []responses.ActiveBuild
}

func (f fakeStatus) StartTime() time.Time                  { return f.start }
func (f fakeStatus) ActiveBuilds() []responses.ActiveBuild { return f.active }
func (f fakeStatus) LastBuilds() []responses.FinishedBuild { return nil }

func TestHandleStatus(t *testing.T) {
	h := NewMonitoringHandlers(fakeStatus{
		start:  time.Now().Add(-time.Minute),
		active: []responses.ActiveBuild{{JobID: "j1", Target: "org/repo", Branch: "master"}},
	})

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp responses.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "building", resp.Status)
	require.Len(t, resp.ActiveBuilds, 1)
	require.GreaterOrEqual(t, resp.Uptime, 60.0)
}

func TestHandleHealthCheck(t *testing.T) {
	h := NewMonitoringHandlers(fakeStatus{start: time.Now()})

	rec := httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"healthy"`)

	rec = httptest.NewRecorder()
	h.HandleHealthCheck(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapsHandler(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "org", "repo", "master")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.png"), []byte("png"), 0o600))

	h := NewMapsHandler("/maps/", root)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maps/org/repo/master/test.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "png", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maps/org/repo/master/", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maps/org/repo/master/missing.png", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
