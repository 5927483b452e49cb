package daemon

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mapbuilder/internal/config"
	"git.home.luguber.info/inful/mapbuilder/internal/forge"
	"git.home.luguber.info/inful/mapbuilder/internal/notify"
)

type alwaysBuild struct{}

func (alwaysBuild) Qualifies(context.Context, string, string, string) forge.Decision {
	return forge.Decision{Reason: forge.DecisionBuild, MatchedPath: "maps/a.dmm"}
}

func daemonConfig(t *testing.T) *config.Config {
	t.Helper()
	off := false
	cfg := &config.Config{}
	cfg.Server = config.ServerConfig{Listen: "127.0.0.1:0", WebhookPath: "/payload", MapsPath: "/maps/", ShutdownTimeout: time.Second}
	cfg.Storage = config.StorageConfig{CacheDir: t.TempDir(), PublishDir: t.TempDir()}
	cfg.Webhook = config.WebhookConfig{Secret: "old", TrackedRefs: []string{"refs/heads/master"}}
	cfg.DefaultTarget = config.DefaultTargetConfig{Name: "org/repo", Remote: "remote", Branch: "master", Prewarm: &off}
	return cfg
}

func signed(body, secret string) *http.Request {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	req := httptest.NewRequest(http.MethodPost, "/payload", strings.NewReader(body))
	req.Header.Set(forge.HeaderEvent, forge.EventPush)
	req.Header.Set(forge.HeaderSignature256, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

const daemonPush = `{"ref":"refs/heads/master","before":"a","after":"b","repository":{"full_name":"org/repo","clone_url":"https://example.com/org/repo.git","compare_url":"https://example.com/compare/{base}...{head}"}}`

func TestDaemon_WebhookDispatchesAndReloadRotatesSecret(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	d, err := New(context.Background(), daemonConfig(t), "", Options{Runner: runner, Filter: alwaysBuild{}, Notifier: notify.Nop{}})
	require.NoError(t, err)
	h := d.http.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signed(daemonPush, "old"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, d.Dispatcher().Wait(context.Background()))
	require.Equal(t, []string{"org/repo"}, runner.runs)

	newCfg := daemonConfig(t)
	newCfg.Webhook.Secret = "new"
	require.NoError(t, d.ReloadConfig(newCfg))
	require.Equal(t, "new", d.WebhookSettings().Secret)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signed(daemonPush, "old"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signed(daemonPush, "new"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, d.Dispatcher().Wait(context.Background()))
}

func TestDaemon_RunStopsOnCancel(t *testing.T) {
	runner := newBlockingRunner()
	close(runner.release)
	cfg := daemonConfig(t)
	cfg.DefaultTarget.RefreshInterval = time.Hour
	d, err := New(context.Background(), cfg, "", Options{Runner: runner, Filter: alwaysBuild{}, Notifier: notify.Nop{}})
	require.NoError(t, err)
	require.NotNil(t, d.scheduler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
