package config

import (
	"runtime"
	"time"
)

const (
	DefaultListen         = ":8080"
	DefaultWebhookPath    = "/payload"
	DefaultMapsPath       = "/maps/"
	DefaultMaxBodyBytes   = 32 << 20
	DefaultTrackedRef     = "refs/heads/master"
	DefaultTrackedPrefix  = "maps/"
	DefaultCompareTimeout = 30 * time.Second

	DefaultCacheDir   = "cache"
	DefaultPublishDir = "publish"

	DefaultAssetsDir = "maps"
	DefaultAssetExt  = ".dmm"
	DefaultOutputDir = "data/minimaps"

	DefaultTargetName   = "Aurorastation/Aurora.3"
	DefaultTargetRemote = "https://github.com/Aurorastation/Aurora.3.git"
	DefaultTargetBranch = "master"

	DefaultNotifySubject = "mapbuilder.builds"
)

// DefaultRenderArgs precede the asset path on every renderer invocation.
var DefaultRenderArgs = []string{"minimap", "--disable", "icon-smoothing,fancy-layers"}

// DefaultRenderTool returns the renderer binary name for the current platform.
func DefaultRenderTool() string {
	if runtime.GOOS == "windows" {
		return "dmm-tools.exe"
	}
	return "dmm-tools"
}

func applyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.WebhookPath == "" {
		s.WebhookPath = DefaultWebhookPath
	}
	if s.MapsPath == "" {
		s.MapsPath = DefaultMapsPath
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.ReadHeaderTimeout <= 0 {
		s.ReadHeaderTimeout = 10 * time.Second
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = 30 * time.Second
	}

	if len(cfg.Webhook.TrackedRefs) == 0 {
		cfg.Webhook.TrackedRefs = []string{DefaultTrackedRef}
	}
	if cfg.Webhook.DedupWindow <= 0 {
		cfg.Webhook.DedupWindow = time.Hour
	}

	if cfg.Filter.TrackedPrefix == "" {
		cfg.Filter.TrackedPrefix = DefaultTrackedPrefix
	}
	if cfg.Filter.Timeout <= 0 {
		cfg.Filter.Timeout = DefaultCompareTimeout
	}

	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = DefaultCacheDir
	}
	if cfg.Storage.PublishDir == "" {
		cfg.Storage.PublishDir = DefaultPublishDir
	}

	r := &cfg.Render
	if r.Tool == "" {
		r.Tool = DefaultRenderTool()
	}
	if len(r.Args) == 0 {
		r.Args = append([]string(nil), DefaultRenderArgs...)
	}
	if r.AssetsDir == "" {
		r.AssetsDir = DefaultAssetsDir
	}
	if r.AssetExt == "" {
		r.AssetExt = DefaultAssetExt
	}
	if r.OutputDir == "" {
		r.OutputDir = DefaultOutputDir
	}
	if r.Timeout < 0 {
		r.Timeout = 0
	}

	d := &cfg.DefaultTarget
	if d.Name == "" {
		d.Name = DefaultTargetName
	}
	if d.Remote == "" {
		d.Remote = DefaultTargetRemote
	}
	if d.Branch == "" {
		d.Branch = DefaultTargetBranch
	}

	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
}
