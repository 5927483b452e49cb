// Package config loads the mapbuilder configuration from YAML, .env files and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

// Config is the complete process configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Webhook       WebhookConfig       `yaml:"webhook"`
	Filter        FilterConfig        `yaml:"filter"`
	Storage       StorageConfig       `yaml:"storage"`
	Git           GitConfig           `yaml:"git"`
	Render        RenderConfig        `yaml:"render"`
	DefaultTarget DefaultTargetConfig `yaml:"default_target"`
	Notify        NotifyConfig        `yaml:"notify"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Listen            string        `yaml:"listen"`
	WebhookPath       string        `yaml:"webhook_path"`
	MapsPath          string        `yaml:"maps_path"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// WebhookConfig configures webhook verification and acceptance.
type WebhookConfig struct {
	Secret      string        `yaml:"secret"`
	TrackedRefs []string      `yaml:"tracked_refs"`
	DedupWindow time.Duration `yaml:"dedup_window"`
}

// FilterConfig configures the compare lookup that decides whether a push touched assets.
type FilterConfig struct {
	TrackedPrefix string        `yaml:"tracked_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
	Token         string        `yaml:"token,omitempty"`
}

// StorageConfig holds the on-disk roots for working copies and published sets.
type StorageConfig struct {
	CacheDir   string `yaml:"cache_dir"`
	PublishDir string `yaml:"publish_dir"`
}

// GitConfig holds optional credentials for private remotes.
type GitConfig struct {
	Token string `yaml:"token,omitempty"`
}

// RenderConfig describes the external renderer and the asset layout it works on.
type RenderConfig struct {
	Tool      string        `yaml:"tool"`
	Args      []string      `yaml:"args"`
	AssetsDir string        `yaml:"assets_dir"`
	AssetExt  string        `yaml:"asset_ext"`
	OutputDir string        `yaml:"output_dir"`
	Timeout   time.Duration `yaml:"timeout"` // per invocation, 0 disables
}

// DefaultTargetConfig is the repository built at startup and, optionally, on a schedule.
type DefaultTargetConfig struct {
	Name            string        `yaml:"name"`
	Remote          string        `yaml:"remote"`
	Branch          string        `yaml:"branch"`
	Prewarm         *bool         `yaml:"prewarm,omitempty"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// PrewarmEnabled reports whether the default target is built at startup when unpublished.
func (d DefaultTargetConfig) PrewarmEnabled() bool {
	return d.Prewarm == nil || *d.Prewarm
}

// NotifyConfig configures build notifications over NATS JetStream. An empty URL disables them.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Load reads configuration from configPath. An empty path or a missing file yields a
// configuration built from defaults and the environment alone.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			// Expand environment variables in the YAML content
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, errors.ConfigError("failed to unmarshal config").
					WithCause(err).
					WithContext("path", configPath).
					Build()
			}
		case os.IsNotExist(err):
			// env-only operation
		default:
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
				WithContext("path", configPath).
				Fatal().
				Build()
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := &Config{
		Webhook: WebhookConfig{
			Secret:      "${GITHUB_SECRET}",
			TrackedRefs: []string{"refs/heads/master"},
		},
	}
	applyDefaults(example)

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
