package config

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Webhook.Secret) == "" {
		return errors.ConfigError("webhook secret is required").
			WithContext("env", EnvSecret).
			Build()
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return errors.ConfigError(fmt.Sprintf("webhook path must start with '/': %q", c.Server.WebhookPath)).Build()
	}
	if !strings.HasPrefix(c.Server.MapsPath, "/") || !strings.HasSuffix(c.Server.MapsPath, "/") {
		return errors.ConfigError(fmt.Sprintf("maps path must start and end with '/': %q", c.Server.MapsPath)).Build()
	}
	for _, ref := range c.Webhook.TrackedRefs {
		if !strings.HasPrefix(ref, "refs/heads/") {
			return errors.ConfigError(fmt.Sprintf("tracked ref must be a branch ref (refs/heads/...): %q", ref)).Build()
		}
	}
	if c.Storage.CacheDir == c.Storage.PublishDir {
		return errors.ConfigError("cache_dir and publish_dir must differ").
			WithContext("dir", c.Storage.CacheDir).
			Build()
	}
	if strings.Count(c.DefaultTarget.Name, "/") != 1 {
		return errors.ConfigError(fmt.Sprintf("default target name must be owner/repo: %q", c.DefaultTarget.Name)).Build()
	}
	if c.Render.Timeout < 0 || c.Filter.Timeout < 0 {
		return errors.ConfigError("timeouts must not be negative").Build()
	}
	return nil
}

// BranchForRef returns the branch name of a tracked ref and whether the ref is tracked.
func (c *Config) BranchForRef(ref string) (string, bool) { return c.Webhook.BranchForRef(ref) }

// BranchForRef returns the branch name of a tracked ref and whether the ref is tracked.
func (w WebhookConfig) BranchForRef(ref string) (string, bool) {
	for _, tracked := range w.TrackedRefs {
		if ref == tracked {
			return strings.TrimPrefix(ref, "refs/heads/"), true
		}
	}
	return "", false
}
