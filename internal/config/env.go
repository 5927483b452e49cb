package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables recognised on top of ${VAR} expansion in the YAML file.
const (
	EnvSecret        = "GITHUB_SECRET"
	EnvDefaultName   = "DEFAULT_NAME"
	EnvDefaultRemote = "DEFAULT_REMOTE"
	EnvDefaultBranch = "DEFAULT_BRANCH"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads every present .env file. Variables already set in the process
// environment are never overridden.
func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			slog.Warn("Failed to load env file", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("file", name))
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvSecret); v != "" {
		cfg.Webhook.Secret = v
	}
	if v := os.Getenv(EnvDefaultName); v != "" {
		cfg.DefaultTarget.Name = v
	}
	if v := os.Getenv(EnvDefaultRemote); v != "" {
		cfg.DefaultTarget.Remote = v
	}
	if v := os.Getenv(EnvDefaultBranch); v != "" {
		cfg.DefaultTarget.Branch = v
	}
}
