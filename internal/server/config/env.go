package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envFiles are loaded in order before the environment is read. Variables that
// are already set are never overridden by a file.
var envFiles = []string{".env.local", ".env"}

// parseEnv overlays CONSENTKEEPER_* variables. Unset variables keep the
// current value.
func parseEnv(config *Config) error {
	var existing []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return fmt.Errorf("load env files: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
