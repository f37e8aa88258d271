package config

import (
	"log/slog"
	"os"

	"github.com/subosito/gotenv"
)

// Secrets are credentials read from the environment, never from YAML.
type Secrets struct {
	HFToken        string
	OpenAIKey      string
	ValkeyPassword string
}

// LoadEnv exports variables from an optional .env file (existing variables
// win) and returns the secrets found in the environment.
func LoadEnv(path string) Secrets {
	if path != "" {
		if err := gotenv.Load(path); err != nil {
			slog.Warn("[Config] No .env file found, using OS environment", slog.String("path", path))
		}
	}
	return Secrets{
		HFToken:        os.Getenv("HF_TOKEN"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
	}
}
