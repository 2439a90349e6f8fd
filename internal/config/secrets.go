package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	ClaudeKeyEnv = "CLAUDE_API_KEY"
	OpenAIKeyEnv = "OPENAI_API_KEY"

	DefaultEnvFilename = ".env"
)

// Secrets hands out API keys by provider name ("claude", "openai").
type Secrets interface {
	APIKey(provider string) string
}

// EnvSecrets reads keys from the process environment, seeded from an optional
// .env file in the config directory.
type EnvSecrets struct{}

// NewEnvSecrets loads <baseDir>/.env without overriding variables that are
// already set. A missing file is not an error.
func NewEnvSecrets(baseDir string) (*EnvSecrets, error) {
	envPath := filepath.Join(baseDir, DefaultEnvFilename)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, err
		}
	}

	return &EnvSecrets{}, nil
}

func (s *EnvSecrets) APIKey(provider string) string {
	switch provider {
	case "claude":
		return os.Getenv(ClaudeKeyEnv)
	case "openai":
		return os.Getenv(OpenAIKeyEnv)
	default:
		return ""
	}
}

// SaveKey stores a key in <baseDir>/.env, keeping the other entries.
func SaveKey(baseDir, provider, key string) error {
	envPath := filepath.Join(baseDir, DefaultEnvFilename)

	values, err := godotenv.Read(envPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		values = map[string]string{}
	case err != nil:
		return fmt.Errorf("read %s: %w", envPath, err)
	}

	switch provider {
	case "openai":
		values[OpenAIKeyEnv] = key
	default:
		values[ClaudeKeyEnv] = key
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return err
	}

	return godotenv.Write(values, envPath)
}

// StaticSecrets is a fixed provider -> key table.
type StaticSecrets map[string]string

func (s StaticSecrets) APIKey(provider string) string {
	return s[provider]
}
