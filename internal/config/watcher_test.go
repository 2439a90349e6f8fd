package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)
	require.NoError(t, mgr.Save(&Config{Provider: "claude"}))

	var latest atomic.Value

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWatcher(mgr, logger, func(cfg *Config) {
		latest.Store(cfg.Provider)
	})
	require.NoError(t, err)

	w.Start()
	defer w.Stop()

	err = os.WriteFile(filepath.Join(tempDir, DefaultConfigFilename), []byte(`{"provider": "openai"}`), 0644)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, _ := latest.Load().(string)
		return v == "openai"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "openai", mgr.Get().Provider)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	tempDir := t.TempDir()
	mgr := NewManager(tempDir)
	require.NoError(t, mgr.Save(&Config{Provider: "claude"}))

	var calls atomic.Int32

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWatcher(mgr, logger, func(*Config) {
		calls.Add(1)
	})
	require.NoError(t, err)

	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("hi"), 0644))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, w.Stop())
	// Second stop is a no-op
	require.NoError(t, w.Stop())

	assert.Equal(t, int32(0), calls.Load())
}

func TestEnvSecrets(t *testing.T) {
	tempDir := t.TempDir()

	t.Setenv(ClaudeKeyEnv, "")
	t.Setenv(OpenAIKeyEnv, "from-env")

	require.NoError(t, SaveKey(tempDir, "claude", "from-file"))
	require.NoError(t, SaveKey(tempDir, "openai", "ignored"))

	// t.Setenv with an empty value still counts as set for godotenv.Load
	os.Unsetenv(ClaudeKeyEnv)

	secrets, err := NewEnvSecrets(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", secrets.APIKey("claude"))
	assert.Equal(t, "from-env", secrets.APIKey("openai"))
	assert.Empty(t, secrets.APIKey("gemini"))
}

func TestStaticSecrets(t *testing.T) {
	secrets := StaticSecrets{"claude": "k"}

	assert.Equal(t, "k", secrets.APIKey("claude"))
	assert.Empty(t, secrets.APIKey("openai"))
}

func TestSaveKey_KeepsExistingEntries(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, DefaultEnvFilename)

	require.NoError(t, os.WriteFile(envPath, []byte("OTHER=keep\n"), 0600))
	require.NoError(t, SaveKey(tempDir, "openai", "sk-new"))

	values, err := godotenv.Read(envPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"OTHER": "keep", OpenAIKeyEnv: "sk-new"}, values)
}

func TestSaveKey_MalformedFileIsNotOverwritten(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, DefaultEnvFilename)

	malformed := "OTHER=keep\nBROKEN=\"unterminated\n"
	require.NoError(t, os.WriteFile(envPath, []byte(malformed), 0600))

	err := SaveKey(tempDir, "claude", "sk-new")
	assert.Error(t, err)

	data, readErr := os.ReadFile(envPath)
	require.NoError(t, readErr)
	assert.Equal(t, malformed, string(data))
}
