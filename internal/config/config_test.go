package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_LoadAndSave(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	temperature := 0.4
	topK := 20

	cfg := &Config{
		Provider:       "claude",
		APIURL:         "https://proxy.example.com/",
		Model:          "claude-sonnet-4-5",
		MaxTokens:      2048,
		System:         "be brief",
		Temperature:    &temperature,
		TopK:           &topK,
		StopSequences:  []string{"END"},
		MetadataUserID: "user-1",
		ToolChoice:     "auto",
	}

	// Save configuration
	if err := manager.Save(cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Verify file exists
	if !manager.Exists() {
		t.Errorf("Config file should exist after saving")
	}

	// Load configuration
	loadedCfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loadedCfg.Provider != "claude" {
		t.Errorf("Expected provider claude, got %s", loadedCfg.Provider)
	}

	if loadedCfg.APIURL != "https://proxy.example.com" {
		t.Errorf("Expected trailing slash to be trimmed, got %s", loadedCfg.APIURL)
	}

	if loadedCfg.MaxTokens != 2048 {
		t.Errorf("Expected max tokens 2048, got %d", loadedCfg.MaxTokens)
	}

	if loadedCfg.Temperature == nil || *loadedCfg.Temperature != 0.4 {
		t.Errorf("Expected temperature 0.4, got %v", loadedCfg.Temperature)
	}

	if loadedCfg.TopK == nil || *loadedCfg.TopK != 20 {
		t.Errorf("Expected topK 20, got %v", loadedCfg.TopK)
	}

	if loadedCfg.TopP != nil {
		t.Errorf("Expected unset topP to stay nil, got %v", *loadedCfg.TopP)
	}

	if len(loadedCfg.StopSequences) != 1 || loadedCfg.StopSequences[0] != "END" {
		t.Errorf("Unexpected stop sequences: %v", loadedCfg.StopSequences)
	}
}

func TestConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	// Save and load an empty configuration
	manager.Save(&Config{})
	loadedCfg, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults are applied
	if loadedCfg.APIURL != DefaultAPIURL {
		t.Errorf("Expected default API URL %s, got %s", DefaultAPIURL, loadedCfg.APIURL)
	}

	if loadedCfg.OpenAIURL != DefaultOpenAIURL {
		t.Errorf("Expected default OpenAI URL %s, got %s", DefaultOpenAIURL, loadedCfg.OpenAIURL)
	}

	if loadedCfg.Model != DefaultModel {
		t.Errorf("Expected default model %s, got %s", DefaultModel, loadedCfg.Model)
	}

	if loadedCfg.MaxTokens != DefaultMaxTokens {
		t.Errorf("Expected default max tokens %d, got %d", DefaultMaxTokens, loadedCfg.MaxTokens)
	}

	if !loadedCfg.ToolsEnabled() {
		t.Errorf("Tools should be enabled by default")
	}
}

func TestConfig_ToolsDisabled(t *testing.T) {
	disabled := false
	cfg := &Config{EnableTools: &disabled}
	cfg.applyDefaults()

	if cfg.ToolsEnabled() {
		t.Errorf("Explicitly disabled tools should stay disabled")
	}
}

func TestConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	// Create invalid JSON file
	configPath := filepath.Join(tmpDir, DefaultConfigFilename)
	os.WriteFile(configPath, []byte("invalid json"), 0644)

	// Try to load
	_, err := manager.Load()
	if err == nil {
		t.Errorf("Expected error when loading invalid JSON")
	}
}

func TestConfig_MissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	// Try to load non-existent file
	_, err := manager.Load()
	if err == nil {
		t.Errorf("Expected error when loading non-existent file")
	}

	// Check exists
	if manager.Exists() {
		t.Errorf("Non-existent config should not exist")
	}
}

func TestConfig_GetWithoutLoad(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	// Get without a file falls back to defaults
	cfg := manager.Get()
	if cfg == nil {
		t.Fatalf("Get should never return nil")
	}

	if cfg.Model != DefaultModel || cfg.MaxTokens != DefaultMaxTokens {
		t.Errorf("Unexpected config returned: %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	negative := -1
	hot := 3.5

	testCases := []struct {
		name     string
		cfg      Config
		problems int
	}{
		{"defaults are valid", *Default(), 0},
		{"unknown provider", Config{Provider: "gemini", APIURL: "x", Model: "m", MaxTokens: 1}, 1},
		{"missing url and model", Config{MaxTokens: 1}, 2},
		{"bad sampling values", Config{APIURL: "x", Model: "m", MaxTokens: 1, TopK: &negative, Temperature: &hot}, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			problems := tc.cfg.Validate()
			if len(problems) != tc.problems {
				t.Errorf("Expected %d problems, got %v", tc.problems, problems)
			}
		})
	}
}
