package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"

	DefaultAPIURL    = "https://api.anthropic.com"
	DefaultOpenAIURL = "https://llm.chutes.ai"
	DefaultModel     = "moonshotai/Kimi-K2-Thinking"
	DefaultMaxTokens = 4096
)

// Config mirrors the editor-side chat settings. Pointer fields stay nil when
// unset so the clients can leave them out of the request body.
type Config struct {
	Provider       string   `json:"provider,omitempty" yaml:"provider,omitempty"`
	APIURL         string   `json:"apiUrl,omitempty" yaml:"api_url,omitempty"`
	OpenAIURL      string   `json:"openaiUrl,omitempty" yaml:"openai_url,omitempty"`
	Model          string   `json:"model,omitempty" yaml:"model,omitempty"`
	MaxTokens      int      `json:"maxTokens,omitempty" yaml:"max_tokens,omitempty"`
	EnableTools    *bool    `json:"enableTools,omitempty" yaml:"enable_tools,omitempty"`
	System         string   `json:"system,omitempty" yaml:"system,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	StopSequences  []string `json:"stopSequences,omitempty" yaml:"stop_sequences,omitempty"`
	TopP           *float64 `json:"topP,omitempty" yaml:"top_p,omitempty"`
	TopK           *int     `json:"topK,omitempty" yaml:"top_k,omitempty"`
	MetadataUserID string   `json:"metadataUserId,omitempty" yaml:"metadata_user_id,omitempty"`
	ToolChoice     string   `json:"toolChoice,omitempty" yaml:"tool_choice,omitempty"`
}

// ToolsEnabled reports whether tool definitions may be sent. Tools are on
// unless explicitly disabled.
func (c *Config) ToolsEnabled() bool {
	return c.EnableTools == nil || *c.EnableTools
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}

	if c.OpenAIURL == "" {
		c.OpenAIURL = DefaultOpenAIURL
	}

	if c.Model == "" {
		c.Model = DefaultModel
	}

	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}

	if c.EnableTools == nil {
		enabled := true
		c.EnableTools = &enabled
	}

	c.APIURL = strings.TrimRight(c.APIURL, "/")
	c.OpenAIURL = strings.TrimRight(c.OpenAIURL, "/")
}

// Validate returns one message per problem found.
func (c *Config) Validate() []string {
	var problems []string

	switch c.Provider {
	case "", "claude", "openai":
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q (want claude or openai)", c.Provider))
	}

	if c.APIURL == "" {
		problems = append(problems, "API URL is required")
	}

	if c.Model == "" {
		problems = append(problems, "model is required")
	}

	if c.MaxTokens <= 0 {
		problems = append(problems, "maxTokens must be positive")
	}

	if c.TopK != nil && *c.TopK < 0 {
		problems = append(problems, "topK must not be negative")
	}

	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		problems = append(problems, "temperature must be between 0 and 2")
	}

	return problems
}

type Manager struct {
	baseDir     string
	jsonPath    string
	yamlPath    string
	configValue atomic.Value
}

func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir:  baseDir,
		jsonPath: filepath.Join(baseDir, DefaultConfigFilename),
		yamlPath: filepath.Join(baseDir, DefaultYAMLFilename),
	}
}

// Load reads config.yaml if present, otherwise config.json.
func (m *Manager) Load() (*Config, error) {
	var cfg Config

	if m.HasYAML() {
		data, err := os.ReadFile(m.yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml config: %w", err)
		}
	} else {
		data, err := os.ReadFile(m.jsonPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg.applyDefaults()

	m.configValue.Store(&cfg)

	return &cfg, nil
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		// Missing or broken file still yields a usable config
		return Default()
	}

	return cfg
}

// Save writes the config in the format already on disk, JSON by default.
func (m *Manager) Save(cfg *Config) error {
	if m.HasYAML() {
		return m.SaveAsYAML(cfg)
	}

	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(m.jsonPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.store(cfg)

	return nil
}

func (m *Manager) SaveAsYAML(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml config: %w", err)
	}

	if err := os.WriteFile(m.yamlPath, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.store(cfg)

	return nil
}

// CreateExampleYAML writes a commented starter config.yaml.
func (m *Manager) CreateExampleYAML() error {
	if err := os.MkdirAll(m.baseDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	example := fmt.Sprintf(`# chat-bridge configuration
# provider: claude or openai. Leave empty to detect from api_url.
provider: claude
api_url: %q
openai_url: %q
model: %q
max_tokens: %d
enable_tools: true
tool_choice: auto
# temperature: 1.0
# top_p: 1.0
# top_k: 40
# stop_sequences: ["</answer>"]
# metadata_user_id: someone
`, DefaultAPIURL, DefaultOpenAIURL, DefaultModel, DefaultMaxTokens)

	if err := os.WriteFile(m.yamlPath, []byte(example), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (m *Manager) store(cfg *Config) {
	stored := *cfg
	stored.applyDefaults()
	m.configValue.Store(&stored)
}

// GetPath returns the file Load would read.
func (m *Manager) GetPath() string {
	if m.HasYAML() {
		return m.yamlPath
	}

	return m.jsonPath
}

func (m *Manager) BaseDir() string {
	return m.baseDir
}

func (m *Manager) Exists() bool {
	return m.HasYAML() || m.HasJSON()
}

func (m *Manager) HasYAML() bool {
	_, err := os.Stat(m.yamlPath)
	return err == nil
}

func (m *Manager) HasJSON() bool {
	_, err := os.Stat(m.jsonPath)
	return err == nil
}
