package providers

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Davincible/chat-bridge/internal/config"
	"github.com/Davincible/chat-bridge/internal/toolcall"
)

type ProviderKind string

const (
	ProviderClaude ProviderKind = "claude"
	ProviderOpenAI ProviderKind = "openai"
)

// ParseProviderKind accepts the configured provider names.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude", "anthropic":
		return ProviderClaude, nil
	case "openai":
		return ProviderOpenAI, nil
	}

	return "", fmt.Errorf("unknown provider: %q", s)
}

// Settings supplies the current configuration.
type Settings interface {
	Get() *config.Config
}

// ChatRequest is one call into a backend. Streaming is requested when
// OnStream is set. OnToolCall receives tool calls embedded in reply text.
type ChatRequest struct {
	Messages   []Message
	Tools      []Tool
	OnStream   func(string)
	ModelID    string
	OnToolCall func(toolcall.Call)
}

// Client is the capability shared by both backend shapes.
type Client interface {
	Kind() ProviderKind
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
	SendWithToolResults(ctx context.Context, req ChatRequest, results []ToolResult) (*Response, error)
	Cancel()
	Configured() bool
	Endpoint() string
}

// Registry manages client instances
type Registry struct {
	clients map[ProviderKind]Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[ProviderKind]Client),
	}
}

// Register adds a client to the registry
func (r *Registry) Register(client Client) {
	r.clients[client.Kind()] = client
}

// Get retrieves a client by kind
func (r *Registry) Get(kind ProviderKind) (Client, bool) {
	client, exists := r.clients[kind]
	return client, exists
}

// GetByDomain returns the provider kind serving an API base URL
func (r *Registry) GetByDomain(apiBase string) (ProviderKind, error) {
	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid API base URL: %w", err)
	}

	domain := strings.ToLower(u.Hostname())

	// Domain mapping to provider kinds
	domainProviderMap := map[string]ProviderKind{
		"api.anthropic.com": ProviderClaude,
		"anthropic.com":     ProviderClaude,
		"api.openai.com":    ProviderOpenAI,
		"openai.com":        ProviderOpenAI,
		"llm.chutes.ai":     ProviderOpenAI,
		"chutes.ai":         ProviderOpenAI,
		"openrouter.ai":     ProviderOpenAI,
		"api.openrouter.ai": ProviderOpenAI,
	}

	if kind, exists := domainProviderMap[domain]; exists {
		if _, found := r.Get(kind); found {
			return kind, nil
		}
	}

	return "", fmt.Errorf("no provider found for domain: %s", domain)
}

// List returns all registered provider kinds, sorted
func (r *Registry) List() []ProviderKind {
	kinds := make([]ProviderKind, 0, len(r.clients))
	for kind := range r.clients {
		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// Initialize registers both built-in clients
func (r *Registry) Initialize(settings Settings, secrets config.Secrets, opts ...ClientOption) {
	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	r.Register(NewAnthropicClient(settings, secrets, o.httpClient, o.logger))
	r.Register(NewOpenAIClient(settings, secrets, o.httpClient, o.logger))
}
