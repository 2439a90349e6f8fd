package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Davincible/chat-bridge/internal/config"
	"github.com/Davincible/chat-bridge/internal/tokens"
	"github.com/Davincible/chat-bridge/internal/toolcall"
)

type ProviderStatus string

const (
	StatusConfigured    ProviderStatus = "configured"
	StatusNotConfigured ProviderStatus = "not_configured"
	StatusError         ProviderStatus = "error"
)

// SettingsStore is Settings that can also persist changes.
type SettingsStore interface {
	Settings
	Save(cfg *config.Config) error
}

type clientOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
}

type ClientOption func(*clientOptions)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = client }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = logger }
}

// Router dispatches calls to the client of the current provider.
type Router struct {
	registry  *Registry
	settings  Settings
	counter   *tokens.Counter
	extractor *toolcall.Extractor
	logger    *slog.Logger

	mu      sync.RWMutex
	current ProviderKind

	// active is the client serving the latest call, until that call returns
	active    Client
	activeSeq uint64
}

func NewRouter(registry *Registry, settings Settings, logger *slog.Logger) *Router {
	logger = orDefaultLogger(logger)

	r := &Router{
		registry:  registry,
		settings:  settings,
		counter:   tokens.NewCounter(logger),
		extractor: toolcall.NewExtractor(logger),
		logger:    logger,
	}
	r.current = r.resolve(settings.Get())

	return r
}

// resolve picks a provider from config: the explicit setting first, then the
// API URL's domain, then Claude.
func (r *Router) resolve(cfg *config.Config) ProviderKind {
	if cfg.Provider != "" {
		kind, err := ParseProviderKind(cfg.Provider)
		if err == nil {
			return kind
		}

		r.logger.Warn("Ignoring provider setting", "error", err)
	}

	if kind, err := r.registry.GetByDomain(cfg.APIURL); err == nil {
		return kind
	}

	return ProviderClaude
}

// Refresh re-reads the provider selection from cfg. It is safe to call while
// a chat is in flight.
func (r *Router) Refresh(cfg *config.Config) {
	kind := r.resolve(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()

	if kind != r.current {
		r.logger.Info("Provider changed", "from", r.current, "to", kind)
		r.current = kind
	}
}

func (r *Router) Current() ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current
}

// SetCurrent selects a provider for this process only. The next Chat
// re-reads the setting from config.
func (r *Router) SetCurrent(kind ProviderKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = kind
}

func (r *Router) client(kind ProviderKind) (Client, error) {
	client, ok := r.registry.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%s client not initialized", kind)
	}

	return client, nil
}

// Chat sends req to the current provider. The client is fixed when the call
// starts, so a provider switch mid-call does not affect it.
func (r *Router) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	kind, client, err := r.begin()
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Routing chat", "provider", kind, "endpoint", client.Endpoint())

	seq := r.track(client)
	resp, err := client.Chat(ctx, req)
	r.untrack(seq)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.nameOf(kind), err)
	}

	r.reportToolCalls(resp, req.OnToolCall)

	return resp, nil
}

func (r *Router) SendWithToolResults(ctx context.Context, req ChatRequest, results []ToolResult) (*Response, error) {
	kind, client, err := r.begin()
	if err != nil {
		return nil, err
	}

	seq := r.track(client)
	resp, err := client.SendWithToolResults(ctx, req, results)
	r.untrack(seq)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.nameOf(kind), err)
	}

	r.reportToolCalls(resp, req.OnToolCall)

	return resp, nil
}

// begin refreshes the selection from settings and captures the client that
// serves the call.
func (r *Router) begin() (ProviderKind, Client, error) {
	r.Refresh(r.settings.Get())

	kind := r.Current()

	client, err := r.client(kind)
	if err != nil {
		return kind, nil, err
	}

	return kind, client, nil
}

func (r *Router) track(client Client) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.activeSeq++
	r.active = client

	return r.activeSeq
}

func (r *Router) untrack(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeSeq == seq {
		r.active = nil
	}
}

func (r *Router) reportToolCalls(resp *Response, onToolCall func(toolcall.Call)) {
	if onToolCall == nil {
		return
	}

	for _, call := range r.extractor.ExtractFromBlocks(resp.ReasoningTexts()...) {
		onToolCall(call)
	}
}

// Cancel aborts the in-flight request. The client that started it is
// cancelled even when the provider has been switched since.
func (r *Router) Cancel() {
	r.mu.RLock()
	active := r.active
	r.mu.RUnlock()

	if active != nil {
		active.Cancel()
		return
	}

	if client, err := r.client(r.Current()); err == nil {
		client.Cancel()
	}
}

// Switch makes kind the current provider and saves the choice when the
// settings can be persisted. The target must have an API key.
func (r *Router) Switch(kind ProviderKind) error {
	if kind == r.Current() {
		return nil
	}

	client, err := r.client(kind)
	if err != nil {
		return err
	}

	if !client.Configured() {
		return fmt.Errorf("%s: %w", kind, ErrNotConfigured)
	}

	r.SetCurrent(kind)

	if store, ok := r.settings.(SettingsStore); ok {
		cfg := *store.Get()
		cfg.Provider = string(kind)

		if err := store.Save(&cfg); err != nil {
			return fmt.Errorf("save provider setting: %w", err)
		}
	}

	r.logger.Info("Switched provider", "provider", r.ProviderName())

	return nil
}

func (r *Router) Available() []ProviderKind {
	return []ProviderKind{ProviderClaude, ProviderOpenAI}
}

// Status reports whether each known provider has credentials.
func (r *Router) Status() map[ProviderKind]ProviderStatus {
	status := make(map[ProviderKind]ProviderStatus)

	for _, kind := range r.Available() {
		client, err := r.client(kind)

		switch {
		case err != nil:
			status[kind] = StatusError
		case client.Configured():
			status[kind] = StatusConfigured
		default:
			status[kind] = StatusNotConfigured
		}
	}

	return status
}

func (r *Router) nameOf(kind ProviderKind) string {
	switch kind {
	case ProviderClaude:
		return "Claude API"
	case ProviderOpenAI:
		return "OpenAI API"
	default:
		return "Unknown Provider"
	}
}

func (r *Router) ProviderName() string {
	return r.nameOf(r.Current())
}

func (r *Router) EndpointURL() string {
	client, err := r.client(r.Current())
	if err != nil {
		return r.settings.Get().APIURL
	}

	return client.Endpoint()
}

// CountTokens counts the text of every message.
func (r *Router) CountTokens(messages []Message) int {
	total := 0

	for _, msg := range messages {
		total += r.counter.Count(msg.Text)

		for _, item := range msg.Items {
			total += r.counter.Count(item.Text) + r.counter.Count(item.Content)
		}
	}

	return total
}

// CountText counts the tokens of a single string.
func (r *Router) CountText(text string) int {
	return r.counter.Count(text)
}
