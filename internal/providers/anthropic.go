package providers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Davincible/chat-bridge/internal/config"
)

const anthropicMessagesPath = "/v1/messages"

type anthropicMetadata struct {
	UserID string `json:"user_id"`
}

type anthropicRequest struct {
	Model         string             `json:"model"`
	Messages      []map[string]any   `json:"messages"`
	MaxTokens     int                `json:"max_tokens"`
	Stream        bool               `json:"stream,omitempty"`
	System        string             `json:"system,omitempty"`
	Temperature   *float64           `json:"temperature,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
	TopP          *float64           `json:"top_p,omitempty"`
	TopK          *int               `json:"top_k,omitempty"`
	Metadata      *anthropicMetadata `json:"metadata,omitempty"`
	Tools         []Tool             `json:"tools,omitempty"`
	ToolChoice    any                `json:"tool_choice,omitempty"`
}

// AnthropicClient talks to an Anthropic-style /v1/messages endpoint.
type AnthropicClient struct {
	settings   Settings
	secrets    config.Secrets
	httpClient *http.Client
	logger     *slog.Logger
	inflight   inflight
}

func NewAnthropicClient(settings Settings, secrets config.Secrets, httpClient *http.Client, logger *slog.Logger) *AnthropicClient {
	return &AnthropicClient{
		settings:   settings,
		secrets:    secrets,
		httpClient: orDefaultClient(httpClient),
		logger:     orDefaultLogger(logger),
	}
}

func (c *AnthropicClient) Kind() ProviderKind {
	return ProviderClaude
}

func (c *AnthropicClient) Configured() bool {
	return c.secrets.APIKey(string(ProviderClaude)) != ""
}

func (c *AnthropicClient) Endpoint() string {
	return c.settings.Get().APIURL + anthropicMessagesPath
}

func (c *AnthropicClient) Cancel() {
	c.inflight.Cancel()
}

// Chat sends the conversation and returns the full reply. When OnStream is
// set the reply is streamed and text is forwarded as it arrives.
func (c *AnthropicClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	apiKey := c.secrets.APIKey(string(ProviderClaude))
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := c.settings.Get()

	ctx, release := c.inflight.begin(ctx)
	defer release()

	body := c.buildRequest(cfg, req)
	url := cfg.APIURL + anthropicMessagesPath

	c.logger.Debug("Sending messages request", "url", url, "model", body.Model, "tools", len(body.Tools), "stream", body.Stream)

	resp, err := postJSON(ctx, c.httpClient, url, apiKey, body)
	if err != nil {
		return nil, err
	}

	// Some gateways reject tool schemas outright; one retry without them
	if resp.StatusCode == http.StatusBadRequest && len(body.Tools) > 0 {
		discard(resp)

		c.logger.Warn("Request with tools rejected, retrying without tools", "tools", len(body.Tools))

		body.Tools = nil
		body.ToolChoice = nil

		resp, err = postJSON(ctx, c.httpClient, url, apiKey, body)
		if err != nil {
			return nil, err
		}
	}

	if !isSuccess(resp) {
		return nil, readError(resp)
	}

	if req.OnStream != nil {
		return consumeStream(ctx, resp, NewAnthropicDecoder(guardedEmit(ctx, req.OnStream), c.logger))
	}

	var out Response
	if err := readJSON(ctx, resp, &out); err != nil {
		return nil, err
	}

	out.StopReason = normalizeStopReason(out.StopReason)

	return &out, nil
}

// SendWithToolResults appends all results as one user turn and continues
// the conversation.
func (c *AnthropicClient) SendWithToolResults(ctx context.Context, req ChatRequest, results []ToolResult) (*Response, error) {
	if len(results) > 0 {
		items := make([]ContentItem, 0, len(results))
		for _, r := range results {
			items = append(items, ContentItem{
				Type:      ContentTypeToolResult,
				ToolUseID: r.ToolUseID,
				Content:   r.Content,
			})
		}

		req.Messages = append(append([]Message{}, req.Messages...), Message{Role: RoleUser, Items: items})
	}

	return c.Chat(ctx, req)
}

func (c *AnthropicClient) buildRequest(cfg *config.Config, req ChatRequest) *anthropicRequest {
	model := req.ModelID
	if model == "" {
		model = cfg.Model
	}

	body := &anthropicRequest{
		Model:         model,
		Messages:      anthropicMessages(req.Messages),
		MaxTokens:     cfg.MaxTokens,
		Stream:        req.OnStream != nil,
		System:        cfg.System,
		Temperature:   cfg.Temperature,
		StopSequences: cfg.StopSequences,
		TopP:          cfg.TopP,
	}

	if cfg.TopK != nil && *cfg.TopK > 0 {
		body.TopK = cfg.TopK
	}

	if cfg.MetadataUserID != "" {
		body.Metadata = &anthropicMetadata{UserID: cfg.MetadataUserID}
	}

	if len(req.Tools) > 0 && cfg.ToolsEnabled() {
		body.Tools = req.Tools
		body.ToolChoice = AnthropicToolChoice(cfg.ToolChoice)
	}

	return body
}

func anthropicMessages(messages []Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))

	for _, msg := range messages {
		if msg.Items == nil {
			out = append(out, map[string]any{"role": msg.Role, "content": msg.Text})
			continue
		}

		content := make([]map[string]any, 0, len(msg.Items))

		for _, item := range msg.Items {
			switch item.Type {
			case ContentTypeText:
				content = append(content, map[string]any{"type": ContentTypeText, "text": item.Text})
			case ContentTypeImage:
				content = append(content, map[string]any{
					"type": ContentTypeImage,
					"source": map[string]any{
						"type": "url",
						"url":  item.URL,
					},
				})
			case ContentTypeToolResult:
				content = append(content, map[string]any{
					"type":        ContentTypeToolResult,
					"tool_use_id": item.ToolUseID,
					"content":     item.Content,
				})
			}
		}

		out = append(out, map[string]any{"role": msg.Role, "content": content})
	}

	return out
}
