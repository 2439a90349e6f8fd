package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Davincible/chat-bridge/internal/config"
)

const openAIChatPath = "/v1/chat/completions"

type openAIRequest struct {
	Model       string           `json:"model"`
	Messages    []map[string]any `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Stream      bool             `json:"stream,omitempty"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	ToolChoice  any              `json:"tool_choice,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message *struct {
			Content          *string `json:"content"`
			ReasoningContent string  `json:"reasoning_content"`
			ToolCalls        []struct {
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
}

// OpenAIClient talks to an OpenAI-style /v1/chat/completions endpoint.
type OpenAIClient struct {
	settings   Settings
	secrets    config.Secrets
	httpClient *http.Client
	logger     *slog.Logger
	inflight   inflight
}

func NewOpenAIClient(settings Settings, secrets config.Secrets, httpClient *http.Client, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		settings:   settings,
		secrets:    secrets,
		httpClient: orDefaultClient(httpClient),
		logger:     orDefaultLogger(logger),
	}
}

func (c *OpenAIClient) Kind() ProviderKind {
	return ProviderOpenAI
}

// apiKey prefers the OpenAI key and falls back to the Claude one, since many
// gateways accept the same key for both formats.
func (c *OpenAIClient) apiKey() string {
	if key := c.secrets.APIKey(string(ProviderOpenAI)); key != "" {
		return key
	}

	return c.secrets.APIKey(string(ProviderClaude))
}

func (c *OpenAIClient) Configured() bool {
	return c.apiKey() != ""
}

func (c *OpenAIClient) Endpoint() string {
	return c.settings.Get().OpenAIURL + openAIChatPath
}

func (c *OpenAIClient) Cancel() {
	c.inflight.Cancel()
}

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, ErrNoMessages
	}

	apiKey := c.apiKey()
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := c.settings.Get()

	ctx, release := c.inflight.begin(ctx)
	defer release()

	body := c.buildRequest(cfg, req)
	url := cfg.OpenAIURL + openAIChatPath

	c.logger.Debug("Sending chat completion request", "url", url, "model", body.Model, "tools", len(body.Tools), "stream", body.Stream)

	resp, err := postJSON(ctx, c.httpClient, url, apiKey, body)
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp) {
		return nil, readError(resp)
	}

	if req.OnStream != nil {
		return consumeStream(ctx, resp, NewOpenAIDecoder(guardedEmit(ctx, req.OnStream), c.logger))
	}

	var out openAIResponse
	if err := readJSON(ctx, resp, &out); err != nil {
		return nil, err
	}

	return c.convertResponse(&out)
}

// SendWithToolResults appends one user turn per result and continues the
// conversation.
func (c *OpenAIClient) SendWithToolResults(ctx context.Context, req ChatRequest, results []ToolResult) (*Response, error) {
	messages := append([]Message{}, req.Messages...)

	for _, r := range results {
		messages = append(messages, Message{
			Role: RoleUser,
			Items: []ContentItem{{
				Type:      ContentTypeToolResult,
				ToolUseID: r.ToolUseID,
				Content:   r.Content,
			}},
		})
	}

	req.Messages = messages

	return c.Chat(ctx, req)
}

func (c *OpenAIClient) buildRequest(cfg *config.Config, req ChatRequest) *openAIRequest {
	model := req.ModelID
	if model == "" {
		model = cfg.Model
	}

	messages := openAIMessages(req.Messages)
	if cfg.System != "" {
		messages = append([]map[string]any{{"role": "system", "content": cfg.System}}, messages...)
	}

	body := &openAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Stream:      req.OnStream != nil,
		Temperature: cfg.Temperature,
		Stop:        cfg.StopSequences,
		TopP:        cfg.TopP,
	}

	if len(req.Tools) > 0 && cfg.ToolsEnabled() {
		body.Tools = TransformTools(req.Tools)
		body.ToolChoice = OpenAIToolChoice(cfg.ToolChoice)
	}

	return body
}

func openAIMessages(messages []Message) []map[string]any {
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
				content = append(content, map[string]any{"type": "text", "text": item.Text})
			case ContentTypeImage:
				content = append(content, map[string]any{
					"type":      "image_url",
					"image_url": map[string]any{"url": item.URL},
				})
			case ContentTypeToolResult:
				content = append(content, map[string]any{
					"type": "text",
					"text": fmt.Sprintf("Tool result for %s: %s", item.ToolUseID, item.Content),
				})
			}
		}

		out = append(out, map[string]any{"role": msg.Role, "content": content})
	}

	return out
}

func (c *OpenAIClient) convertResponse(resp *openAIResponse) (*Response, error) {
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, ErrInvalidResponse
	}

	choice := resp.Choices[0]
	out := newResponse(resp.ID, resp.Model)
	out.Usage = resp.Usage.normalized()

	if choice.Message.ReasoningContent != "" {
		out.Content = append(out.Content, ContentBlock{Type: ContentTypeThinking, Thinking: choice.Message.ReasoningContent})
	}

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		out.Content = append(out.Content, ContentBlock{Type: ContentTypeText, Text: *choice.Message.Content})
	}

	for _, call := range choice.Message.ToolCalls {
		input, err := decodeToolArguments(call.Function.Arguments)
		if err != nil {
			c.logger.Warn("Dropping tool call with invalid arguments", "id", call.ID, "name", call.Function.Name, "error", err)
			continue
		}

		out.Content = append(out.Content, ContentBlock{
			Type:  ContentTypeToolUse,
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}

	reason := ""
	if choice.FinishReason != nil {
		reason = *choice.FinishReason
	}

	out.StopReason = ConvertStopReason(reason)

	return out, nil
}
