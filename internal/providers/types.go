package providers

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. Content is Text when Items is nil, otherwise the
// ordered Items.
type Message struct {
	Role  Role
	Text  string
	Items []ContentItem
}

func TextMessage(role Role, text string) Message {
	return Message{Role: role, Text: text}
}

// ContentItem is a single part of a structured message: text, an image URL or
// the result of an earlier tool call.
type ContentItem struct {
	Type      string
	Text      string
	URL       string
	ToolUseID string
	Content   string
}

type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type ToolResult struct {
	ToolUseID string
	Content   string
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the normalized assistant reply. It decodes directly from a
// non-streaming Anthropic-style body.
type Response struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        *Usage         `json:"usage,omitempty"`
}

type ContentBlock struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Input    map[string]any `json:"input,omitempty"`
	Thinking string         `json:"thinking,omitempty"`
}

func newResponse(id, model string) *Response {
	return &Response{
		ID:      id,
		Type:    "message",
		Role:    string(RoleAssistant),
		Content: []ContentBlock{},
		Model:   model,
	}
}

// Text concatenates every text block.
func (r *Response) Text() string {
	var sb strings.Builder

	for _, block := range r.Content {
		if block.Type == ContentTypeText {
			sb.WriteString(block.Text)
		}
	}

	return sb.String()
}

// ToolUses returns the tool_use blocks in order.
func (r *Response) ToolUses() []ContentBlock {
	var out []ContentBlock

	for _, block := range r.Content {
		if block.Type == ContentTypeToolUse {
			out = append(out, block)
		}
	}

	return out
}

// ReasoningTexts returns the text and thinking contents in block order.
func (r *Response) ReasoningTexts() []string {
	var out []string

	for _, block := range r.Content {
		switch block.Type {
		case ContentTypeText:
			out = append(out, block.Text)
		case ContentTypeThinking:
			out = append(out, block.Thinking)
		}
	}

	return out
}

// AssistantMessage folds a reply back into history as an assistant turn.
func AssistantMessage(resp *Response) Message {
	return TextMessage(RoleAssistant, resp.Text())
}
