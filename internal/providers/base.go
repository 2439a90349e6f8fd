package providers

import (
	"encoding/json"
	"strings"
)

const (
	// Content types
	ContentTypeText       = "text"
	ContentTypeToolUse    = "tool_use"
	ContentTypeThinking   = "thinking"
	ContentTypeImage      = "image"
	ContentTypeToolResult = "tool_result"

	// Stop reason constants
	StopReasonEndTurn      = "end_turn"
	StopReasonMaxTokens    = "max_tokens"
	StopReasonToolUse      = "tool_use"
	StopReasonStopSequence = "stop_sequence"

	ContentTypeEventStream = "text/event-stream"
)

// Markers forwarded on the stream callback so reasoning and answer can be told
// apart on a single text channel.
const (
	ThinkingMarker = "\n🤔 **Thinking:**\n"
	ResponseMarker = "\n\n**Response:**\n"
)

// ConvertStopReason converts OpenAI-style finish reasons to the Anthropic
// vocabulary. Anything unknown ends the turn.
func ConvertStopReason(reason string) *string {
	mapping := map[string]string{
		"stop":           StopReasonEndTurn,
		"length":         StopReasonMaxTokens,
		"tool_calls":     StopReasonToolUse,
		"function_call":  StopReasonToolUse,
		"content_filter": StopReasonEndTurn,
		"null":           StopReasonEndTurn,
		"":               StopReasonEndTurn,
	}

	if anthropicReason, exists := mapping[reason]; exists {
		return &anthropicReason
	}

	defaultReason := StopReasonEndTurn

	return &defaultReason
}

// normalizeStopReason keeps native Anthropic reasons and converts the rest,
// for Anthropic-style gateways that pass OpenAI reasons through.
func normalizeStopReason(reason *string) *string {
	if reason == nil {
		return nil
	}

	switch *reason {
	case StopReasonEndTurn, StopReasonMaxTokens, StopReasonToolUse, StopReasonStopSequence, "pause_turn", "refusal":
		r := *reason
		return &r
	}

	return ConvertStopReason(*reason)
}

// TransformTools converts tools to the OpenAI function format.
func TransformTools(tools []Tool) []map[string]any {
	transformedTools := make([]map[string]any, 0, len(tools))

	for _, tool := range tools {
		if tool.Name == "" {
			continue
		}

		function := map[string]any{
			"name": tool.Name,
		}

		if tool.Description != "" {
			function["description"] = tool.Description
		}

		if tool.InputSchema != nil {
			function["parameters"] = tool.InputSchema
		}

		transformedTools = append(transformedTools, map[string]any{
			"type":     "function",
			"function": function,
		})
	}

	return transformedTools
}

// parseToolChoice decodes a configured tool choice: "auto", "any", "none", a
// JSON object such as {"type":"tool","name":"x"}, or a bare tool name.
func parseToolChoice(choice string) (kind, name string, raw map[string]any) {
	choice = strings.TrimSpace(choice)

	switch choice {
	case "":
		return "", "", nil
	case "auto", "none":
		return choice, "", nil
	case "any", "required":
		return "any", "", nil
	}

	if strings.HasPrefix(choice, "{") {
		if err := json.Unmarshal([]byte(choice), &raw); err != nil {
			return "auto", "", nil
		}

		kind, _ = raw["type"].(string)
		name, _ = raw["name"].(string)

		return kind, name, raw
	}

	return "tool", choice, nil
}

// AnthropicToolChoice returns the tool_choice body value, or nil to omit it.
func AnthropicToolChoice(choice string) any {
	kind, name, raw := parseToolChoice(choice)

	switch {
	case kind == "":
		return nil
	case raw != nil:
		return raw
	case kind == "tool":
		return map[string]any{"type": "tool", "name": name}
	default:
		return map[string]any{"type": kind}
	}
}

// OpenAIToolChoice returns the tool_choice body value, or nil to omit it.
// Unrecognized values fall back to "auto".
func OpenAIToolChoice(choice string) any {
	kind, name, _ := parseToolChoice(choice)

	switch kind {
	case "":
		return nil
	case "none":
		return "none"
	case "any":
		return "required"
	case "tool":
		if name != "" {
			return map[string]any{
				"type":     "function",
				"function": map[string]any{"name": name},
			}
		}
	}

	return "auto"
}
