package providers

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type openAIToolCallDelta struct {
	Index    *int   `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAIChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content          string                `json:"content"`
			ReasoningContent string                `json:"reasoning_content"`
			Reasoning        string                `json:"reasoning"`
			ToolCalls        []openAIToolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage `json:"usage"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u *openAIUsage) normalized() *Usage {
	if u == nil {
		return nil
	}

	return &Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
}

// toolCallRecord collects the fragments of one streamed tool call.
type toolCallRecord struct {
	id        string
	generated bool
	name      strings.Builder
	arguments strings.Builder
}

// OpenAIDecoder rebuilds a Response from OpenAI-style chat completion chunks.
// The shell is created from the first chunk that carries a choice.
type OpenAIDecoder struct {
	emit   func(string)
	logger *slog.Logger

	lines     lineBuffer
	resp      *Response
	text      strings.Builder
	reasoning strings.Builder

	records []*toolCallRecord
	byID    map[string]*toolCallRecord
	byIndex map[int]*toolCallRecord

	thinkingShown bool
	responseShown bool
}

func NewOpenAIDecoder(emit func(string), logger *slog.Logger) *OpenAIDecoder {
	if emit == nil {
		emit = func(string) {}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIDecoder{
		emit:    emit,
		logger:  logger,
		byID:    make(map[string]*toolCallRecord),
		byIndex: make(map[int]*toolCallRecord),
	}
}

func (d *OpenAIDecoder) Feed(chunk []byte) {
	for _, line := range d.lines.push(chunk) {
		d.handleLine(line)
	}
}

// Finish emits the accumulated blocks: thinking, then text, then one tool_use
// per call whose arguments decode to an object.
func (d *OpenAIDecoder) Finish() (*Response, error) {
	if rest := d.lines.flush(); rest != "" {
		d.handleLine(rest)
	}

	if d.resp == nil {
		return nil, ErrNoResponse
	}

	if d.reasoning.Len() > 0 {
		d.resp.Content = append(d.resp.Content, ContentBlock{
			Type:     ContentTypeThinking,
			Thinking: d.reasoning.String(),
		})
	}

	if d.text.Len() > 0 {
		d.resp.Content = append(d.resp.Content, ContentBlock{
			Type: ContentTypeText,
			Text: d.text.String(),
		})
	}

	for _, rec := range d.records {
		name := rec.name.String()
		if name == "" {
			d.logger.Warn("Dropping tool call without a name", "id", rec.id)
			continue
		}

		input, err := decodeToolArguments(rec.arguments.String())
		if err != nil {
			d.logger.Warn("Dropping tool call with invalid arguments", "id", rec.id, "name", name, "error", err)
			continue
		}

		d.resp.Content = append(d.resp.Content, ContentBlock{
			Type:  ContentTypeToolUse,
			ID:    rec.id,
			Name:  name,
			Input: input,
		})
	}

	return d.resp, nil
}

func (d *OpenAIDecoder) handleLine(line string) {
	payload, ok := dataPayload(line)
	if !ok {
		return
	}

	var chunk openAIChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		d.logger.Debug("Skipping unparseable stream line", "error", err)
		return
	}

	if d.resp == nil {
		if len(chunk.Choices) == 0 {
			return
		}

		d.resp = newResponse(chunk.ID, chunk.Model)
	}

	if usage := chunk.Usage.normalized(); usage != nil {
		d.resp.Usage = usage
	}

	if len(chunk.Choices) == 0 {
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	reasoning := delta.ReasoningContent
	if reasoning == "" {
		reasoning = delta.Reasoning
	}

	if reasoning != "" {
		d.reasoning.WriteString(reasoning)

		if !d.thinkingShown {
			d.emit(ThinkingMarker)
			d.thinkingShown = true
		}

		d.emit(reasoning)
	}

	if delta.Content != "" {
		d.text.WriteString(delta.Content)

		if d.thinkingShown && !d.responseShown {
			d.emit(ResponseMarker)
			d.responseShown = true
		}

		d.emit(delta.Content)
	}

	for _, fragment := range delta.ToolCalls {
		rec := d.record(fragment)
		rec.name.WriteString(fragment.Function.Name)
		rec.arguments.WriteString(fragment.Function.Arguments)
	}

	if choice.FinishReason != nil {
		d.resp.StopReason = ConvertStopReason(*choice.FinishReason)
	}
}

// record finds the call a fragment belongs to. Fragments are matched by id,
// then by index; continuation fragments usually carry only the index.
func (d *OpenAIDecoder) record(fragment openAIToolCallDelta) *toolCallRecord {
	if fragment.ID != "" {
		if rec, ok := d.byID[fragment.ID]; ok {
			return rec
		}
	}

	if fragment.Index != nil {
		if rec, ok := d.byIndex[*fragment.Index]; ok {
			switch {
			case fragment.ID == "":
				return rec
			case rec.generated:
				// An id arriving after an id-less opening fragment replaces the generated one
				delete(d.byID, rec.id)
				rec.id = fragment.ID
				rec.generated = false
				d.byID[rec.id] = rec

				return rec
			}
			// A new id on a reused index starts a new call
		}
	}

	if fragment.ID == "" && fragment.Index == nil && len(d.records) > 0 {
		return d.records[len(d.records)-1]
	}

	rec := &toolCallRecord{id: fragment.ID}
	if rec.id == "" {
		rec.id = "call_" + uuid.NewString()
		rec.generated = true
	}

	d.records = append(d.records, rec)
	d.byID[rec.id] = rec

	if fragment.Index != nil {
		d.byIndex[*fragment.Index] = rec
	}

	return rec
}

// decodeToolArguments parses a complete arguments string. Empty arguments
// mean no parameters.
func decodeToolArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, err
	}

	if input == nil {
		return map[string]any{}, nil
	}

	return input, nil
}
