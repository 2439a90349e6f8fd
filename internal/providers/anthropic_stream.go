package providers

import (
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
)

type anthropicEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message *struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage *Usage `json:"usage"`
	} `json:"message"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`

	Delta *struct {
		Type         string  `json:"type"`
		Text         string  `json:"text"`
		Thinking     string  `json:"thinking"`
		PartialJSON  string  `json:"partial_json"`
		StopReason   *string `json:"stop_reason"`
		StopSequence *string `json:"stop_sequence"`
	} `json:"delta"`

	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// streamBlock accumulates one open content block until its stop event.
type streamBlock struct {
	seq  int
	kind string
	text strings.Builder
	id   string
	name string
	json strings.Builder
}

type closedBlock struct {
	seq   int
	block ContentBlock
}

// AnthropicDecoder rebuilds a Response from Anthropic-style SSE bytes fed in
// arbitrary chunks. Text deltas are forwarded to emit as they arrive.
type AnthropicDecoder struct {
	emit   func(string)
	logger *slog.Logger

	lines  lineBuffer
	resp   *Response
	open   map[int]*streamBlock
	closed []closedBlock
	opened int

	thinkingShown bool
	responseShown bool
}

func NewAnthropicDecoder(emit func(string), logger *slog.Logger) *AnthropicDecoder {
	if emit == nil {
		emit = func(string) {}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &AnthropicDecoder{
		emit:   emit,
		logger: logger,
		open:   make(map[int]*streamBlock),
	}
}

func (d *AnthropicDecoder) Feed(chunk []byte) {
	for _, line := range d.lines.push(chunk) {
		d.handleLine(line)
	}
}

// Finish processes any unterminated last line and returns the response.
// Blocks still open at this point are closed as if their stop had arrived.
func (d *AnthropicDecoder) Finish() (*Response, error) {
	if rest := d.lines.flush(); rest != "" {
		d.handleLine(rest)
	}

	if d.resp == nil {
		return nil, ErrNoResponse
	}

	if len(d.open) > 0 {
		indexes := make([]int, 0, len(d.open))
		for index := range d.open {
			indexes = append(indexes, index)
		}

		sort.Slice(indexes, func(i, j int) bool {
			return d.open[indexes[i]].seq < d.open[indexes[j]].seq
		})

		for _, index := range indexes {
			d.logger.Debug("Closing unterminated content block", "index", index)
			d.closeBlock(index)
		}
	}

	// Blocks may close out of order
	sort.Slice(d.closed, func(i, j int) bool {
		return d.closed[i].seq < d.closed[j].seq
	})

	for _, c := range d.closed {
		d.resp.Content = append(d.resp.Content, c.block)
	}

	return d.resp, nil
}

func (d *AnthropicDecoder) handleLine(line string) {
	payload, ok := dataPayload(line)
	if !ok {
		return
	}

	var event anthropicEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		d.logger.Debug("Skipping unparseable stream line", "error", err)
		return
	}

	switch event.Type {
	case "message_start":
		if event.Message == nil {
			return
		}

		d.resp = newResponse(event.Message.ID, event.Message.Model)
		if event.Message.Usage != nil {
			usage := *event.Message.Usage
			d.resp.Usage = &usage
		}
	case "content_block_start":
		if event.ContentBlock == nil {
			return
		}

		switch event.ContentBlock.Type {
		case ContentTypeText, ContentTypeThinking, ContentTypeToolUse:
			d.opened++
			d.open[event.Index] = &streamBlock{
				seq:  d.opened,
				kind: event.ContentBlock.Type,
				id:   event.ContentBlock.ID,
				name: event.ContentBlock.Name,
			}
		default:
			d.logger.Debug("Ignoring content block", "type", event.ContentBlock.Type, "index", event.Index)
		}
	case "content_block_delta":
		d.handleDelta(event)
	case "content_block_stop":
		d.closeBlock(event.Index)
	case "message_delta":
		if d.resp == nil {
			return
		}

		if event.Delta != nil {
			d.resp.StopReason = normalizeStopReason(event.Delta.StopReason)
			d.resp.StopSequence = event.Delta.StopSequence
		}

		if event.Usage != nil {
			if d.resp.Usage == nil {
				d.resp.Usage = &Usage{}
			}

			d.resp.Usage.OutputTokens = event.Usage.OutputTokens
		}
	}
}

func (d *AnthropicDecoder) handleDelta(event anthropicEvent) {
	block, ok := d.open[event.Index]
	if !ok || event.Delta == nil {
		return
	}

	delta := event.Delta

	switch {
	case delta.Text != "":
		block.text.WriteString(delta.Text)

		if block.kind == ContentTypeText {
			if d.thinkingShown && !d.responseShown {
				d.emit(ResponseMarker)
				d.responseShown = true
			}

			d.emit(delta.Text)
		}
	case delta.Thinking != "":
		block.text.WriteString(delta.Thinking)

		if !d.thinkingShown {
			d.emit(ThinkingMarker)
			d.thinkingShown = true
		}

		d.emit(delta.Thinking)
	case delta.PartialJSON != "" && block.kind == ContentTypeToolUse:
		block.json.WriteString(delta.PartialJSON)
	}
}

func (d *AnthropicDecoder) closeBlock(index int) {
	block, ok := d.open[index]
	if !ok {
		return
	}

	delete(d.open, index)

	var out ContentBlock

	switch block.kind {
	case ContentTypeText:
		out = ContentBlock{Type: ContentTypeText, Text: block.text.String()}
	case ContentTypeThinking:
		out = ContentBlock{Type: ContentTypeThinking, Thinking: block.text.String()}
	case ContentTypeToolUse:
		out = ContentBlock{
			Type:  ContentTypeToolUse,
			ID:    block.id,
			Name:  block.name,
			Input: d.parseToolInput(block),
		}
	}

	d.closed = append(d.closed, closedBlock{seq: block.seq, block: out})
}

func (d *AnthropicDecoder) parseToolInput(block *streamBlock) map[string]any {
	raw := block.json.String()
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}
	}

	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil || input == nil {
		d.logger.Debug("Failed to parse tool input JSON", "tool", block.name, "error", err)
		return map[string]any{}
	}

	return input
}
