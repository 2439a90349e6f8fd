package toolcall

import (
	"log/slog"
	"regexp"
	"strings"
)

// Sentinel tokens some backends use to embed tool calls in plain text.
const (
	SectionBegin  = "<|tool_calls_section_begin|>"
	SectionEnd    = "<|tool_calls_section_end|>"
	CallBegin     = "<|tool_call_begin|>"
	ArgumentBegin = "<|tool_call_argument_begin|>"
	CallEnd       = "<|tool_call_end|>"
)

var (
	callStartPattern = regexp.MustCompile(`<\|tool_call_begin\|>\s*([^:]+):(\d+)\s*<\|tool_call_argument_begin\|>`)
	nameIDPattern    = regexp.MustCompile(`^(.+):(\d+)$`)
)

// Call is a tool invocation recovered from response text. ID keeps the
// backend's "name:n" form.
type Call struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// Extractor pulls embedded tool calls out of model text. Calls that cannot be
// parsed are logged and dropped.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{logger: logger}
}

// ExtractFromBlocks scans the concatenation of the given text and thinking
// block contents.
func (e *Extractor) ExtractFromBlocks(texts ...string) []Call {
	return e.Extract(strings.Join(texts, ""))
}

// Extract returns every call found in the tool-call sections of text, in order.
func (e *Extractor) Extract(text string) []Call {
	if !strings.Contains(text, SectionBegin) {
		return nil
	}

	var calls []Call

	for _, section := range sections(text) {
		found := e.scanSection(section)

		if len(found) == 0 && hasCallTokens(section) {
			e.logger.Debug("Regex scan found no tool calls, trying manual split")

			if call, ok := e.manualParse(section); ok {
				found = append(found, call)
			}
		}

		calls = append(calls, found...)
	}

	e.logger.Debug("Embedded tool calls parsed", "count", len(calls))

	return calls
}

// sections returns the body of every tool-call section. A trailing section
// with no end token runs to the end of the text.
func sections(text string) []string {
	var out []string

	for {
		start := strings.Index(text, SectionBegin)
		if start < 0 {
			return out
		}

		text = text[start+len(SectionBegin):]

		end := strings.Index(text, SectionEnd)
		if end < 0 {
			return append(out, strings.TrimSpace(text))
		}

		out = append(out, strings.TrimSpace(text[:end]))
		text = text[end+len(SectionEnd):]
	}
}

func (e *Extractor) scanSection(section string) []Call {
	var calls []Call

	matches := callStartPattern.FindAllStringSubmatchIndex(section, -1)

	for i, m := range matches {
		name := strings.TrimSpace(section[m[2]:m[3]])
		seq := section[m[4]:m[5]]

		argStart := m[1]
		argEnd := len(section)

		if end := strings.Index(section[argStart:], CallEnd); end >= 0 {
			argEnd = argStart + end
		}

		// A truncated call never reaches its end token; stop at the next call
		if i+1 < len(matches) && matches[i+1][0] < argEnd {
			argEnd = matches[i+1][0]
		}

		call, err := newCall(name, seq, section[argStart:argEnd])
		if err != nil {
			e.logger.Warn("Dropping embedded tool call", "name", name, "error", err)
			continue
		}

		calls = append(calls, call)
	}

	return calls
}

// manualParse recovers the first call of a section by splitting on the
// boundary tokens.
func (e *Extractor) manualParse(section string) (Call, bool) {
	_, rest, _ := strings.Cut(section, CallBegin)
	head, rest, _ := strings.Cut(rest, ArgumentBegin)
	args, _, _ := strings.Cut(rest, CallEnd)

	m := nameIDPattern.FindStringSubmatch(strings.TrimSpace(head))
	if m == nil {
		e.logger.Warn("Manual tool call parse failed", "reason", "no name:id pair", "head", head)
		return Call{}, false
	}

	name := strings.TrimSpace(m[1])

	call, err := newCall(name, m[2], args)
	if err != nil {
		e.logger.Warn("Manual tool call parse failed", "name", name, "error", err)
		return Call{}, false
	}

	return call, true
}

func newCall(name, seq, rawArgs string) (Call, error) {
	input, err := ParseArguments(rawArgs)
	if err != nil {
		return Call{}, err
	}

	return Call{
		ID:    name + ":" + seq,
		Name:  name,
		Input: input,
	}, nil
}

func hasCallTokens(section string) bool {
	return strings.Contains(section, CallBegin) &&
		strings.Contains(section, ArgumentBegin) &&
		strings.Contains(section, CallEnd)
}
