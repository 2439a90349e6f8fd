package toolcall

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExtract_SingleCall(t *testing.T) {
	text := `<|tool_calls_section_begin|><|tool_call_begin|>functions.read_file:3<|tool_call_argument_begin|>{"path":"a.ts"}<|tool_call_end|><|tool_calls_section_end|>`

	calls := newTestExtractor().Extract(text)

	require.Len(t, calls, 1)
	assert.Equal(t, "functions.read_file:3", calls[0].ID)
	assert.Equal(t, "functions.read_file", calls[0].Name)
	assert.Equal(t, map[string]any{"path": "a.ts"}, calls[0].Input)
	assert.Equal(t, "read_file", MapName(calls[0].Name))
	assert.Equal(t, "read_file", calls[0].Mapped().Name)
}

func TestExtract_NoSection(t *testing.T) {
	calls := newTestExtractor().Extract("just an answer, no tools")
	assert.Empty(t, calls)
}

func TestExtract_MultipleCallsAndSections(t *testing.T) {
	text := "Let me look.\n" +
		"<|tool_calls_section_begin|>\n" +
		"<|tool_call_begin|> functions.read_file:0 <|tool_call_argument_begin|>{\"path\":\"a.go\"}<|tool_call_end|>\n" +
		"<|tool_call_begin|>functions.run_command:1<|tool_call_argument_begin|>{\"command\":\"go test\"}<|tool_call_end|>\n" +
		"<|tool_calls_section_end|>\n" +
		"then\n" +
		"<|tool_calls_section_begin|><|tool_call_begin|>functions.get_errors:2<|tool_call_argument_begin|>{}<|tool_call_end|><|tool_calls_section_end|>"

	calls := newTestExtractor().Extract(text)

	require.Len(t, calls, 3)
	assert.Equal(t, "functions.read_file:0", calls[0].ID)
	assert.Equal(t, "a.go", calls[0].Input["path"])
	assert.Equal(t, "functions.run_command", calls[1].Name)
	assert.Equal(t, "go test", calls[1].Input["command"])
	assert.Equal(t, "functions.get_errors:2", calls[2].ID)
	assert.Empty(t, calls[2].Input)
}

func TestExtract_RepairsTruncatedArguments(t *testing.T) {
	text := `<|tool_calls_section_begin|><|tool_call_begin|>functions.read_file:3<|tool_call_argument_begin|>{"path":"a.ts<|tool_call_end|><|tool_calls_section_end|>`

	calls := newTestExtractor().Extract(text)

	require.Len(t, calls, 1)
	assert.Equal(t, map[string]any{"path": "a.ts"}, calls[0].Input)
}

func TestExtract_DropsUnparseableCall(t *testing.T) {
	text := "<|tool_calls_section_begin|>" +
		"<|tool_call_begin|>functions.read_file:1<|tool_call_argument_begin|>[1,2<|tool_call_end|>" +
		"<|tool_call_begin|>functions.read_file:2<|tool_call_argument_begin|>{\"path\":\"b.ts\"}<|tool_call_end|>" +
		"<|tool_calls_section_end|>"

	calls := newTestExtractor().Extract(text)

	require.Len(t, calls, 1)
	assert.Equal(t, "functions.read_file:2", calls[0].ID)
}

func TestExtract_UnterminatedSection(t *testing.T) {
	text := `thinking... <|tool_calls_section_begin|><|tool_call_begin|>functions.list_directory:7<|tool_call_argument_begin|>{"path":"src"}<|tool_call_end|>`

	calls := newTestExtractor().Extract(text)

	require.Len(t, calls, 1)
	assert.Equal(t, "functions.list_directory:7", calls[0].ID)
	assert.Equal(t, "list_dir", MapName(calls[0].Name))
}

func TestExtract_ManualFallback(t *testing.T) {
	// The name contains a colon, so the start pattern cannot match it
	text := `<|tool_calls_section_begin|><|tool_call_begin|>mcp:fs.read:4<|tool_call_argument_begin|>{"path":"x"}<|tool_call_end|><|tool_calls_section_end|>`

	calls := newTestExtractor().Extract(text)

	require.Len(t, calls, 1)
	assert.Equal(t, "mcp:fs.read:4", calls[0].ID)
	assert.Equal(t, "mcp:fs.read", calls[0].Name)
	assert.Equal(t, "x", calls[0].Input["path"])
}

func TestExtractFromBlocks(t *testing.T) {
	thinking := `I should read it. <|tool_calls_section_begin|><|tool_call_begin|>functions.read_file:0<|tool_call_argument_begin|>{"path":`
	text := `"main.go"}<|tool_call_end|><|tool_calls_section_end|>`

	calls := newTestExtractor().ExtractFromBlocks(thinking, text)

	require.Len(t, calls, 1)
	assert.Equal(t, "main.go", calls[0].Input["path"])
}

func TestNewExtractor_NilLogger(t *testing.T) {
	e := NewExtractor(nil)
	assert.NotNil(t, e.logger)
}
