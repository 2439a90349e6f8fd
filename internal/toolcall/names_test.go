package toolcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"functions.read_file", "read_file"},
		{"functions.peek_file_at_path", "read_file"},
		{"functions.edit_file", "replace_string_in_file"},
		{"functions.list_directory", "list_dir"},
		{"functions.search_files", "file_search"},
		{"functions.terminal", "run_in_terminal"},
		{"functions.search_text", "grep_search"},
		{"functions.create_folder", "create_directory"},
		{"functions.open_browser", "open_simple_browser"},
		{"functions.compile", "create_and_run_task"},
		{"functions.Custom_Tool", "custom_tool"},
		{"Unprefixed", "unprefixed"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapName(tt.input))
			// Repeated lookups map identically
			assert.Equal(t, MapName(tt.input), MapName(tt.input))
		})
	}
}

func TestCallID(t *testing.T) {
	assert.Equal(t, "3", CallID("functions.read_file:3"))
	assert.Equal(t, "call_abc", CallID("call_abc"))
	assert.Equal(t, "weird:", CallID("weird:"))
}
