package toolcall

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"dangling string and brace", `{"path":"a.ts`, `{"path":"a.ts"}`},
		{"missing brace", `{"path":"a.ts"`, `{"path":"a.ts"}`},
		{"nested closers in order", `{"a":{"b":[1,2`, `{"a":{"b":[1,2]}}`},
		{"trailing comma", `{"a":1,`, `{"a":1}`},
		{"bare value", `{"mode":fast}`, `{"mode": "fast"}`},
		{"literals untouched", `{"n":12,"ok":true,"x":null}`, `{"n":12,"ok":true,"x":null}`},
		{"escaped quote inside string", `{"q":"say \"hi`, `{"q":"say \"hi"}`},
		{"braces inside strings ignored", `{"code":"func() {`, `{"code":"func() {"}`},
		{"valid input unchanged", `{"path":"a.ts"}`, `{"path":"a.ts"}`},
		{"colon inside string", `{"cmd":"echo a: b, c"`, `{"cmd":"echo a: b, c"}`},
		{"colon inside truncated string", `{"cmd":"echo a: b, c`, `{"cmd":"echo a: b, c"}`},
		{"bare value after string with colon", `{"k":"x: y","mode":fast}`, `{"k":"x: y","mode": "fast"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Repair(tt.input))
		})
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]any
		wantErr  bool
	}{
		{name: "strict", input: `{"path":"a.ts"}`, expected: map[string]any{"path": "a.ts"}},
		{name: "empty", input: "  ", expected: map[string]any{}},
		{name: "truncated", input: `{"path":"a.ts`, expected: map[string]any{"path": "a.ts"}},
		{name: "bare scalar", input: `{"mode":fast,"n":2}`, expected: map[string]any{"mode": "fast", "n": float64(2)}},
		{name: "single quotes via jsonrepair", input: `{'path': 'a.ts'}`, expected: map[string]any{"path": "a.ts"}},
		{name: "array", input: `[1,2`, wantErr: true},
		{name: "number", input: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArguments(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// Every prefix of a valid object must either parse to an object or fail
// cleanly, never panic.
func TestParseArguments_Truncations(t *testing.T) {
	full := `{"path":"src/main.go","line":12,"opts":{"recursive":true,"tags":["a","b"]},"note":"say \"hi\""}`

	for i := 1; i <= len(full); i++ {
		prefix := full[:i]

		require.NotPanics(t, func() {
			got, err := ParseArguments(prefix)
			if err == nil {
				assert.NotNil(t, got, "prefix %q", prefix)
			}
		})
	}

	got, err := ParseArguments(full)
	require.NoError(t, err)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(full), &expected))
	assert.Equal(t, expected, got)
}

// Cutting inside a string value keeps every complete key.
func TestParseArguments_TruncatedStringValue(t *testing.T) {
	full := `{"path":"a.ts","content":"package main\nfunc main() {}"}`

	for cut := len(`{"path":"a.ts","content":"p`); cut < len(full)-2; cut++ {
		got, err := ParseArguments(full[:cut])
		require.NoError(t, err, "cut at %d: %q", cut, full[:cut])
		assert.Equal(t, "a.ts", got["path"])
		assert.Contains(t, got, "content")
	}
}
