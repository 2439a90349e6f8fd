package toolcall

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var ErrNotObject = errors.New("arguments are not a JSON object")

// bareValuePattern matches an unquoted scalar value between a colon and the
// next comma or closing brace.
var bareValuePattern = regexp.MustCompile(`:\s*([^",{\[\s][^",{\[\]]*?)\s*([,}])`)

// ParseArguments decodes raw tool arguments into an object. It tries a strict
// parse first, then the local heuristic repair, then jsonrepair. Empty input
// yields an empty object.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	input, err := decodeObject(raw)
	if err == nil {
		return input, nil
	}

	if input, repairErr := decodeObject(Repair(raw)); repairErr == nil {
		return input, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(raw)
	if repairErr != nil {
		return nil, fmt.Errorf("parse arguments: %w (repair: %v)", err, repairErr)
	}

	input, err = decodeObject(repaired)
	if err != nil {
		return nil, fmt.Errorf("parse repaired arguments: %w", err)
	}

	return input, nil
}

func decodeObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}

	return obj, nil
}

// Repair applies cheap fixes for truncated model output: it closes a dangling
// string, appends the missing closers for open objects and arrays, and quotes
// bare scalar values. The result is not guaranteed to be valid JSON.
func Repair(s string) string {
	fixed := strings.TrimSpace(s)

	var (
		stack    []byte
		inString bool
		escaped  bool
	)

	for i := 0; i < len(fixed); i++ {
		c := fixed[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		// A trailing lone backslash would escape the closing quote
		if escaped {
			fixed = fixed[:len(fixed)-1]
		}

		fixed += `"`
	}

	fixed = strings.TrimRight(fixed, " \t\r\n")
	fixed = strings.TrimSuffix(fixed, ",")

	for i := len(stack) - 1; i >= 0; i-- {
		fixed += string(stack[i])
	}

	return quoteBareValues(fixed)
}

// quoteBareValues quotes bare scalars in the parts of s outside string
// literals. Quoted text is copied unchanged.
func quoteBareValues(s string) string {
	var (
		out      strings.Builder
		start    int
		inString bool
		escaped  bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				out.WriteString(s[start : i+1])
				start = i + 1
			}

			continue
		}

		if c == '"' {
			out.WriteString(quoteBareSegment(s[start:i]))
			start = i
			inString = true
		}
	}

	if inString {
		out.WriteString(s[start:])
	} else {
		out.WriteString(quoteBareSegment(s[start:]))
	}

	return out.String()
}

func quoteBareSegment(s string) string {
	return bareValuePattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := bareValuePattern.FindStringSubmatch(m)
		value, closer := sub[1], sub[2]

		if isJSONLiteral(value) {
			return m
		}

		return ": " + strconv.Quote(value) + closer
	})
}

func isJSONLiteral(v string) bool {
	switch v {
	case "true", "false", "null":
		return true
	}

	_, err := strconv.ParseFloat(v, 64)

	return err == nil
}
