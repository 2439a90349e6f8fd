package providers

import (
	"bytes"
	"strings"
)

const (
	dataPrefix   = "data:"
	doneSentinel = "[DONE]"
)

// lineBuffer splits an SSE byte stream into lines, carrying an incomplete
// trailing line over to the next chunk.
type lineBuffer struct {
	pending []byte
}

// push appends chunk and returns every complete line, without the newline.
func (b *lineBuffer) push(chunk []byte) []string {
	b.pending = append(b.pending, chunk...)

	var lines []string

	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}

		lines = append(lines, string(b.pending[:i]))
		b.pending = b.pending[i+1:]
	}

	// Reclaim the consumed prefix
	if len(b.pending) == 0 {
		b.pending = nil
	}

	return lines
}

// flush returns whatever is left once the stream has ended.
func (b *lineBuffer) flush() string {
	rest := string(b.pending)
	b.pending = nil

	return rest
}

// dataPayload returns the JSON payload of a "data:" line. Other SSE fields,
// blank lines and the [DONE] sentinel yield false.
func dataPayload(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")

	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}

	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" || payload == doneSentinel {
		return "", false
	}

	return payload, true
}
