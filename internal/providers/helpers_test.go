package providers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Davincible/chat-bridge/internal/config"
)

type staticSettings struct {
	cfg *config.Config
}

func (s staticSettings) Get() *config.Config {
	return s.cfg
}

func testSettings(url string, mutate ...func(*config.Config)) staticSettings {
	cfg := config.Default()
	cfg.APIURL = url
	cfg.OpenAIURL = url

	for _, m := range mutate {
		m(cfg)
	}

	return staticSettings{cfg: cfg}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sse renders payloads as an SSE body with the event lines real servers send.
func sse(payloads ...string) string {
	var sb strings.Builder

	for _, p := range payloads {
		var head struct {
			Type string `json:"type"`
		}
		if json.Unmarshal([]byte(p), &head) == nil && head.Type != "" {
			sb.WriteString("event: " + head.Type + "\n")
		}

		sb.WriteString("data: " + p + "\n\n")
	}

	return sb.String()
}

// recorder collects streamed text.
type recorder struct {
	mu    sync.Mutex
	parts []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parts = append(r.parts, s)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.parts...)
}

func (r *recorder) joined() string {
	return strings.Join(r.all(), "")
}

// decodeBody reads a JSON request body into a generic map.
func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

	return body
}

func userMessages(texts ...string) []Message {
	out := make([]Message, 0, len(texts))
	for _, t := range texts {
		out = append(out, TextMessage(RoleUser, t))
	}

	return out
}
