package providers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/andybalholm/brotli"
)

const readChunkSize = 4096

// streamDecoder turns raw SSE bytes into a Response.
type streamDecoder interface {
	Feed(chunk []byte)
	Finish() (*Response, error)
}

// inflight holds the cancel func of the one request a client may have open.
type inflight struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// begin cancels any outstanding request and returns a context for the new
// one, plus a release func the caller must defer.
func (f *inflight) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}

	f.seq++
	seq := f.seq
	f.cancel = cancel
	f.mu.Unlock()

	return ctx, func() {
		f.mu.Lock()
		if f.seq == seq {
			f.cancel = nil
		}
		f.mu.Unlock()

		cancel()
	}
}

// Cancel aborts the outstanding request, if any.
func (f *inflight) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}

		return nil, fmt.Errorf("send request: %w", err)
	}

	return resp, nil
}

func decompressReader(resp *http.Response) (io.Reader, error) {
	var bodyReader io.Reader = resp.Body
	encoding := resp.Header.Get("Content-Encoding")

	switch encoding {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		bodyReader = gzipReader
	case "br":
		bodyReader = brotli.NewReader(resp.Body)
	}

	return bodyReader, nil
}

// discard drains and closes a response that will not be used.
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func isSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// readError builds an HTTPError from a failed response and closes its body.
func readError(resp *http.Response) error {
	defer resp.Body.Close()

	body := "Could not read error body"

	if reader, err := decompressReader(resp); err == nil {
		if data, err := io.ReadAll(reader); err == nil {
			body = string(data)
		}
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       body,
	}
}

// readJSON decodes a non-streaming body into v.
func readJSON(ctx context.Context, resp *http.Response, v any) error {
	defer resp.Body.Close()

	reader, err := decompressReader(resp)
	if err != nil {
		return fmt.Errorf("decompress response: %w", err)
	}

	if err := json.NewDecoder(reader).Decode(v); err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// consumeStream feeds the body to dec until EOF. Reading is the only point
// that blocks; callbacks run inside Feed on this goroutine.
func consumeStream(ctx context.Context, resp *http.Response, dec streamDecoder) (*Response, error) {
	defer resp.Body.Close()

	reader, err := decompressReader(resp)
	if err != nil {
		return nil, fmt.Errorf("decompress response: %w", err)
	}

	buf := make([]byte, readChunkSize)

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}

			dec.Feed(buf[:n])
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}

			return nil, fmt.Errorf("read stream: %w", err)
		}
	}

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	return dec.Finish()
}

// guardedEmit drops callbacks once ctx is done, so nothing reaches the
// caller after a cancellation.
func guardedEmit(ctx context.Context, onStream func(string)) func(string) {
	if onStream == nil {
		return nil
	}

	return func(text string) {
		if ctx.Err() == nil {
			onStream(text)
		}
	}
}

func orDefaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	return logger
}

func orDefaultClient(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}

	return client
}
