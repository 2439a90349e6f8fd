package tokens

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const Encoding = "cl100k_base"

// Counter counts tokens with the cl100k_base encoding. When the encoding
// cannot be loaded it falls back to Estimate.
type Counter struct {
	logger *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func NewCounter(logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Counter{logger: logger}
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}

	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(Encoding)
		if err != nil {
			c.logger.Warn("Failed to get tiktoken encoding, using length estimate", "error", err)
			return
		}

		c.enc = enc
	})

	if c.enc == nil {
		return Estimate(text)
	}

	return len(c.enc.Encode(text, nil, nil))
}

// Estimate approximates a token count as one token per four bytes, rounded up.
func Estimate(text string) int {
	return (len(text) + 3) / 4
}
