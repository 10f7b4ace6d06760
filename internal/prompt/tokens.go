package prompt

import (
	"log/slog"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// NewTokenCounter returns a cl100k_base counter. The encoding is fetched
// and cached on first use; when it cannot be loaded the counter falls back
// to EstimateCounter.
func NewTokenCounter() TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		slog.Warn("tiktoken encoding unavailable, estimating tokens", "error", err)
		return EstimateCounter{}
	}
	return tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateCounter approximates 4 bytes per token.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}
