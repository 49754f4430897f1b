package tokenest

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// tiktokenCounter is a precise Counter backed by OpenAI's real
// tokenization algorithm.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a precise Counter for diagnostics (see package
// doc). encoding is a tiktoken encoding name, e.g. "o200k_base".
func NewTiktokenCounter(encoding string) (Counter, error) {
	if encoding == "" {
		encoding = "o200k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenest: failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) (int, error) {
	return len(c.enc.Encode(text, nil, nil)), nil
}
