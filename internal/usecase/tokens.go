package usecase

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates how many tokens a piece of text costs.
type TokenCounter interface {
	Count(text string) int
}

// bpeCounter counts with a tiktoken BPE encoding, falling back to a
// runes/4 heuristic when the encoding cannot be loaded (offline hosts).
type bpeCounter struct {
	encoding string

	once sync.Once
	tke  *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter for the given tiktoken encoding name.
// Loading is lazy: the budget check should not slow down construction.
func NewTokenCounter(encoding string) TokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	return &bpeCounter{encoding: encoding}
}

func (c *bpeCounter) Count(text string) int {
	c.once.Do(func() {
		tke, err := tiktoken.GetEncoding(c.encoding)
		if err == nil {
			c.tke = tke
		}
	})
	if c.tke != nil {
		return len(c.tke.Encode(text, nil, nil))
	}
	return approxTokens(text)
}

// approxTokens is the rough industry rule of thumb of 4 characters per token.
func approxTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
