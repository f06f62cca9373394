package pdf

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultTokenBudget bounds how much document text is sent to the model,
// leaving headroom for the prompt and the generated summary inside common
// context windows.
const DefaultTokenBudget = 12000

// approxCharsPerToken is the fallback ratio when no tokenizer is available.
const approxCharsPerToken = 4

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		// cl100k_base covers the chat-model families we target. Initialization
		// can fail offline (the BPE vocabulary is fetched on first use);
		// callers then get the approximate character fallback.
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// TruncateToTokens trims text to at most budget tokens. When the tokenizer
// is unavailable it falls back to an approximate character budget. A budget
// of zero or less applies DefaultTokenBudget.
func TruncateToTokens(text string, budget int) string {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}

	enc := getEncoding()
	if enc == nil {
		limit := budget * approxCharsPerToken
		runes := []rune(text)
		if len(runes) <= limit {
			return text
		}
		return string(runes[:limit])
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

// CountTokens returns the token count of text, or an approximation when the
// tokenizer is unavailable.
func CountTokens(text string) int {
	enc := getEncoding()
	if enc == nil {
		return len([]rune(text)) / approxCharsPerToken
	}
	return len(enc.Encode(text, nil, nil))
}
