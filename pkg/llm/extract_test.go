package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDelta(t *testing.T) {
	tests := []struct {
		name      string
		profile   Profile
		payload   string
		wantDelta string
		wantOK    bool
	}{
		{
			name:      "openai delta frame",
			profile:   ProfileOpenAI,
			payload:   `{"choices":[{"delta":{"content":"hi"}}]}`,
			wantDelta: "hi",
			wantOK:    true,
		},
		{
			name:    "openai role announcement is contentless",
			profile: ProfileOpenAI,
			payload: `{"choices":[{"delta":{"role":"assistant"}}]}`,
			wantOK:  true,
		},
		{
			name:      "ndjson top-level message",
			profile:   ProfileCustom,
			payload:   `{"message":{"content":"local"},"done":false}`,
			wantDelta: "local",
			wantOK:    true,
		},
		{
			name:      "claude content_block_delta",
			profile:   ProfileClaude,
			payload:   `{"type":"content_block_delta","delta":{"type":"text_delta","text":"piece"}}`,
			wantDelta: "piece",
			wantOK:    true,
		},
		{
			name:    "claude message_stop is contentless",
			profile: ProfileClaude,
			payload: `{"type":"message_stop"}`,
			wantOK:  true,
		},
		{
			name:      "gemini candidate part",
			profile:   ProfileGemini,
			payload:   `{"candidates":[{"content":{"parts":[{"text":"chunk"}]}}]}`,
			wantDelta: "chunk",
			wantOK:    true,
		},
		{
			name:    "gemini usage-only object is contentless",
			profile: ProfileGemini,
			payload: `{"usageMetadata":{"totalTokenCount":42}}`,
			wantOK:  true,
		},
		{
			name:    "malformed json is rejected",
			profile: ProfileOpenAI,
			payload: `{"choices":[`,
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delta, ok := extractDelta(tt.profile, []byte(tt.payload))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDelta, delta)
		})
	}
}

func TestExtractCompletion(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		text, ok := extractCompletion(ProfileOpenAI, []byte(`{"choices":[{"message":{"content":"done"}}]}`))
		assert.True(t, ok)
		assert.Equal(t, "done", text)
	})

	t.Run("ndjson server", func(t *testing.T) {
		text, ok := extractCompletion(ProfileCustom, []byte(`{"message":{"content":"done"}}`))
		assert.True(t, ok)
		assert.Equal(t, "done", text)
	})

	t.Run("claude", func(t *testing.T) {
		text, ok := extractCompletion(ProfileClaude, []byte(`{"content":[{"type":"text","text":"done"}]}`))
		assert.True(t, ok)
		assert.Equal(t, "done", text)
	})

	t.Run("gemini", func(t *testing.T) {
		text, ok := extractCompletion(ProfileGemini, []byte(`{"candidates":[{"content":{"parts":[{"text":"done"}]}}]}`))
		assert.True(t, ok)
		assert.Equal(t, "done", text)
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		_, ok := extractCompletion(ProfileOpenAI, []byte(`{"result":"done"}`))
		assert.False(t, ok)
	})
}
