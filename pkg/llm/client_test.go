package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sinkRecorder collects increments so tests can assert both delivery order
// and call count.
type sinkRecorder struct {
	increments []string
}

func (r *sinkRecorder) sink(inc string) {
	r.increments = append(r.increments, inc)
}

func (r *sinkRecorder) text() string {
	var out string
	for _, inc := range r.increments {
		out += inc
	}
	return out
}

func streamRequested(r *http.Request) bool {
	var body struct {
		Stream bool `json:"stream"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body.Stream
}

func TestSummarize_Streaming(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseFrame("The "))
		fmt.Fprint(w, sseFrame("summary."))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	s := NewSummarizer(Config{EndpointURL: ts.URL, Streaming: true})
	rec := &sinkRecorder{}
	text, err := s.Summarize(context.Background(), "doc", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "The summary.", text)
	assert.Equal(t, []string{"The ", "summary."}, rec.increments)
}

func TestSummarize_HTTPErrorDeliversNothing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","code":"invalid_api_key"}}`)
	}))
	defer ts.Close()

	s := NewSummarizer(Config{EndpointURL: ts.URL, Streaming: true})
	rec := &sinkRecorder{}
	_, err := s.Summarize(context.Background(), "doc", rec.sink)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 401, reqErr.StatusCode)
	assert.Equal(t, "invalid_api_key", reqErr.Code)
	assert.Equal(t, "Incorrect API key provided", reqErr.Message)
	assert.Empty(t, rec.increments)
}

func TestSummarize_ZeroDeltaFallsBackToNonStreaming(t *testing.T) {
	var streamCalls, completeCalls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if streamRequested(r) {
			streamCalls++
			// A stream that terminates without ever carrying content.
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
			return
		}
		completeCalls++
		fmt.Fprint(w, `{"choices":[{"message":{"content":"full text"}}]}`)
	}))
	defer ts.Close()

	s := NewSummarizer(Config{EndpointURL: ts.URL, Streaming: true})
	rec := &sinkRecorder{}
	text, err := s.Summarize(context.Background(), "doc", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "full text", text)
	assert.Equal(t, 1, streamCalls)
	assert.Equal(t, 1, completeCalls)
	// The fallback delivers the whole completion as one increment.
	assert.Equal(t, []string{"full text"}, rec.increments)
}

func TestSummarize_NonStreamingSingleIncrement(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, streamRequested(r))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"one shot"}}]}`)
	}))
	defer ts.Close()

	s := NewSummarizer(Config{EndpointURL: ts.URL, Streaming: false})
	rec := &sinkRecorder{}
	text, err := s.Summarize(context.Background(), "doc", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "one shot", text)
	assert.Equal(t, []string{"one shot"}, rec.increments)
}

func TestSummarize_TruncationAfterSentinelIsSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := sseFrame("all of it") + "data: [DONE]\n\n"
		// Announce more bytes than are sent so the client sees the
		// connection drop after the sentinel.
		w.Header().Set("Content-Length", fmt.Sprint(len(payload)+64))
		fmt.Fprint(w, payload)
	}))
	defer ts.Close()

	s := NewSummarizer(Config{EndpointURL: ts.URL, Streaming: true})
	rec := &sinkRecorder{}
	text, err := s.Summarize(context.Background(), "doc", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "all of it", text)
	assert.Equal(t, "all of it", rec.text())
}

func TestSummarize_MissingEndpoint(t *testing.T) {
	s := NewSummarizer(Config{})
	_, err := s.Summarize(context.Background(), "doc", nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "endpoint_url", cfgErr.Field)
}

func TestSummarize_MissingAPIKey(t *testing.T) {
	// Known providers refuse to run unauthenticated before any network call.
	s := NewSummarizer(Config{EndpointURL: "https://api.openai.com"})
	_, err := s.Summarize(context.Background(), "doc", nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "api_key", cfgErr.Field)
}

func TestSummarize_GeminiKeyInURLAccepted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "key=embedded")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"gemini says"}]}}]}`)
	}))
	defer ts.Close()

	// The gemini fingerprint in the path forces the Gemini profile while
	// the request still lands on the local test server.
	s := NewSummarizer(Config{
		EndpointURL: ts.URL + "/v1beta/models/gemini-pro:generateContent?key=embedded",
		Streaming:   false,
	})
	rec := &sinkRecorder{}
	text, err := s.Summarize(context.Background(), "doc", rec.sink)
	require.NoError(t, err)
	assert.Equal(t, "gemini says", text)
}

func TestSummarize_ClaudeNonStreaming(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		assert.Contains(t, r.URL.Path, "/v1/messages")
		fmt.Fprint(w, `{"content":[{"type":"text","text":"claude says"}]}`)
	}))
	defer ts.Close()

	s := NewSummarizer(Config{
		EndpointURL: ts.URL + "/claude",
		APIKey:      "sk-test",
		Streaming:   false,
	})
	text, err := s.Summarize(context.Background(), "doc", nil)
	require.NoError(t, err)
	assert.Equal(t, "claude says", text)
}

func TestSummarize_PanickingSinkDoesNotAbort(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sseFrame("a"))
		fmt.Fprint(w, sseFrame("b"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	s := NewSummarizer(Config{EndpointURL: ts.URL, Streaming: true})
	calls := 0
	text, err := s.Summarize(context.Background(), "doc", func(string) {
		calls++
		panic("sink blew up")
	})
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestBuildMessages(t *testing.T) {
	t.Run("placeholder prompt becomes single user message", func(t *testing.T) {
		msgs := buildMessages("Summarize this: {document}", "THE TEXT")
		require.Len(t, msgs, 1)
		assert.Equal(t, "Summarize this: THE TEXT", msgs[0].Content)
	})

	t.Run("plain prompt rides as system instruction", func(t *testing.T) {
		msgs := buildMessages("Summarize concisely.", "THE TEXT")
		require.Len(t, msgs, 2)
		assert.Equal(t, "Summarize concisely.", msgs[0].Content)
		assert.Equal(t, "THE TEXT", msgs[1].Content)
	})
}
