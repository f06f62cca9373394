// Package llm implements the multi-provider AI completion client: provider
// classification from the endpoint URL, per-provider request adaptation,
// incremental streaming response decoding, and error classification.
//
// The streaming decoder is the heart of the package. Providers disagree on
// wire format (OpenAI-style SSE, Gemini's incrementally rendered JSON array,
// Anthropic's event stream, NDJSON from local-model servers); the decoder
// turns any of them into an ordered sequence of text increments delivered to
// a caller-supplied sink.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BlueBlueKitty/zotero-ainote/pkg/logging"
	"github.com/BlueBlueKitty/zotero-ainote/pkg/types"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-3.5-turbo"

	// DefaultPrompt is the summarization instruction used when the user has
	// not configured one. The {document} placeholder, when present in a
	// custom prompt, is replaced with the extracted document text.
	DefaultPrompt = "You are an academic reading assistant. Summarize the " +
		"following paper in concise markdown: state the research question, " +
		"method, key findings, and limitations.\n\n{document}"

	// DocumentPlaceholder marks where the document text is spliced into a
	// custom prompt.
	DocumentPlaceholder = "{document}"

	// defaultTimeout bounds one exchange. Large-document summarization can
	// legitimately run for minutes; only a fully idle connection should
	// time out.
	defaultTimeout = 10 * time.Minute

	maxErrorBodyBytes    = 64 << 10
	maxResponseBodyBytes = 16 << 20
)

// ProgressSink receives text increments strictly in decode order, never
// concurrently. On the non-streaming path the entire completion is delivered
// as a single increment so callers see one uniform convention.
type ProgressSink func(increment string)

// Config is the resolved summarization configuration for a Summarizer. It is
// read once at construction; changes take effect on the next Summarizer.
type Config struct {
	EndpointURL string
	APIKey      string
	Model       string
	Temperature float64
	Prompt      string
	Streaming   bool
}

// Summarizer drives one summarization call end to end: classify the
// provider, adapt the request, stream (or fall back) and assemble the final
// text. It holds no cross-call state, so sequential reuse is safe.
type Summarizer struct {
	cfg    Config
	client *http.Client
	logger *logging.Logger
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) SummarizerOption {
	return func(s *Summarizer) {
		s.client = client
	}
}

// WithLogger attaches a debug logger.
func WithLogger(logger *logging.Logger) SummarizerOption {
	return func(s *Summarizer) {
		s.logger = logger
	}
}

// NewSummarizer creates a Summarizer for the given configuration, applying
// documented defaults for any unset value.
func NewSummarizer(cfg Config, opts ...SummarizerOption) *Summarizer {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
	}
	s := &Summarizer{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize runs one summarization call with the configured prompt. The
// sink, when non-nil, receives ordered text increments as they are decoded.
func (s *Summarizer) Summarize(ctx context.Context, document string, sink ProgressSink) (string, error) {
	return s.SummarizeWithPrompt(ctx, document, s.cfg.Prompt, sink)
}

// SummarizeWithPrompt runs one summarization call with a prompt override.
//
// Exactly one of the returned text and error is meaningful. A stream that
// ends without ever delivering a delta is retried silently as a
// non-streaming exchange rather than surfaced as an error.
func (s *Summarizer) SummarizeWithPrompt(ctx context.Context, document, prompt string, sink ProgressSink) (string, error) {
	if strings.TrimSpace(s.cfg.EndpointURL) == "" {
		return "", &ConfigurationError{Field: "endpoint_url", Message: "no API endpoint configured"}
	}

	profile := ClassifyProfile(s.cfg.EndpointURL)
	if err := s.validateAuth(profile); err != nil {
		return "", err
	}

	if prompt == "" {
		prompt = DefaultPrompt
	}
	reqCfg := RequestConfig{
		EndpointURL: s.cfg.EndpointURL,
		APIKey:      s.cfg.APIKey,
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		Messages:    buildMessages(prompt, document),
	}

	if s.cfg.Streaming && sink != nil {
		text, outcome, err := s.streamExchange(ctx, profile, reqCfg, sink)
		switch outcome {
		case OutcomeCompleted:
			return text, nil
		case OutcomeZeroDelta:
			// Empty or malformed stream: silent fallback, not an error.
			s.logf("stream for %s delivered no deltas, falling back to non-streaming", profile)
		default:
			return "", err
		}
	}

	return s.completeExchange(ctx, profile, reqCfg, sink)
}

// validateAuth refuses before adaptation when the profile requires a key and
// neither the configuration nor the URL (Gemini's ?key= parameter) carries
// one.
func (s *Summarizer) validateAuth(profile Profile) error {
	if !profile.RequiresAPIKey() || s.cfg.APIKey != "" {
		return nil
	}
	if profile == ProfileGemini && strings.Contains(s.cfg.EndpointURL, "key=") {
		return nil
	}
	return &ConfigurationError{
		Field:   "api_key",
		Message: fmt.Sprintf("provider %s requires an API key", profile),
	}
}

// buildMessages shapes the prompt and document into provider-neutral
// messages. A prompt containing the {document} placeholder becomes a single
// user message with the document spliced in; otherwise the prompt rides as a
// system instruction with the document as the user turn.
func buildMessages(prompt, document string) []types.Message {
	if strings.Contains(prompt, DocumentPlaceholder) {
		return []types.Message{
			types.NewUserMessage(strings.ReplaceAll(prompt, DocumentPlaceholder, document)),
		}
	}
	return []types.Message{
		types.NewSystemMessage(prompt),
		types.NewUserMessage(document),
	}
}

// streamExchange issues the streaming request and drives the decoder with
// progressively larger snapshots of the response buffer as bytes arrive.
func (s *Summarizer) streamExchange(ctx context.Context, profile Profile, reqCfg RequestConfig, sink ProgressSink) (string, StreamOutcome, error) {
	adapted := Adapt(profile, reqCfg, true)
	resp, err := s.send(ctx, adapted)
	if err != nil {
		return "", OutcomeErrored, &RequestError{
			Provider: profile,
			Message:  "request failed",
			Cause:    err,
		}
	}
	defer resp.Body.Close()

	state := NewStreamState(profile)
	if resp.StatusCode >= 400 {
		// HTTP-level failure takes precedence over any frame processing.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		reqErr := ClassifyError(profile, resp.StatusCode, body)
		state.Abort(reqErr)
		return "", OutcomeAborted, reqErr
	}

	var (
		snapshot []byte
		chunk    = make([]byte, 4096)
		readErr  error
	)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			snapshot = append(snapshot, chunk[:n]...)
			for _, inc := range state.Feed(snapshot) {
				s.deliver(sink, inc)
			}
		}
		if err != nil {
			if err != io.EOF {
				readErr = err
			}
			break
		}
		if state.Completed() {
			break
		}
	}

	outcome := state.Outcome(readErr)
	switch outcome {
	case OutcomeCompleted:
		return state.Text(), outcome, nil
	case OutcomeZeroDelta:
		return "", outcome, nil
	default:
		return "", outcome, &RequestError{
			Provider: profile,
			Message:  "stream ended unexpectedly",
			Cause:    readErr,
		}
	}
}

// completeExchange issues a single non-streaming exchange and extracts the
// provider-specific completion text from the response body.
func (s *Summarizer) completeExchange(ctx context.Context, profile Profile, reqCfg RequestConfig, sink ProgressSink) (string, error) {
	adapted := Adapt(profile, reqCfg, false)
	resp, err := s.send(ctx, adapted)
	if err != nil {
		return "", &RequestError{Provider: profile, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", ClassifyError(profile, resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return "", &RequestError{Provider: profile, Message: "failed to read response", Cause: err}
	}

	text, ok := extractCompletion(profile, body)
	if !ok {
		return "", &RequestError{Provider: profile, Message: "unrecognized response shape"}
	}
	if sink != nil {
		// Deliver the whole text as one increment so streaming and
		// non-streaming callers share the same convention.
		s.deliver(sink, text)
	}
	return text, nil
}

func (s *Summarizer) send(ctx context.Context, adapted AdaptedRequest) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, adapted.URL, bytes.NewReader(adapted.Body))
	if err != nil {
		return nil, err
	}
	req.Header = adapted.Header
	return s.client.Do(req)
}

// deliver invokes the sink for one increment. A panicking sink is contained
// so it cannot corrupt decoding of subsequent frames; delivery order always
// matches decode order because delivery is synchronous and sequential.
func (s *Summarizer) deliver(sink ProgressSink, increment string) {
	defer func() {
		if r := recover(); r != nil {
			s.logf("progress sink panicked: %v", r)
		}
	}()
	sink(increment)
}

func (s *Summarizer) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Debugf(format, v...)
	}
}
