package llm

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BlueBlueKitty/zotero-ainote/pkg/types"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "zotero-ainote/0.1"

	azureAPIVersion  = "2023-05-15"
	anthropicVersion = "2023-06-01"

	// claudeDefaultMaxTokens is used when the caller does not supply a
	// max_tokens value; the Anthropic API rejects requests without one.
	claudeDefaultMaxTokens = 4096

	geminiMaxOutputTokens = 8192
)

// RequestConfig carries everything needed to shape one outbound completion
// request. It is constructed fresh per call from the current configuration
// and never shared across calls.
type RequestConfig struct {
	EndpointURL string
	APIKey      string
	Model       string
	Temperature float64
	Messages    []types.Message
	MaxTokens   int // optional; only Claude requires it and defaults it
}

// AdaptedRequest is the provider-native request produced by Adapt. It is
// consumed exactly once by the transport.
type AdaptedRequest struct {
	URL    string
	Header http.Header
	Body   []byte
}

// Adapt reshapes a provider-neutral request into the exact URL, header set,
// and JSON body for the given provider profile. Adaptation never fails:
// every optional field has a fallback default. Authentication presence is
// validated by the orchestrator before Adapt is invoked.
func Adapt(profile Profile, cfg RequestConfig, stream bool) AdaptedRequest {
	switch profile {
	case ProfileAzure:
		return adaptAzure(cfg, stream)
	case ProfileGemini:
		return adaptGemini(cfg, stream)
	case ProfileClaude:
		return adaptClaude(cfg, stream)
	default:
		// OpenAI, DeepSeek, and custom OpenAI-compatible endpoints share
		// one wire format and differ only in URL completion rules.
		return adaptOpenAI(profile, cfg, stream)
	}
}

func baseHeader(stream bool) http.Header {
	h := http.Header{}
	h.Set("Content-Type", contentTypeJSON)
	h.Set("User-Agent", userAgent)
	if stream {
		h.Set("Accept", "text/event-stream")
	} else {
		h.Set("Accept", contentTypeJSON)
	}
	return h
}

type chatBody struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream,omitempty"`
}

func adaptOpenAI(profile Profile, cfg RequestConfig, stream bool) AdaptedRequest {
	url := strings.TrimRight(cfg.EndpointURL, "/")
	if !strings.Contains(url, "/chat/completions") {
		switch {
		case profile == ProfileOpenAI && strings.HasSuffix(url, "/v1"):
			url += "/chat/completions"
		case profile == ProfileOpenAI:
			url += "/v1/chat/completions"
		case profile == ProfileDeepSeek:
			url += "/chat/completions"
		}
		// Custom endpoints are used verbatim; local servers and proxies
		// often mount completions on nonstandard paths.
	}

	header := baseHeader(stream)
	if cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	body, _ := json.Marshal(chatBody{
		Model:       cfg.Model,
		Messages:    cfg.Messages,
		Temperature: cfg.Temperature,
		Stream:      stream,
	})

	return AdaptedRequest{URL: url, Header: header, Body: body}
}

type azureChatBody struct {
	Messages    []types.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream,omitempty"`
}

func adaptAzure(cfg RequestConfig, stream bool) AdaptedRequest {
	// The model name is reinterpreted as the Azure deployment name and
	// spliced into the path rather than sent in the body.
	url := strings.TrimRight(cfg.EndpointURL, "/")
	switch {
	case strings.Contains(url, "/chat/completions"):
		// Full path supplied by the user; use it verbatim.
	case strings.HasSuffix(url, "/deployments"):
		url += "/" + cfg.Model + "/chat/completions?api-version=" + azureAPIVersion
	default:
		url += "/openai/deployments/" + cfg.Model + "/chat/completions?api-version=" + azureAPIVersion
	}

	header := baseHeader(stream)
	if cfg.APIKey != "" {
		header.Set("api-key", cfg.APIKey)
	}

	body, _ := json.Marshal(azureChatBody{
		Messages:    cfg.Messages,
		Temperature: cfg.Temperature,
		Stream:      stream,
	})

	return AdaptedRequest{URL: url, Header: header, Body: body}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiBody struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

func adaptGemini(cfg RequestConfig, stream bool) AdaptedRequest {
	method := "generateContent"
	if stream {
		method = "streamGenerateContent"
	}

	base, query, _ := strings.Cut(cfg.EndpointURL, "?")
	base = strings.TrimRight(base, "/")
	switch {
	case strings.HasSuffix(base, ":streamGenerateContent"):
		base = strings.TrimSuffix(base, ":streamGenerateContent") + ":" + method
	case strings.HasSuffix(base, ":generateContent"):
		base = strings.TrimSuffix(base, ":generateContent") + ":" + method
	default:
		base += "/v1beta/models/" + cfg.Model + ":" + method
	}

	// The API key travels as a query parameter, never a header. A key
	// already embedded in the configured URL is left untouched.
	if cfg.APIKey != "" && !strings.Contains(query, "key=") {
		if query != "" {
			query += "&"
		}
		query += "key=" + cfg.APIKey
	}
	url := base
	if query != "" {
		url += "?" + query
	}

	// Gemini takes a single-role contents envelope; the system instruction
	// and user content are combined into one text part. Streaming is
	// selected purely via the URL method suffix, so the body carries no
	// model, messages, or stream keys.
	var parts []string
	for _, m := range cfg.Messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	body, _ := json.Marshal(geminiBody{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: strings.Join(parts, "\n\n")}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: geminiMaxOutputTokens,
		},
	})

	return AdaptedRequest{URL: url, Header: baseHeader(stream), Body: body}
}

type claudeBody struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	System      string          `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Stream      bool            `json:"stream,omitempty"`
}

func adaptClaude(cfg RequestConfig, stream bool) AdaptedRequest {
	url := strings.TrimRight(cfg.EndpointURL, "/")
	if !strings.Contains(url, "/v1/messages") {
		url += "/v1/messages"
	}

	header := baseHeader(stream)
	if cfg.APIKey != "" {
		header.Set("x-api-key", cfg.APIKey)
	}
	header.Set("anthropic-version", anthropicVersion)

	// Anthropic rejects a system role inside messages; hoist it into the
	// top-level system field.
	var system []string
	messages := make([]types.Message, 0, len(cfg.Messages))
	for _, m := range cfg.Messages {
		if m.Role == types.RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}
			continue
		}
		messages = append(messages, m)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = claudeDefaultMaxTokens
	}

	body, _ := json.Marshal(claudeBody{
		Model:       cfg.Model,
		Messages:    messages,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
		Stream:      stream,
	})

	return AdaptedRequest{URL: url, Header: header, Body: body}
}
