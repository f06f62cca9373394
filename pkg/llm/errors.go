package llm

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ConfigurationError reports a missing or invalid configuration value. It is
// surfaced before any network call and is never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// RequestError reports a failed exchange: a non-2xx response or a transport
// failure without a recognized completion. Code and Message carry the
// provider's own diagnostics when the error body was decodable.
type RequestError struct {
	Provider   Profile
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *RequestError) Error() string {
	code := e.Code
	if code == "" {
		code = fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Provider, code, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// errorCode tolerates the differing wire types providers use for error
// codes: OpenAI sends strings ("invalid_api_key"), Gemini sends numbers
// (429). Unrecognized shapes are ignored rather than failing the parse.
type errorCode string

func (c *errorCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = errorCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*c = errorCode(n.String())
	}
	return nil
}

// providerErrorBody matches the error envelopes used across providers:
// OpenAI-style {"error":{"code","message","type"}}, Gemini's
// {"error":{"code":429,"message","status"}}, and flat {"code","message"}
// bodies from compatible proxies.
type providerErrorBody struct {
	Error struct {
		Code    errorCode `json:"code"`
		Type    string    `json:"type"`
		Status  string    `json:"status"`
		Message string    `json:"message"`
	} `json:"error"`
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// ClassifyError extracts a provider error code and message from a failed
// HTTP exchange. When the body is not decodable JSON it falls back to the
// transport's own status text.
func ClassifyError(profile Profile, statusCode int, body []byte) *RequestError {
	e := &RequestError{Provider: profile, StatusCode: statusCode}

	var parsed providerErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Error.Message != "":
			e.Message = parsed.Error.Message
			e.Code = firstNonEmpty(string(parsed.Error.Code), parsed.Error.Type, parsed.Error.Status)
		case parsed.Message != "":
			e.Message = parsed.Message
			e.Code = string(parsed.Code)
		}
	}

	if e.Message == "" {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
			e.Message = text
		} else {
			e.Message = http.StatusText(statusCode)
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", statusCode)
	}
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
