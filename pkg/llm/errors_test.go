package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	t.Run("openai string code", func(t *testing.T) {
		body := `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`
		e := ClassifyError(ProfileOpenAI, 401, []byte(body))
		assert.Equal(t, "invalid_api_key", e.Code)
		assert.Equal(t, "Incorrect API key provided", e.Message)
		assert.Equal(t, 401, e.StatusCode)
	})

	t.Run("gemini numeric code", func(t *testing.T) {
		body := `{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`
		e := ClassifyError(ProfileGemini, 429, []byte(body))
		assert.Equal(t, "429", e.Code)
		assert.Equal(t, "Resource has been exhausted", e.Message)
	})

	t.Run("type used when code absent", func(t *testing.T) {
		body := `{"error":{"message":"overloaded","type":"overloaded_error"}}`
		e := ClassifyError(ProfileClaude, 529, []byte(body))
		assert.Equal(t, "overloaded_error", e.Code)
	})

	t.Run("flat body from proxy", func(t *testing.T) {
		body := `{"code":"model_not_found","message":"no such model"}`
		e := ClassifyError(ProfileCustom, 404, []byte(body))
		assert.Equal(t, "model_not_found", e.Code)
		assert.Equal(t, "no such model", e.Message)
	})

	t.Run("short plain text body kept verbatim", func(t *testing.T) {
		e := ClassifyError(ProfileCustom, 502, []byte("upstream connect error"))
		assert.Equal(t, "upstream connect error", e.Message)
		assert.Empty(t, e.Code)
	})

	t.Run("oversized body falls back to status text", func(t *testing.T) {
		e := ClassifyError(ProfileOpenAI, 503, []byte(strings.Repeat("x", 2048)))
		assert.Equal(t, "Service Unavailable", e.Message)
	})

	t.Run("empty body falls back to status text", func(t *testing.T) {
		e := ClassifyError(ProfileAzure, 401, nil)
		assert.Equal(t, "Unauthorized", e.Message)
	})

	t.Run("json without message falls back", func(t *testing.T) {
		e := ClassifyError(ProfileOpenAI, 500, []byte(`{"detail":"boom"}`))
		assert.Equal(t, `{"detail":"boom"}`, e.Message)
	})
}

func TestRequestError_Error(t *testing.T) {
	e := &RequestError{Provider: ProfileOpenAI, StatusCode: 401, Code: "invalid_api_key", Message: "bad key"}
	assert.Equal(t, "[openai] invalid_api_key: bad key", e.Error())

	e = &RequestError{Provider: ProfileGemini, StatusCode: 429, Message: "quota"}
	assert.Equal(t, "[gemini] 429: quota", e.Error())
}

func TestRequestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	e := &RequestError{Provider: ProfileCustom, Cause: cause}
	assert.ErrorIs(t, e, cause)
}

func TestConfigurationError_Error(t *testing.T) {
	e := &ConfigurationError{Field: "endpoint_url", Message: "must not be empty"}
	require.Contains(t, e.Error(), "endpoint_url")
	require.Contains(t, e.Error(), "must not be empty")
}
