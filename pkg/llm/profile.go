package llm

import "strings"

// Profile identifies one of the closed set of provider wire formats the
// client understands. It is derived purely from the configured endpoint URL
// and is never persisted.
type Profile int

const (
	// ProfileCustom is the generic OpenAI-compatible profile used when no
	// known provider fingerprint matches. It is the explicit default arm,
	// not an implicit else-branch.
	ProfileCustom Profile = iota
	ProfileOpenAI
	ProfileDeepSeek
	ProfileAzure
	ProfileGemini
	ProfileClaude
)

// String returns the provider name for logging and error messages.
func (p Profile) String() string {
	switch p {
	case ProfileOpenAI:
		return "openai"
	case ProfileDeepSeek:
		return "deepseek"
	case ProfileAzure:
		return "azure"
	case ProfileGemini:
		return "gemini"
	case ProfileClaude:
		return "claude"
	case ProfileCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// profileFingerprint pairs a URL substring with the profile it selects.
// Order matters: Azure hosts contain "openai", so Azure must be checked
// before the plain OpenAI fingerprints.
type profileFingerprint struct {
	substr  string
	profile Profile
}

var profileFingerprints = []profileFingerprint{
	{"openai.azure.com", ProfileAzure},
	{"azure", ProfileAzure},
	{"deepseek", ProfileDeepSeek},
	{"generativelanguage.googleapis.com", ProfileGemini},
	{"googleapis.com", ProfileGemini},
	{"gemini", ProfileGemini},
	{"anthropic", ProfileClaude},
	{"claude", ProfileClaude},
	{"api.openai.com", ProfileOpenAI},
	{"openai", ProfileOpenAI},
}

// ClassifyProfile maps an endpoint URL to a provider profile by
// case-insensitive substring match against the known-host fingerprints.
// The first match wins; an unrecognized URL yields ProfileCustom. The
// function is pure: no network access, no error cases.
func ClassifyProfile(endpointURL string) Profile {
	lowered := strings.ToLower(endpointURL)
	for _, fp := range profileFingerprints {
		if strings.Contains(lowered, fp.substr) {
			return fp.profile
		}
	}
	return ProfileCustom
}

// RequiresAPIKey reports whether the profile refuses unauthenticated
// requests. Custom endpoints (local model servers and proxies) are the only
// profile allowed to run without credentials.
func (p Profile) RequiresAPIKey() bool {
	return p != ProfileCustom
}

// usesSSE reports whether the profile streams responses as SSE/NDJSON lines.
// Gemini is the lone exception: it renders a single JSON array incrementally
// and must be decoded with the object scanner.
func (p Profile) usesSSE() bool {
	return p != ProfileGemini
}
