package llm

import "encoding/json"

// openAIFrame covers both SSE delta frames and NDJSON frames emitted by
// OpenAI-compatible servers (including Azure deployments and local-model
// NDJSON variants).
type openAIFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type claudeFrame struct {
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

type geminiFrame struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// extractDelta pulls the provider-specific text delta out of one parsed
// protocol frame. ok is false when the payload is not valid JSON for the
// profile; an empty delta with ok true means a structurally valid but
// contentless frame (role announcements, usage blocks, stop events).
func extractDelta(profile Profile, payload []byte) (delta string, ok bool) {
	switch profile {
	case ProfileClaude:
		var f claudeFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			return "", false
		}
		return f.Delta.Text, true
	case ProfileGemini:
		var f geminiFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			return "", false
		}
		if len(f.Candidates) == 0 || len(f.Candidates[0].Content.Parts) == 0 {
			return "", true
		}
		return f.Candidates[0].Content.Parts[0].Text, true
	default:
		var f openAIFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			return "", false
		}
		if len(f.Choices) > 0 {
			if f.Choices[0].Delta.Content != "" {
				return f.Choices[0].Delta.Content, true
			}
			return f.Choices[0].Message.Content, true
		}
		// NDJSON servers put the delta under a top-level message.
		return f.Message.Content, true
	}
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// extractCompletion pulls the full completion text out of a non-streaming
// response body.
func extractCompletion(profile Profile, body []byte) (string, bool) {
	switch profile {
	case ProfileClaude:
		var r claudeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return "", false
		}
		if len(r.Content) == 0 {
			return "", false
		}
		return r.Content[0].Text, true
	case ProfileGemini:
		var f geminiFrame
		if err := json.Unmarshal(body, &f); err != nil {
			return "", false
		}
		if len(f.Candidates) == 0 || len(f.Candidates[0].Content.Parts) == 0 {
			return "", false
		}
		return f.Candidates[0].Content.Parts[0].Text, true
	default:
		var f openAIFrame
		if err := json.Unmarshal(body, &f); err != nil {
			return "", false
		}
		if len(f.Choices) > 0 && f.Choices[0].Message.Content != "" {
			return f.Choices[0].Message.Content, true
		}
		if f.Message.Content != "" {
			return f.Message.Content, true
		}
		return "", false
	}
}
