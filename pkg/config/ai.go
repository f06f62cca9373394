package config

import (
	"fmt"
	"sync"
)

// SectionIDAI is the identifier for the AI provider settings section.
const SectionIDAI = "ai"

// Defaults applied when a value has never been configured.
const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultStreaming   = true
)

// AISection manages the AI provider configuration: where to send
// summarization requests, how to authenticate, and how the model should
// behave.
type AISection struct {
	EndpointURL string
	APIKey      string
	Model       string
	Temperature float64
	Prompt      string
	Streaming   bool
	mu          sync.RWMutex
}

// NewAISection creates an AI section with default settings.
func NewAISection() *AISection {
	return &AISection{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		Streaming:   DefaultStreaming,
	}
}

// ID returns the section identifier.
func (s *AISection) ID() string {
	return SectionIDAI
}

// Data returns the current configuration data for persistence.
func (s *AISection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"endpoint_url": s.EndpointURL,
		"api_key":      s.APIKey,
		"model":        s.Model,
		"temperature":  s.Temperature,
		"prompt":       s.Prompt,
		"streaming":    s.Streaming,
	}
}

// SetData updates the configuration from persisted data. Unknown keys are
// ignored; absent keys keep their current values.
func (s *AISection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := data["endpoint_url"].(string); ok {
		s.EndpointURL = v
	}
	if v, ok := data["api_key"].(string); ok {
		s.APIKey = v
	}
	if v, ok := data["model"].(string); ok && v != "" {
		s.Model = v
	}
	if v, ok := data["temperature"].(float64); ok {
		s.Temperature = v
	}
	if v, ok := data["prompt"].(string); ok {
		s.Prompt = v
	}
	if v, ok := data["streaming"].(bool); ok {
		s.Streaming = v
	}

	return nil
}

// Validate checks the configured values. The endpoint and key are allowed
// to be empty here; their presence is enforced at request time so that the
// preferences pane can hold partial configuration.
func (s *AISection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Temperature < 0 || s.Temperature > 1 {
		return fmt.Errorf("temperature %.2f out of range [0,1]", s.Temperature)
	}
	return nil
}

// Reset restores the section to default configuration.
func (s *AISection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EndpointURL = ""
	s.APIKey = ""
	s.Model = DefaultModel
	s.Temperature = DefaultTemperature
	s.Prompt = ""
	s.Streaming = DefaultStreaming
}

// LoadAISection reads the AI section out of a store, applying defaults for
// anything unset.
func LoadAISection(store Store) (*AISection, error) {
	section := NewAISection()
	data, err := store.GetSection(SectionIDAI)
	if err != nil {
		return nil, err
	}
	if err := section.SetData(data); err != nil {
		return nil, err
	}
	return section, nil
}

// SaveAISection writes the AI section back into a store and persists it.
func SaveAISection(store Store, section *AISection) error {
	if err := store.SetSection(SectionIDAI, section.Data()); err != nil {
		return err
	}
	return store.Save()
}
