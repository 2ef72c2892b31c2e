package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDLLM is the identifier for the LLM settings section
	SectionIDLLM = "llm"

	// ProviderAnthropic selects the Anthropic messages API
	ProviderAnthropic = "anthropic"
	// ProviderOpenAI selects the OpenAI chat completions API
	ProviderOpenAI = "openai"
)

// LLMSection manages LLM provider configuration settings.
type LLMSection struct {
	Provider      string
	Model         string
	BaseURL       string
	APIKey        string
	AnalysisModel string // optional; if empty, task and page analysis use Model
	PlanningModel string // optional; if empty, plan generation uses Model
	mu            sync.RWMutex
}

// NewLLMSection creates a new LLM section with default settings.
func NewLLMSection() *LLMSection {
	return &LLMSection{
		Provider:      "",
		Model:         "",
		BaseURL:       "",
		APIKey:        "",
		AnalysisModel: "",
		PlanningModel: "",
	}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string {
	return SectionIDLLM
}

// Title returns the section title.
func (s *LLMSection) Title() string {
	return "LLM Settings"
}

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "Configure LLM provider settings. analysis_model and planning_model are optional. If set, those pipeline stages use the specified model instead of the main model."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]any{
		"provider":       s.Provider,
		"model":          s.Model,
		"base_url":       s.BaseURL,
		"api_key":        s.APIKey,
		"analysis_model": s.AnalysisModel,
		"planning_model": s.PlanningModel,
	}
}

// SetData updates the configuration from the provided data.
func (s *LLMSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if provider, ok := data["provider"].(string); ok {
		s.Provider = provider
	}

	if model, ok := data["model"].(string); ok {
		s.Model = model
	}

	if baseURL, ok := data["base_url"].(string); ok {
		s.BaseURL = baseURL
	}

	if apiKey, ok := data["api_key"].(string); ok {
		s.APIKey = apiKey
	}

	if analysisModel, ok := data["analysis_model"].(string); ok {
		s.AnalysisModel = analysisModel
	}

	if planningModel, ok := data["planning_model"].(string); ok {
		s.PlanningModel = planningModel
	}

	return nil
}

// Validate validates the current configuration.
func (s *LLMSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// All fields are optional and resolved at runtime, but a provider
	// name that is set must be one we know how to build.
	if s.Provider != "" && s.Provider != ProviderAnthropic && s.Provider != ProviderOpenAI {
		return fmt.Errorf("unknown provider %q (must be %q or %q)", s.Provider, ProviderAnthropic, ProviderOpenAI)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Provider = ""
	s.Model = ""
	s.BaseURL = ""
	s.APIKey = ""
	s.AnalysisModel = ""
	s.PlanningModel = ""
}

// GetProvider returns the configured provider name.
func (s *LLMSection) GetProvider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Provider
}

// SetProvider sets the provider name.
func (s *LLMSection) SetProvider(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Provider = provider
}

// GetModel returns the configured model name.
func (s *LLMSection) GetModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Model
}

// SetModel sets the model name.
func (s *LLMSection) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model = model
}

// GetBaseURL returns the configured base URL.
func (s *LLMSection) GetBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.BaseURL
}

// SetBaseURL sets the base URL.
func (s *LLMSection) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BaseURL = baseURL
}

// GetAPIKey returns the configured API key.
func (s *LLMSection) GetAPIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.APIKey
}

// SetAPIKey sets the API key.
func (s *LLMSection) SetAPIKey(apiKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.APIKey = apiKey
}

// GetAnalysisModel returns the configured analysis model name.
// An empty string means use the main model for analysis stages.
func (s *LLMSection) GetAnalysisModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AnalysisModel
}

// SetAnalysisModel sets the analysis model name.
// Pass an empty string to revert to using the main model.
func (s *LLMSection) SetAnalysisModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AnalysisModel = model
}

// GetPlanningModel returns the configured planning model name.
// An empty string means use the main model for plan generation.
func (s *LLMSection) GetPlanningModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PlanningModel
}

// SetPlanningModel sets the planning model name.
// Pass an empty string to revert to using the main model.
func (s *LLMSection) SetPlanningModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PlanningModel = model
}
