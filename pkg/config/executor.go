package config

import (
	"fmt"
	"sync"
)

const (
	// SectionIDExecutor is the identifier for the executor settings section
	SectionIDExecutor = "executor"

	// Default values for executor settings
	defaultScreenshotOnFailure = true
	defaultConfidenceThreshold = 0.4
)

// ExecutorSection manages plan execution configuration settings.
type ExecutorSection struct {
	ArtifactRoot        string   `json:"artifact_root"`
	AllowedURLPatterns  []string `json:"allowed_url_patterns"`
	DeniedURLPatterns   []string `json:"denied_url_patterns"`
	ConfidenceThreshold float64  `json:"confidence_threshold"`
	ScreenshotOnFailure bool     `json:"screenshot_on_failure"`
	mu                  sync.RWMutex
}

// NewExecutorSection creates a new executor section with default settings.
func NewExecutorSection() *ExecutorSection {
	return &ExecutorSection{
		ArtifactRoot:        "",
		AllowedURLPatterns:  nil,
		DeniedURLPatterns:   nil,
		ConfidenceThreshold: defaultConfidenceThreshold,
		ScreenshotOnFailure: defaultScreenshotOnFailure,
	}
}

// ID returns the section identifier.
func (s *ExecutorSection) ID() string {
	return SectionIDExecutor
}

// Title returns the section title.
func (s *ExecutorSection) Title() string {
	return "Executor Settings"
}

// Description returns the section description.
func (s *ExecutorSection) Description() string {
	return "Configure plan execution including the artifact directory, URL allow/deny patterns, failure screenshots, and the confidence threshold below which plans require --force."
}

// Data returns the current configuration data.
func (s *ExecutorSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"artifact_root":         s.ArtifactRoot,
		"allowed_url_patterns":  stringsToAny(s.AllowedURLPatterns),
		"denied_url_patterns":   stringsToAny(s.DeniedURLPatterns),
		"confidence_threshold":  s.ConfidenceThreshold,
		"screenshot_on_failure": s.ScreenshotOnFailure,
	}
}

// SetData updates the configuration from the provided data.
func (s *ExecutorSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "artifact_root":
			if root, ok := value.(string); ok {
				s.ArtifactRoot = root
			} else {
				return fmt.Errorf("invalid value type for artifact_root: expected string, got %T", value)
			}

		case "allowed_url_patterns":
			patterns, err := stringSliceValue(key, value)
			if err != nil {
				return err
			}
			s.AllowedURLPatterns = patterns

		case "denied_url_patterns":
			patterns, err := stringSliceValue(key, value)
			if err != nil {
				return err
			}
			s.DeniedURLPatterns = patterns

		case "confidence_threshold":
			if threshold, ok := value.(float64); ok {
				s.ConfidenceThreshold = threshold
			} else {
				return fmt.Errorf("invalid value type for confidence_threshold: expected number, got %T", value)
			}

		case "screenshot_on_failure":
			if enabled, ok := value.(bool); ok {
				s.ScreenshotOnFailure = enabled
			} else {
				return fmt.Errorf("invalid value type for screenshot_on_failure: expected bool, got %T", value)
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *ExecutorSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %v", s.ConfidenceThreshold)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *ExecutorSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ArtifactRoot = ""
	s.AllowedURLPatterns = nil
	s.DeniedURLPatterns = nil
	s.ConfidenceThreshold = defaultConfidenceThreshold
	s.ScreenshotOnFailure = defaultScreenshotOnFailure
}

// GetArtifactRoot returns the configured artifact directory.
// An empty string means use the default under ~/.scrapinator/runs.
func (s *ExecutorSection) GetArtifactRoot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ArtifactRoot
}

// SetArtifactRoot sets the artifact directory.
func (s *ExecutorSection) SetArtifactRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ArtifactRoot = root
}

// GetURLPatterns returns copies of the (allowed, denied) URL pattern lists.
func (s *ExecutorSection) GetURLPatterns() ([]string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make([]string, len(s.AllowedURLPatterns))
	copy(allowed, s.AllowedURLPatterns)
	denied := make([]string, len(s.DeniedURLPatterns))
	copy(denied, s.DeniedURLPatterns)
	return allowed, denied
}

// SetURLPatterns sets the URL allow and deny pattern lists.
func (s *ExecutorSection) SetURLPatterns(allowed, denied []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AllowedURLPatterns = allowed
	s.DeniedURLPatterns = denied
}

// GetConfidenceThreshold returns the minimum plan confidence for
// unforced execution.
func (s *ExecutorSection) GetConfidenceThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ConfidenceThreshold
}

// GetScreenshotOnFailure returns whether failed steps capture a screenshot.
func (s *ExecutorSection) GetScreenshotOnFailure() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ScreenshotOnFailure
}

// stringsToAny converts a string slice for JSON-compatible storage.
func stringsToAny(values []string) []any {
	result := make([]any, len(values))
	for i, v := range values {
		result[i] = v
	}
	return result
}

// stringSliceValue coerces a persisted config value into a string slice.
// JSON arrays decode as []interface{}.
func stringSliceValue(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid entry type for %s: expected string, got %T", key, item)
			}
			result = append(result, s)
		}
		return result, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid value type for %s: expected list of strings, got %T", key, value)
	}
}
