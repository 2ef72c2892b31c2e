package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	// Default values for browser settings
	defaultHeadless          = true
	defaultPoolMin           = 1
	defaultPoolMax           = 5
	defaultIdleTTL           = 5 * time.Minute
	defaultNavigationTimeout = 30 * time.Second
	defaultActionTimeout     = 10 * time.Second
)

// BrowserSection manages browser pool and timeout configuration settings.
type BrowserSection struct {
	Headless          bool          `json:"headless"`
	PoolMin           int           `json:"pool_min"`
	PoolMax           int           `json:"pool_max"`
	IdleTTL           time.Duration `json:"idle_ttl"`
	NavigationTimeout time.Duration `json:"navigation_timeout"`
	ActionTimeout     time.Duration `json:"action_timeout"`
	mu                sync.RWMutex
}

// NewBrowserSection creates a new browser section with default settings.
func NewBrowserSection() *BrowserSection {
	return &BrowserSection{
		Headless:          defaultHeadless,
		PoolMin:           defaultPoolMin,
		PoolMax:           defaultPoolMax,
		IdleTTL:           defaultIdleTTL,
		NavigationTimeout: defaultNavigationTimeout,
		ActionTimeout:     defaultActionTimeout,
	}
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser Settings"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Configure browser behavior including headless mode, context pool sizing, and navigation timeouts."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"headless":           s.Headless,
		"pool_min":           s.PoolMin,
		"pool_max":           s.PoolMax,
		"idle_ttl":           s.IdleTTL.String(),
		"navigation_timeout": s.NavigationTimeout.String(),
		"action_timeout":     s.ActionTimeout.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "headless":
			if headless, ok := value.(bool); ok {
				s.Headless = headless
			} else {
				return fmt.Errorf("invalid value type for headless: expected bool, got %T", value)
			}

		case "pool_min":
			size, err := intValue(key, value)
			if err != nil {
				return err
			}
			s.PoolMin = size

		case "pool_max":
			size, err := intValue(key, value)
			if err != nil {
				return err
			}
			s.PoolMax = size

		case "idle_ttl":
			ttl, err := durationValue(key, value)
			if err != nil {
				return err
			}
			s.IdleTTL = ttl

		case "navigation_timeout":
			timeout, err := durationValue(key, value)
			if err != nil {
				return err
			}
			s.NavigationTimeout = timeout

		case "action_timeout":
			timeout, err := durationValue(key, value)
			if err != nil {
				return err
			}
			s.ActionTimeout = timeout

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.PoolMin < 1 {
		return fmt.Errorf("pool_min must be at least 1, got %d", s.PoolMin)
	}

	if s.PoolMax < s.PoolMin {
		return fmt.Errorf("pool_max (%d) must be at least pool_min (%d)", s.PoolMax, s.PoolMin)
	}

	if s.IdleTTL <= 0 {
		return fmt.Errorf("idle_ttl must be positive, got %v", s.IdleTTL)
	}

	if s.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be positive, got %v", s.NavigationTimeout)
	}

	if s.ActionTimeout <= 0 {
		return fmt.Errorf("action_timeout must be positive, got %v", s.ActionTimeout)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Headless = defaultHeadless
	s.PoolMin = defaultPoolMin
	s.PoolMax = defaultPoolMax
	s.IdleTTL = defaultIdleTTL
	s.NavigationTimeout = defaultNavigationTimeout
	s.ActionTimeout = defaultActionTimeout
}

// GetHeadless returns whether browsers launch headless.
func (s *BrowserSection) GetHeadless() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Headless
}

// SetHeadless sets whether browsers launch headless.
func (s *BrowserSection) SetHeadless(headless bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headless = headless
}

// GetPoolSizes returns the configured (min, max) pool sizes.
func (s *BrowserSection) GetPoolSizes() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PoolMin, s.PoolMax
}

// SetPoolSizes sets the pool sizes.
func (s *BrowserSection) SetPoolSizes(minSize, maxSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PoolMin = minSize
	s.PoolMax = maxSize
}

// GetIdleTTL returns how long an idle context is kept before being closed.
func (s *BrowserSection) GetIdleTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.IdleTTL
}

// GetTimeouts returns the configured (navigation, action) timeouts.
func (s *BrowserSection) GetTimeouts() (time.Duration, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.NavigationTimeout, s.ActionTimeout
}

// intValue coerces a persisted config value into an int.
// JSON numbers decode as float64.
func intValue(key string, value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected number, got %T", key, value)
	}
}

// durationValue coerces a persisted config value into a duration.
// Durations are stored as strings but numeric nanoseconds are accepted.
func durationValue(key string, value any) (time.Duration, error) {
	switch v := value.(type) {
	case string:
		duration, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", key, err)
		}
		return duration, nil
	case float64:
		return time.Duration(v), nil
	case int64:
		return time.Duration(v), nil
	default:
		return 0, fmt.Errorf("invalid value type for %s: expected string or number, got %T", key, value)
	}
}
