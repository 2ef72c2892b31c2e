package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDCache is the identifier for the cache settings section
	SectionIDCache = "cache"

	// Default values for cache settings
	defaultCacheEnabled = true
	defaultCacheTTL     = 15 * time.Minute
)

// CacheSection manages page analysis cache configuration settings.
type CacheSection struct {
	DBPath  string        `json:"db_path"`
	TTL     time.Duration `json:"ttl"`
	Enabled bool          `json:"enabled"`
	mu      sync.RWMutex
}

// NewCacheSection creates a new cache section with default settings.
func NewCacheSection() *CacheSection {
	return &CacheSection{
		DBPath:  "",
		TTL:     defaultCacheTTL,
		Enabled: defaultCacheEnabled,
	}
}

// ID returns the section identifier.
func (s *CacheSection) ID() string {
	return SectionIDCache
}

// Title returns the section title.
func (s *CacheSection) Title() string {
	return "Cache Settings"
}

// Description returns the section description.
func (s *CacheSection) Description() string {
	return "Configure the page analysis cache including whether it is enabled, how long entries stay fresh, and where the database lives."
}

// Data returns the current configuration data.
func (s *CacheSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"enabled": s.Enabled,
		"ttl":     s.TTL.String(),
		"db_path": s.DBPath,
	}
}

// SetData updates the configuration from the provided data.
func (s *CacheSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "enabled":
			if enabled, ok := value.(bool); ok {
				s.Enabled = enabled
			} else {
				return fmt.Errorf("invalid value type for enabled: expected bool, got %T", value)
			}

		case "ttl":
			ttl, err := durationValue(key, value)
			if err != nil {
				return err
			}
			s.TTL = ttl

		case "db_path":
			if path, ok := value.(string); ok {
				s.DBPath = path
			} else {
				return fmt.Errorf("invalid value type for db_path: expected string, got %T", value)
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *CacheSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", s.TTL)
	}

	return nil
}

// Reset resets the section to default configuration.
func (s *CacheSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DBPath = ""
	s.TTL = defaultCacheTTL
	s.Enabled = defaultCacheEnabled
}

// GetEnabled returns whether the page cache is enabled.
func (s *CacheSection) GetEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Enabled
}

// SetEnabled sets whether the page cache is enabled.
func (s *CacheSection) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = enabled
}

// GetTTL returns how long cached page analyses stay fresh.
func (s *CacheSection) GetTTL() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.TTL
}

// SetTTL sets how long cached page analyses stay fresh.
func (s *CacheSection) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TTL = ttl
}

// GetDBPath returns the configured database path.
// An empty string means use the default under ~/.scrapinator.
func (s *CacheSection) GetDBPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DBPath
}
