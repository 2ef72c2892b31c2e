// Package security enforces navigation and input safety rules for
// browser automation. It validates URLs against scheme, host, and glob
// pattern rules before the browser is allowed to load them, and screens
// selectors from untrusted sources for injection attempts.
package security

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// Violation represents a security policy violation.
type Violation struct {
	Type    ViolationType
	Message string
	Details map[string]interface{}
}

func (e *Violation) Error() string {
	return fmt.Sprintf("security violation (%s): %s", e.Type, e.Message)
}

// ViolationType identifies the type of rule that was violated.
type ViolationType string

const (
	ViolationScheme     ViolationType = "scheme"
	ViolationHost       ViolationType = "host"
	ViolationURLPattern ViolationType = "url_pattern"
	ViolationRedirect   ViolationType = "redirect"
	ViolationSelector   ViolationType = "selector"
	ViolationMalformed  ViolationType = "malformed_url"
)

// Schemes that smuggle executable or local content when they appear
// inside an otherwise valid URL, usually through redirect parameters.
var embeddedSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "about:"}

// Policy validates navigation targets. URLs must use an HTTP scheme,
// must not point at private or loopback hosts unless the policy permits
// them, and must pass the allow/deny glob pattern rules.
type Policy struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
	allowPrivate    bool
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

// AllowPrivateHosts permits navigation to loopback and private-network
// addresses. Local development servers need this.
func AllowPrivateHosts() PolicyOption {
	return func(p *Policy) { p.allowPrivate = true }
}

// NewPolicy compiles the allowed and denied URL patterns into a Policy.
// Patterns use glob syntax and match against the full URL.
func NewPolicy(allowed, denied []string, opts ...PolicyOption) (*Policy, error) {
	p := &Policy{}

	// Compile allowed patterns
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		p.allowedPatterns = append(p.allowedPatterns, g)
	}

	// Compile denied patterns
	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		p.deniedPatterns = append(p.deniedPatterns, g)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// CheckURL validates a navigation target against the policy. It returns
// a *Violation describing the first rule the URL breaks, or nil when
// the URL may be loaded.
func (p *Policy) CheckURL(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return &Violation{
			Type:    ViolationMalformed,
			Message: "url is empty",
		}
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return &Violation{
			Type:    ViolationMalformed,
			Message: fmt.Sprintf("url %q cannot be parsed", trimmed),
			Details: map[string]interface{}{"error": err.Error()},
		}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &Violation{
			Type:    ViolationScheme,
			Message: fmt.Sprintf("scheme %q is not allowed, only http and https are", scheme),
			Details: map[string]interface{}{"url": trimmed},
		}
	}

	lower := strings.ToLower(trimmed)
	for _, embedded := range embeddedSchemes {
		if strings.Contains(lower, embedded) {
			return &Violation{
				Type:    ViolationScheme,
				Message: fmt.Sprintf("url embeds a %q reference", embedded),
				Details: map[string]interface{}{"url": trimmed},
			}
		}
	}

	host := parsed.Hostname()
	if host == "" {
		return &Violation{
			Type:    ViolationMalformed,
			Message: fmt.Sprintf("url %q has no host", trimmed),
		}
	}

	if !p.allowPrivate && isPrivateHost(host) {
		return &Violation{
			Type:    ViolationHost,
			Message: fmt.Sprintf("host %q is a private or local address", host),
			Details: map[string]interface{}{"url": trimmed},
		}
	}

	// Denied patterns take precedence
	for _, pattern := range p.deniedPatterns {
		if pattern.Match(trimmed) {
			return &Violation{
				Type:    ViolationURLPattern,
				Message: fmt.Sprintf("url %q matches a denied pattern", trimmed),
			}
		}
	}

	// If no allowed patterns specified, allow all (except denied)
	if len(p.allowedPatterns) == 0 {
		return nil
	}

	for _, pattern := range p.allowedPatterns {
		if pattern.Match(trimmed) {
			return nil
		}
	}

	return &Violation{
		Type:    ViolationURLPattern,
		Message: fmt.Sprintf("url %q does not match any allowed pattern", trimmed),
	}
}

// CheckRedirect re-validates a navigation once redirects settle. The
// URL the browser actually landed on must pass the same rules as the
// requested one, so a permitted entry URL cannot bounce the session
// somewhere the policy forbids.
func (p *Policy) CheckRedirect(requestedURL, finalURL string) error {
	if finalURL == requestedURL {
		return nil
	}

	if err := p.CheckURL(finalURL); err != nil {
		var violation *Violation
		if errors.As(err, &violation) {
			return &Violation{
				Type:    ViolationRedirect,
				Message: fmt.Sprintf("redirect to %q is not allowed: %s", finalURL, violation.Message),
				Details: map[string]interface{}{
					"requested_url": requestedURL,
					"final_url":     finalURL,
				},
			}
		}
		return err
	}

	return nil
}

// isPrivateHost reports whether the host names a loopback, link-local,
// or private-range address, or uses a local-only naming convention.
func isPrivateHost(host string) bool {
	lowered := strings.ToLower(host)
	if lowered == "localhost" ||
		strings.HasSuffix(lowered, ".localhost") ||
		strings.HasSuffix(lowered, ".local") ||
		strings.HasSuffix(lowered, ".internal") {
		return true
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
