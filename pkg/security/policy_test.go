package security

import (
	"errors"
	"testing"
)

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		denied  []string
		wantErr bool
	}{
		{
			name:    "no patterns",
			wantErr: false,
		},
		{
			name:    "valid patterns",
			allowed: []string{"https://example.com/*", "https://*.example.com/*"},
			denied:  []string{"*/admin/*"},
			wantErr: false,
		},
		{
			name:    "invalid allowed pattern",
			allowed: []string{"["},
			wantErr: true,
		},
		{
			name:    "invalid denied pattern",
			denied:  []string{"["},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewPolicy(tt.allowed, tt.denied)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPolicy() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && policy == nil {
				t.Error("NewPolicy() returned nil policy without error")
			}
		})
	}
}

func TestPolicyCheckURL(t *testing.T) {
	policy, err := NewPolicy(nil, nil)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	tests := []struct {
		name     string
		url      string
		wantType ViolationType
	}{
		{
			name: "https allowed",
			url:  "https://example.com/pricing",
		},
		{
			name: "http allowed",
			url:  "http://example.com",
		},
		{
			name: "surrounding whitespace trimmed",
			url:  "  https://example.com/pricing  ",
		},
		{
			name:     "empty url",
			url:      "",
			wantType: ViolationMalformed,
		},
		{
			name:     "unparseable url",
			url:      "https://example.com/\x00",
			wantType: ViolationMalformed,
		},
		{
			name:     "missing host",
			url:      "https:///pricing",
			wantType: ViolationMalformed,
		},
		{
			name:     "relative url",
			url:      "example.com/pricing",
			wantType: ViolationScheme,
		},
		{
			name:     "file scheme",
			url:      "file:///etc/passwd",
			wantType: ViolationScheme,
		},
		{
			name:     "javascript scheme",
			url:      "javascript:alert(1)",
			wantType: ViolationScheme,
		},
		{
			name:     "ftp scheme",
			url:      "ftp://example.com/pub",
			wantType: ViolationScheme,
		},
		{
			name:     "javascript smuggled in query",
			url:      "https://example.com/?next=javascript:alert(1)",
			wantType: ViolationScheme,
		},
		{
			name:     "data url smuggled in query",
			url:      "https://example.com/?src=data:text/html,x",
			wantType: ViolationScheme,
		},
		{
			name:     "localhost denied",
			url:      "http://localhost:3000/dashboard",
			wantType: ViolationHost,
		},
		{
			name:     "loopback denied",
			url:      "http://127.0.0.1:8080/admin",
			wantType: ViolationHost,
		},
		{
			name:     "private range denied",
			url:      "http://192.168.1.10/router",
			wantType: ViolationHost,
		},
		{
			name:     "ipv6 loopback denied",
			url:      "http://[::1]:8080/",
			wantType: ViolationHost,
		},
		{
			name:     "internal suffix denied",
			url:      "https://vault.internal/secrets",
			wantType: ViolationHost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.CheckURL(tt.url)
			if tt.wantType == "" {
				if err != nil {
					t.Errorf("CheckURL(%q) = %v, want nil", tt.url, err)
				}
				return
			}

			var violation *Violation
			if !errors.As(err, &violation) {
				t.Fatalf("CheckURL(%q) = %v, want *Violation", tt.url, err)
			}
			if violation.Type != tt.wantType {
				t.Errorf("CheckURL(%q) violation type = %s, want %s", tt.url, violation.Type, tt.wantType)
			}
		})
	}
}

func TestPolicyAllowPrivateHosts(t *testing.T) {
	policy, err := NewPolicy(nil, nil, AllowPrivateHosts())
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	urls := []string{
		"http://localhost:3000/dashboard",
		"http://127.0.0.1:8080/health",
		"http://192.168.1.10/router",
	}
	for _, u := range urls {
		if err := policy.CheckURL(u); err != nil {
			t.Errorf("CheckURL(%q) = %v, want nil", u, err)
		}
	}

	// Scheme rules still apply.
	if err := policy.CheckURL("file:///etc/passwd"); err == nil {
		t.Error("CheckURL() accepted a file URL")
	}
}

func TestPolicyPatterns(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		denied  []string
		url     string
		wantOK  bool
	}{
		{
			name:    "allowed pattern matches",
			allowed: []string{"https://example.com/*"},
			url:     "https://example.com/pricing",
			wantOK:  true,
		},
		{
			name:    "allowed pattern does not match",
			allowed: []string{"https://example.com/*"},
			url:     "https://other.com/pricing",
			wantOK:  false,
		},
		{
			name:    "subdomain wildcard",
			allowed: []string{"https://*.example.com/*"},
			url:     "https://docs.example.com/api",
			wantOK:  true,
		},
		{
			name:    "denied takes precedence over allowed",
			allowed: []string{"https://example.com/*"},
			denied:  []string{"*/admin/*"},
			url:     "https://example.com/admin/users",
			wantOK:  false,
		},
		{
			name:   "denied with no allowed list",
			denied: []string{"*checkout*"},
			url:    "https://shop.example.com/checkout",
			wantOK: false,
		},
		{
			name:   "no patterns allows all",
			url:    "https://anything.example.net/page",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewPolicy(tt.allowed, tt.denied)
			if err != nil {
				t.Fatalf("NewPolicy() error = %v", err)
			}

			err = policy.CheckURL(tt.url)
			if tt.wantOK {
				if err != nil {
					t.Errorf("CheckURL(%q) = %v, want nil", tt.url, err)
				}
				return
			}

			var violation *Violation
			if !errors.As(err, &violation) {
				t.Fatalf("CheckURL(%q) = %v, want *Violation", tt.url, err)
			}
			if violation.Type != ViolationURLPattern {
				t.Errorf("violation type = %s, want %s", violation.Type, ViolationURLPattern)
			}
		})
	}
}

func TestPolicyCheckRedirect(t *testing.T) {
	policy, err := NewPolicy([]string{"https://example.com/*"}, nil)
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	if err := policy.CheckRedirect("https://example.com/a", "https://example.com/a"); err != nil {
		t.Errorf("CheckRedirect() with unchanged url = %v, want nil", err)
	}

	if err := policy.CheckRedirect("https://example.com/a", "https://example.com/b"); err != nil {
		t.Errorf("CheckRedirect() within policy = %v, want nil", err)
	}

	err = policy.CheckRedirect("https://example.com/login", "https://evil.example.net/phish")
	var violation *Violation
	if !errors.As(err, &violation) {
		t.Fatalf("CheckRedirect() = %v, want *Violation", err)
	}
	if violation.Type != ViolationRedirect {
		t.Errorf("violation type = %s, want %s", violation.Type, ViolationRedirect)
	}
	if violation.Details["final_url"] != "https://evil.example.net/phish" {
		t.Errorf("violation details final_url = %v", violation.Details["final_url"])
	}
	if violation.Details["requested_url"] != "https://example.com/login" {
		t.Errorf("violation details requested_url = %v", violation.Details["requested_url"])
	}
}

func TestViolationError(t *testing.T) {
	v := &Violation{
		Type:    ViolationScheme,
		Message: `scheme "ftp" is not allowed`,
	}

	want := `security violation (scheme): scheme "ftp" is not allowed`
	if v.Error() != want {
		t.Errorf("Error() = %q, want %q", v.Error(), want)
	}
}
