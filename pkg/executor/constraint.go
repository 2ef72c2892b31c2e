package executor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"scrapinator/pkg/security"
	"scrapinator/pkg/task"
)

// Default execution limits. The constraint manager itself treats zero
// config values as disabled; the config layer applies these when a run
// does not set its own.
const (
	DefaultMaxSteps   = 25
	DefaultRunTimeout = 10 * time.Minute
)

// DefaultDeniedSelectors blocks generated plans from filling credential
// fields. Brackets are escaped so the globs match them literally.
var DefaultDeniedSelectors = []string{
	`*\[type=password\]*`,
	`*\[type="password"\]*`,
	`*\[type='password'\]*`,
}

// ConstraintConfig bounds what a plan execution may do. Zero values
// disable the corresponding limit.
type ConstraintConfig struct {
	// Policy validates navigation targets. Nil means the default policy:
	// HTTP(S) URLs on public hosts, no pattern rules.
	Policy *security.Policy

	// DeniedSelectors are glob patterns that fill steps must not match.
	// Nil means DefaultDeniedSelectors; an explicitly empty slice
	// disables the denylist.
	DeniedSelectors []string

	// MaxSteps caps the number of executed steps.
	MaxSteps int

	// Timeout caps the wall-clock duration of the run.
	Timeout time.Duration
}

// ConstraintViolation reports a step or run that crossed an execution
// limit.
type ConstraintViolation struct {
	Type    ViolationType
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation (%s): %s", e.Type, e.Message)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}

// ViolationType identifies the kind of limit a run violated.
type ViolationType string

const (
	ViolationURL       ViolationType = "url"
	ViolationRedirect  ViolationType = "redirect"
	ViolationSelector  ViolationType = "selector"
	ViolationStepCount ViolationType = "step_count"
	ViolationTimeout   ViolationType = "timeout"
)

// ConstraintManager enforces execution limits during a run.
type ConstraintManager struct {
	config *ConstraintConfig
	policy *security.Policy

	deniedSelectors []glob.Glob

	// Runtime state tracking
	stepsTaken int
	startTime  time.Time

	mu sync.RWMutex
}

// NewConstraintManager creates a constraint manager for one run.
func NewConstraintManager(config ConstraintConfig) (*ConstraintManager, error) {
	policy := config.Policy
	if policy == nil {
		p, err := security.NewPolicy(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create default policy: %w", err)
		}
		policy = p
	}

	if config.DeniedSelectors == nil {
		config.DeniedSelectors = DefaultDeniedSelectors
	}
	denied := make([]glob.Glob, 0, len(config.DeniedSelectors))
	for _, pattern := range config.DeniedSelectors {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied selector pattern '%s': %w", pattern, err)
		}
		denied = append(denied, g)
	}

	return &ConstraintManager{
		config:          &config,
		policy:          policy,
		deniedSelectors: denied,
		startTime:       time.Now(),
	}, nil
}

// ValidateURL checks a navigation target against the URL policy.
func (cm *ConstraintManager) ValidateURL(url string) error {
	if err := cm.policy.CheckURL(url); err != nil {
		return &ConstraintViolation{
			Type:    ViolationURL,
			Message: fmt.Sprintf("navigation to %q is not allowed", url),
			Details: map[string]interface{}{
				"url": url,
			},
			Err: err,
		}
	}
	return nil
}

// ValidateRedirect checks the URL a navigation actually settled on
// against the URL policy. Pages can redirect past the requested URL,
// so the landing URL is validated separately after navigation.
func (cm *ConstraintManager) ValidateRedirect(requestedURL, finalURL string) error {
	if err := cm.policy.CheckRedirect(requestedURL, finalURL); err != nil {
		return &ConstraintViolation{
			Type:    ViolationRedirect,
			Message: fmt.Sprintf("navigation to %q was redirected to a disallowed URL", requestedURL),
			Details: map[string]interface{}{
				"requested_url": requestedURL,
				"final_url":     finalURL,
			},
			Err: err,
		}
	}
	return nil
}

// ValidateSelector checks a step selector before it is handed to the
// browser. Every selector goes through the injection screen; fill steps
// are additionally checked against the denied selector patterns.
func (cm *ConstraintManager) ValidateSelector(action task.Action, selector string) error {
	clean, err := security.SanitizeSelector(selector)
	if err != nil {
		return &ConstraintViolation{
			Type:    ViolationSelector,
			Message: fmt.Sprintf("selector %q failed the safety screen", selector),
			Details: map[string]interface{}{
				"selector": selector,
				"action":   string(action),
			},
			Err: err,
		}
	}

	if action == task.ActionFill {
		lowered := strings.ToLower(clean)
		for i, pattern := range cm.deniedSelectors {
			if pattern.Match(lowered) {
				return &ConstraintViolation{
					Type:    ViolationSelector,
					Message: fmt.Sprintf("filling %q is denied by the selector rules", clean),
					Details: map[string]interface{}{
						"selector": clean,
						"pattern":  cm.config.DeniedSelectors[i],
					},
				}
			}
		}
	}

	return nil
}

// RecordStep counts an executed step against the step budget.
func (cm *ConstraintManager) RecordStep() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.stepsTaken++

	if cm.config.MaxSteps > 0 && cm.stepsTaken > cm.config.MaxSteps {
		return &ConstraintViolation{
			Type:    ViolationStepCount,
			Message: fmt.Sprintf("maximum step count exceeded (%d)", cm.config.MaxSteps),
			Details: map[string]interface{}{
				"max_steps":   cm.config.MaxSteps,
				"steps_taken": cm.stepsTaken,
			},
		}
	}

	return nil
}

// CheckTimeout checks whether the run has exceeded its wall-clock limit.
func (cm *ConstraintManager) CheckTimeout() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.config.Timeout <= 0 {
		return nil
	}

	elapsed := time.Since(cm.startTime)
	if elapsed > cm.config.Timeout {
		return &ConstraintViolation{
			Type:    ViolationTimeout,
			Message: fmt.Sprintf("run timeout exceeded (%v)", cm.config.Timeout),
			Details: map[string]interface{}{
				"timeout": cm.config.Timeout,
				"elapsed": elapsed,
			},
		}
	}

	return nil
}

// ConstraintState is a snapshot of the limits consumed so far.
type ConstraintState struct {
	StepsTaken int
	Elapsed    time.Duration
}

// State returns the current constraint state.
func (cm *ConstraintManager) State() *ConstraintState {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return &ConstraintState{
		StepsTaken: cm.stepsTaken,
		Elapsed:    time.Since(cm.startTime),
	}
}
