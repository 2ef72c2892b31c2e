package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// Defaults for session management.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720

	// DefaultSessionIdleLimit is how long a session may sit unused
	// before the manager closes it.
	DefaultSessionIdleLimit = 30 * time.Minute

	sessionSweepInterval = time.Minute
)

// launchArgs harden Chromium for automation: the automation banner and
// shared-memory pitfalls are disabled, and sandboxing is relaxed so the
// browser runs inside containers.
var launchArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-dev-shm-usage",
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-web-security",
}

// Options configures the browser manager.
type Options struct {
	// Headless controls whether the browser runs without a window.
	Headless bool

	// Timeouts are the per-action-class limits applied to sessions.
	Timeouts Timeouts

	// IdleLimit is how long a session may sit unused before it is
	// closed by the cleanup loop.
	IdleLimit time.Duration
}

// DefaultOptions returns the standard manager configuration.
func DefaultOptions() Options {
	return Options{
		Headless:  true,
		Timeouts:  DefaultTimeouts(),
		IdleLimit: DefaultSessionIdleLimit,
	}
}

// Manager owns the Playwright lifecycle and a shared Chromium instance.
// Sessions are isolated browser contexts on that instance, tracked so
// idle ones can be reclaimed.
type Manager struct {
	mu          sync.RWMutex
	opts        Options
	pw          *playwright.Playwright
	browser     playwright.Browser
	sessions    map[string]*Session
	done        chan struct{}
	wg          sync.WaitGroup
	initialized bool
}

// NewManager creates a manager with the given options. Zero-valued
// timeouts and idle limit fall back to the defaults.
func NewManager(opts Options) *Manager {
	defaults := DefaultTimeouts()
	if opts.Timeouts.Navigation <= 0 {
		opts.Timeouts.Navigation = defaults.Navigation
	}
	if opts.Timeouts.Action <= 0 {
		opts.Timeouts.Action = defaults.Action
	}
	if opts.Timeouts.Wait <= 0 {
		opts.Timeouts.Wait = defaults.Wait
	}
	if opts.Timeouts.Network <= 0 {
		opts.Timeouts.Network = defaults.Network
	}
	if opts.IdleLimit <= 0 {
		opts.IdleLimit = DefaultSessionIdleLimit
	}

	return &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Initialize installs the browser driver if needed, starts Playwright,
// and launches the shared Chromium instance. It must be called before
// creating sessions.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Discard driver output so it cannot interleave with CLI output
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
		Args:     launchArgs,
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	m.pw = pw
	m.browser = browser
	m.initialized = true

	m.done = make(chan struct{})
	m.wg.Add(1)
	go m.reapIdleSessions()

	return nil
}

// NewSession creates an isolated browser context with a fresh page.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("browser manager not initialized")
	}

	browserContext, err := m.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		browserContext.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(float64(m.opts.Timeouts.Action.Milliseconds()))

	now := time.Now()
	session := &Session{
		id:         uuid.New().String(),
		context:    browserContext,
		page:       page,
		timeouts:   m.opts.Timeouts,
		createdAt:  now,
		lastUsed:   now,
		currentURL: "about:blank",
	}
	session.onClose = func(id string) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	}

	m.sessions[session.id] = session
	return session, nil
}

// GetSession retrieves an active session by ID.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %q not found", id)
	}
	return session, nil
}

// SessionCount returns the number of active sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseSession closes and deregisters a session by ID.
func (m *Manager) CloseSession(id string) error {
	m.mu.RLock()
	session, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("session %q not found", id)
	}
	return session.Close()
}

// Close tears down all sessions, the shared browser, and Playwright.
func (m *Manager) Close() error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = false

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[string]*Session)

	browser := m.browser
	pw := m.pw
	m.browser = nil
	m.pw = nil
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()

	for _, session := range sessions {
		session.Close()
	}
	if browser != nil {
		browser.Close()
	}
	if pw != nil {
		if err := pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return nil
}

// reapIdleSessions periodically closes sessions that have been idle
// longer than the configured limit.
func (m *Manager) reapIdleSessions() {
	defer m.wg.Done()

	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.closeIdleSessions(now)
		}
	}
}

// closeIdleSessions closes sessions idle longer than the limit as of
// now. It returns the number of sessions closed.
func (m *Manager) closeIdleSessions(now time.Time) int {
	m.mu.RLock()
	var idle []*Session
	for _, session := range m.sessions {
		if now.Sub(session.LastUsed()) > m.opts.IdleLimit {
			idle = append(idle, session)
		}
	}
	m.mu.RUnlock()

	for _, session := range idle {
		session.Close()
	}
	return len(idle)
}
