package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Timeouts holds the per-action-class time limits applied to session
// operations.
type Timeouts struct {
	// Navigation bounds full page loads.
	Navigation time.Duration

	// Action bounds element interactions such as click and fill.
	Action time.Duration

	// Wait bounds settle waits for selectors and load states.
	Wait time.Duration

	// Network bounds downloads and other network-heavy operations.
	Network time.Duration
}

// DefaultTimeouts returns the standard per-class limits.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation: 30 * time.Second,
		Action:     10 * time.Second,
		Wait:       5 * time.Second,
		Network:    60 * time.Second,
	}
}

// Session is an isolated browser context with a single active page.
// Sessions are created by a Manager and are safe for use from one
// goroutine at a time.
type Session struct {
	id       string
	context  playwright.BrowserContext
	page     playwright.Page
	timeouts Timeouts
	onClose  func(id string)

	mu         sync.Mutex
	createdAt  time.Time
	lastUsed   time.Time
	currentURL string
	closed     bool
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// LastUsed returns the time of the last operation on this session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// CurrentURL returns the URL of the page after the most recent
// navigation or click.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

func (s *Session) setCurrentURL(url string) {
	s.mu.Lock()
	s.currentURL = url
	s.mu.Unlock()
}

// Navigate loads the URL, waiting for the load event and then giving
// the page a short window to go network idle. Pages that never settle
// are still considered loaded.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(s.timeouts.Navigation.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(s.timeouts.Wait.Milliseconds())),
	})

	s.setCurrentURL(s.page.URL())
	return nil
}

// Click clicks the element matching the selector, waiting for it to
// become visible first. Navigations triggered by the click are given a
// settle window before returning.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	locator := s.page.Locator(selector)
	if err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(s.timeouts.Action.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("element %s not visible: %w", selector, err)
	}

	if err := locator.Click(); err != nil {
		return fmt.Errorf("click on %s failed: %w", selector, err)
	}

	s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(s.timeouts.Wait.Milliseconds())),
	})

	s.setCurrentURL(s.page.URL())
	return nil
}

// Fill clears the input matching the selector and types the value.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	locator := s.page.Locator(selector)
	if err := locator.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(s.timeouts.Action.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("input %s not visible: %w", selector, err)
	}

	if err := locator.Clear(); err != nil {
		return fmt.Errorf("clear of %s failed: %w", selector, err)
	}
	if err := locator.Fill(value); err != nil {
		return fmt.Errorf("fill of %s failed: %w", selector, err)
	}
	return nil
}

// WaitFor blocks until the selector is visible. A zero timeout uses the
// wait default.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	if timeout <= 0 {
		timeout = s.timeouts.Wait
	}
	if err := s.page.Locator(selector).WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("wait for %s failed: %w", selector, err)
	}
	return nil
}

// Scroll scrolls the element matching the selector into view, or the
// page down by one viewport height when the selector is empty.
func (s *Session) Scroll(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	if selector != "" {
		if err := s.page.Locator(selector).ScrollIntoViewIfNeeded(); err != nil {
			return fmt.Errorf("scroll to %s failed: %w", selector, err)
		}
		return nil
	}

	if _, err := s.page.Evaluate("() => window.scrollBy(0, window.innerHeight)"); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// ExtractText returns the text content of elements matching the
// selector. Multiple matches are joined with newlines.
func (s *Session) ExtractText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.touch()

	elements, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if len(elements) == 0 {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	parts := make([]string, 0, len(elements))
	for _, element := range elements {
		text, err := element.TextContent()
		if err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// ExtractHTML returns the serialized DOM of the current page.
func (s *Session) ExtractHTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.touch()

	content, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return content, nil
}

// Title returns the current page title.
func (s *Session) Title() (string, error) {
	s.touch()
	return s.page.Title()
}

// Screenshot captures the visible viewport to the given path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()

	if _, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}
	return nil
}

// Download clicks the selector, waits for the resulting download, and
// saves it under dir. It returns the saved file path.
func (s *Session) Download(ctx context.Context, selector, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.touch()

	download, err := s.page.ExpectDownload(func() error {
		return s.page.Locator(selector).Click()
	}, playwright.PageExpectDownloadOptions{
		Timeout: playwright.Float(float64(s.timeouts.Network.Milliseconds())),
	})
	if err != nil {
		return "", fmt.Errorf("download from %s failed: %w", selector, err)
	}

	path := filepath.Join(dir, downloadFilename(download.SuggestedFilename()))
	if err := download.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save download: %w", err)
	}
	return path, nil
}

// downloadFilename strips any path components from a server-suggested
// filename. The name comes from the page being scraped, so it is never
// trusted to place the file outside the download directory.
func downloadFilename(suggested string) string {
	name := filepath.Base(strings.TrimSpace(suggested))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "download"
	}
	return name
}

// Close releases the session's browser resources. Teardown errors are
// ignored so cleanup always completes.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	onClose := s.onClose
	s.mu.Unlock()

	if s.page != nil {
		s.page.Close()
	}
	if s.context != nil {
		s.context.Close()
	}
	if onClose != nil {
		onClose(s.id)
	}
	return nil
}
