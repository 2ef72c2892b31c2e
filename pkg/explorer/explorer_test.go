package explorer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapinator/pkg/llm"
	"scrapinator/pkg/llm/parser"
	"scrapinator/pkg/llm/tokenizer"
	"scrapinator/pkg/security"
	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

const searchPageHTML = `<html>
<head><title>Acme Widgets</title></head>
<body>
<form action="/search">
<input type="text" name="q" placeholder="Search products">
<button id="search-btn" type="submit">Search</button>
</form>
<div class="results"><a href="/widgets/blue">Blue widget</a></div>
</body>
</html>`

const searchResponse = `{
	"page_type": "search",
	"summary": "Product search page for the Acme widget catalog.",
	"elements": [
		{"type": "input", "selector": "input[name=\"q\"]", "text": "", "purpose": "Search query input"},
		{"type": "button", "selector": "#search-btn", "text": "Search", "purpose": "Submits the search"}
	],
	"insights": ["Results render below the search form"],
	"confidence": 0.85
}`

// fakeBrowser is a scriptable PageBrowser serving canned page content.
type fakeBrowser struct {
	html        string
	elements    []task.PageElement
	navigateErr error
	landingURL  string
	htmlErr     error
	discoverErr error
	navigated   []string
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigated = append(b.navigated, url)
	return b.navigateErr
}

func (b *fakeBrowser) CurrentURL() string {
	if b.landingURL != "" {
		return b.landingURL
	}
	if len(b.navigated) == 0 {
		return ""
	}
	return b.navigated[len(b.navigated)-1]
}

func (b *fakeBrowser) ExtractHTML(ctx context.Context) (string, error) {
	if b.htmlErr != nil {
		return "", b.htmlErr
	}
	return b.html, nil
}

func (b *fakeBrowser) DiscoverElements(ctx context.Context) ([]task.PageElement, error) {
	if b.discoverErr != nil {
		return nil, b.discoverErr
	}
	return b.elements, nil
}

// fakeSource lends its fake browser and counts how often it is used.
type fakeSource struct {
	browser *fakeBrowser
	err     error
	uses    int
}

func (s *fakeSource) WithSession(ctx context.Context, fn func(PageBrowser) error) error {
	if s.err != nil {
		return s.err
	}
	s.uses++
	return fn(s.browser)
}

// fakeCache is a map-backed PageCache with scriptable failures.
type fakeCache struct {
	entries    map[string]*task.PageAnalysis
	lookupErr  error
	cacheErr   error
	lookups    int
	saves      int
	lastMaxAge time.Duration
}

func (c *fakeCache) LookupPage(url string, maxAge time.Duration) (*task.PageAnalysis, error) {
	c.lookups++
	c.lastMaxAge = maxAge
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	cached, ok := c.entries[url]
	if !ok {
		return nil, nil
	}
	hit := *cached
	hit.FromCache = true
	return &hit, nil
}

func (c *fakeCache) CachePage(analysis *task.PageAnalysis) error {
	c.saves++
	if c.cacheErr != nil {
		return c.cacheErr
	}
	if c.entries == nil {
		c.entries = make(map[string]*task.PageAnalysis)
	}
	saved := *analysis
	c.entries[analysis.URL] = &saved
	return nil
}

// stubProvider implements llm.Provider with canned replies so explorer
// behavior can be tested without network access.
type stubProvider struct {
	reply    string
	failures []error
	calls    int
	messages []*types.Message
	options  *llm.CompletionOptions
}

func (p *stubProvider) Complete(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (*types.Message, error) {
	p.calls++
	p.messages = messages
	p.options = llm.ApplyCompletionOptions(opts)
	if len(p.failures) > 0 {
		err := p.failures[0]
		p.failures = p.failures[1:]
		return nil, err
	}
	return types.NewAssistantMessage(p.reply), nil
}

func (p *stubProvider) StreamCompletion(ctx context.Context, messages []*types.Message, opts ...llm.CompletionOption) (<-chan *llm.StreamChunk, error) {
	return nil, errors.New("stub provider does not stream")
}

func (p *stubProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "stub", Name: "stub-model", MaxTokens: 200000}
}

func (p *stubProvider) GetModel() string   { return "stub-model" }
func (p *stubProvider) GetBaseURL() string { return "" }
func (p *stubProvider) GetAPIKey() string  { return "" }

// wordGuard counts whitespace-separated words so tests do not depend on
// encoding data.
func wordGuard(maxTokens int) *tokenizer.Guard {
	return tokenizer.NewGuardWithCounter(func(text string) int {
		return len(strings.Fields(text))
	}, maxTokens)
}

func fastRetrier() *llm.Retrier {
	return &llm.Retrier{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2.0,
		MaxDelay:      5 * time.Millisecond,
	}
}

func searchBrowser() *fakeBrowser {
	return &fakeBrowser{
		html: searchPageHTML,
		elements: []task.PageElement{
			{
				Selector: "#search-btn",
				Tag:      "button",
				Type:     "button",
				Text:     "Search",
				Visible:  true,
			},
		},
	}
}

func newTestExplorer(t *testing.T, source SessionSource, provider llm.Provider, opts ...Option) *Explorer {
	t.Helper()
	base := []Option{
		WithGuard(wordGuard(100000)),
		WithRetrier(fastRetrier()),
	}
	e, err := NewExplorer(source, provider, append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNewExplorerRequiresSourceAndProvider(t *testing.T) {
	provider := &stubProvider{reply: searchResponse}

	_, err := NewExplorer(nil, provider)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session source is required")

	_, err = NewExplorer(&fakeSource{browser: searchBrowser()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider is required")
}

func TestExploreAnalyzesLivePage(t *testing.T) {
	browser := searchBrowser()
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example/search", analysis.URL)
	assert.Equal(t, "Acme Widgets", analysis.Title)
	assert.Equal(t, "search", analysis.PageType)
	assert.Equal(t, "Product search page for the Acme widget catalog.", analysis.Summary)
	assert.Equal(t, []string{"Results render below the search form"}, analysis.Insights)
	assert.Equal(t, 0.85, analysis.Confidence)
	assert.False(t, analysis.AnalyzedAt.IsZero())
	assert.False(t, analysis.FromCache)

	require.Len(t, analysis.Elements, 2)
	assert.Equal(t, "#search-btn", analysis.Elements[0].Selector)
	assert.Equal(t, "button", analysis.Elements[0].Tag)
	assert.Equal(t, "Submits the search", analysis.Elements[0].Purpose)
	assert.True(t, analysis.Elements[0].Visible)
	assert.Equal(t, `input[name="q"]`, analysis.Elements[1].Selector)

	assert.Equal(t, 1, source.uses)
	assert.Equal(t, []string{"https://shop.example/search"}, browser.navigated)
}

func TestExploreSendsPromptWithSettings(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)

	require.Len(t, provider.messages, 1)
	assert.Equal(t, types.RoleUser, provider.messages[0].Role)
	assert.Contains(t, provider.messages[0].Content, "https://shop.example/search")
	assert.Contains(t, provider.messages[0].Content, "Search products")

	require.NotNil(t, provider.options.Temperature)
	assert.Equal(t, 0.0, *provider.options.Temperature)
	require.NotNil(t, provider.options.MaxTokens)
	assert.Equal(t, 2000, *provider.options.MaxTokens)
}

func TestExploreNormalizesTargetURL(t *testing.T) {
	browser := searchBrowser()
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "  HTTPS://Shop.Example/Catalog?page=2#top  ", ExploreOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example/Catalog?page=2", analysis.URL)
	assert.Equal(t, []string{"https://shop.example/Catalog?page=2"}, browser.navigated)
}

func TestExploreRejectsRelativeURL(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	_, err := e.Explore(context.Background(), "catalog/page", ExploreOptions{})
	require.Error(t, err)

	var stageErr *task.AnalysisError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, types.StageExplore, stageErr.Stage)
	assert.Contains(t, err.Error(), "invalid page URL")
	assert.Equal(t, 0, source.uses)
}

func TestExplorePolicyRejectsURL(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	policy, err := security.NewPolicy(nil, []string{"https://blocked.example/*"})
	require.NoError(t, err)
	e := newTestExplorer(t, source, provider, WithPolicy(policy))

	_, err = e.Explore(context.Background(), "https://blocked.example/admin", ExploreOptions{})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "rejected by security policy")
	var violation *security.Violation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, security.ViolationURLPattern, violation.Type)
	assert.Equal(t, 0, source.uses)
	assert.Equal(t, 0, provider.calls)
}

func TestExplorePolicyRejectsRedirectedPage(t *testing.T) {
	browser := searchBrowser()
	browser.landingURL = "https://evil.example/phish"
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	policy, err := security.NewPolicy([]string{"https://shop.example/*"}, nil)
	require.NoError(t, err)
	e := newTestExplorer(t, source, provider, WithPolicy(policy))

	_, err = e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)

	var violation *security.Violation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, security.ViolationRedirect, violation.Type)
	assert.Contains(t, err.Error(), "redirected off-policy")
	assert.Equal(t, []string{"https://shop.example/search"}, browser.navigated)
	assert.Equal(t, 0, provider.calls)
}

func TestExploreServesCachedAnalysis(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	cache := &fakeCache{entries: map[string]*task.PageAnalysis{
		"https://shop.example/search": {
			URL:        "https://shop.example/search",
			Title:      "Acme Widgets",
			PageType:   "search",
			Confidence: 0.9,
			AnalyzedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		},
	}}
	e := newTestExplorer(t, source, provider, WithCache(cache))

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)

	assert.True(t, analysis.FromCache)
	assert.Equal(t, "search", analysis.PageType)
	assert.Equal(t, 1, cache.lookups)
	assert.Equal(t, DefaultCacheTTL, cache.lastMaxAge)
	assert.Equal(t, 0, source.uses)
	assert.Equal(t, 0, provider.calls)
}

func TestExploreHonorsCacheTTL(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	cache := &fakeCache{}
	e := newTestExplorer(t, source, provider, WithCache(cache), WithCacheTTL(time.Hour))

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cache.lastMaxAge)
}

func TestExploreRefreshBypassesCache(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	cache := &fakeCache{entries: map[string]*task.PageAnalysis{
		"https://shop.example/search": {
			URL:        "https://shop.example/search",
			PageType:   "stale",
			Confidence: 0.2,
		},
	}}
	e := newTestExplorer(t, source, provider, WithCache(cache))

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{Refresh: true})
	require.NoError(t, err)

	assert.False(t, analysis.FromCache)
	assert.Equal(t, "search", analysis.PageType)
	assert.Equal(t, 0, cache.lookups)
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, 1, source.uses)
	assert.Equal(t, "search", cache.entries["https://shop.example/search"].PageType)
}

func TestExploreCachesFreshAnalysis(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	cache := &fakeCache{}
	e := newTestExplorer(t, source, provider, WithCache(cache))

	first, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.saves)

	second, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, source.uses)
	assert.Equal(t, 1, provider.calls)
}

func TestExploreCacheFailuresDegrade(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	cache := &fakeCache{
		lookupErr: errors.New("database is locked"),
		cacheErr:  errors.New("database is locked"),
	}
	e := newTestExplorer(t, source, provider, WithCache(cache))

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)

	assert.Equal(t, "search", analysis.PageType)
	assert.Equal(t, 1, cache.lookups)
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, 1, source.uses)
}

func TestExploreNavigateFailure(t *testing.T) {
	browser := searchBrowser()
	browser.navigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	cache := &fakeCache{}
	e := newTestExplorer(t, source, provider, WithCache(cache))

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)

	var stageErr *task.AnalysisError
	require.ErrorAs(t, err, &stageErr)
	assert.Contains(t, err.Error(), "failed to navigate to https://shop.example/search")
	assert.Equal(t, 0, cache.saves)
	assert.Equal(t, 0, provider.calls)
}

func TestExploreSnapshotFailure(t *testing.T) {
	browser := searchBrowser()
	browser.htmlErr = errors.New("page crashed")
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to capture page HTML")
}

func TestExploreSessionUnavailable(t *testing.T) {
	source := &fakeSource{browser: searchBrowser(), err: errors.New("pool is closed")}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)

	var stageErr *task.AnalysisError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, types.StageExplore, stageErr.Stage)
	assert.Contains(t, err.Error(), "browser session unavailable")
}

func TestExploreDiscoveryFailureDegrades(t *testing.T) {
	browser := searchBrowser()
	browser.discoverErr = errors.New("evaluate timed out")
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)

	require.Len(t, analysis.Elements, 2)
	assert.Equal(t, `input[name="q"]`, analysis.Elements[0].Selector)
	button := analysis.Element("#search-btn")
	require.NotNil(t, button)
	assert.Equal(t, "Submits the search", button.Purpose)
	assert.False(t, button.Visible)
}

func TestExploreRejectsNonJSONResponse(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: "The page seems to be a search form."}
	e := newTestExplorer(t, source, provider)

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)

	var stageErr *task.AnalysisError
	require.ErrorAs(t, err, &stageErr)
	assert.Contains(t, err.Error(), "could not parse page analysis response")

	var respErr *task.InvalidResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Contains(t, respErr.Message, "did not contain a JSON object")
	assert.ErrorIs(t, err, parser.ErrNoJSONObject)
}

func TestExploreRejectsWrongShape(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: `{"page_type": "search", "elements": "none", "confidence": 0.5}`}
	e := newTestExplorer(t, source, provider)

	_, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)

	var respErr *task.InvalidResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Contains(t, respErr.Message, "wrong shape")
}

func TestExploreClampsConfidence(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: `{"page_type": "search", "summary": "s", "confidence": 1.4}`}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, analysis.Confidence)
}

func TestExploreSkipsEmptySelectors(t *testing.T) {
	browser := searchBrowser()
	browser.elements = nil
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: `{
		"page_type": "listing",
		"summary": "Category listing.",
		"elements": [
			{"type": "link", "selector": "  ", "text": "spacer", "purpose": "ignored"},
			{"type": "link", "selector": ".product-card a", "text": "Blue widget", "purpose": "Product link"}
		],
		"confidence": 0.7
	}`}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "https://shop.example/widgets", ExploreOptions{})
	require.NoError(t, err)

	require.Len(t, analysis.Elements, 1)
	assert.Equal(t, ".product-card a", analysis.Elements[0].Selector)
}

func TestExploreStripsThinkingBlock(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: "<thinking>It looks like a search page.</thinking>\n" + searchResponse}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)
	assert.Equal(t, "search", analysis.PageType)
}

func TestExploreRetriesTransientFailures(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{
		reply: searchResponse,
		failures: []error{
			&llm.CommunicationError{Message: "upstream unavailable", StatusCode: 503},
		},
	}
	e := newTestExplorer(t, source, provider)

	analysis, err := e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.NoError(t, err)
	assert.Equal(t, "search", analysis.PageType)
	assert.Equal(t, 2, provider.calls)
}

func TestExploreRecleansOversizedPage(t *testing.T) {
	filler := strings.Repeat("<p>widget row</p>\n", 40)
	browser := searchBrowser()
	browser.html = "<html><head><title>Big Catalog</title></head><body>" + filler + "<p>ZZZMARKER</p></body></html>"
	source := &fakeSource{browser: browser}
	provider := &stubProvider{reply: searchResponse}
	guard := tokenizer.NewGuardWithCounter(func(text string) int {
		if strings.Contains(text, "ZZZMARKER") {
			return 1000
		}
		return 10
	}, 500)
	e, err := NewExplorer(source, provider, WithGuard(guard), WithRetrier(fastRetrier()))
	require.NoError(t, err)

	analysis, err := e.Explore(context.Background(), "https://shop.example/catalog", ExploreOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Big Catalog", analysis.Title)
	require.Len(t, provider.messages, 1)
	assert.NotContains(t, provider.messages[0].Content, "ZZZMARKER")
	assert.Equal(t, 1, provider.calls)
}

func TestExploreRejectsOversizedPage(t *testing.T) {
	source := &fakeSource{browser: searchBrowser()}
	provider := &stubProvider{reply: searchResponse}
	guard := tokenizer.NewGuardWithCounter(func(text string) int { return 1000 }, 500)
	e, err := NewExplorer(source, provider, WithGuard(guard), WithRetrier(fastRetrier()))
	require.NoError(t, err)

	_, err = e.Explore(context.Background(), "https://shop.example/search", ExploreOptions{})
	require.Error(t, err)

	assert.Contains(t, err.Error(), "page does not fit the model context window")
	var ctxErr *llm.ContextLengthError
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, 0, provider.calls)
}

func TestMergeElements(t *testing.T) {
	dom := []task.PageElement{
		{Selector: "#login", Tag: "button", Type: "button", Text: "Log in", Visible: true},
		{Selector: "#nav", Tag: "nav", Visible: true},
	}
	reported := []task.PageElement{
		{Selector: "#login", Type: "link", Purpose: "Opens the login form"},
		{Selector: ".results a", Type: "link", Purpose: "Product detail links"},
	}

	merged := mergeElements(dom, reported)
	require.Len(t, merged, 3)

	assert.Equal(t, "#login", merged[0].Selector)
	assert.Equal(t, "button", merged[0].Type)
	assert.Equal(t, "Opens the login form", merged[0].Purpose)
	assert.True(t, merged[0].Visible)

	assert.Equal(t, "#nav", merged[1].Selector)
	assert.Equal(t, ".results a", merged[2].Selector)
	assert.Equal(t, "Product detail links", merged[2].Purpose)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare host gets a path", in: "https://shop.example", want: "https://shop.example/"},
		{name: "scheme and host lowered", in: "HTTPS://Shop.Example/Catalog?q=1#frag", want: "https://shop.example/Catalog?q=1"},
		{name: "surrounding space trimmed", in: "  https://shop.example/a  ", want: "https://shop.example/a"},
		{name: "empty", in: "   ", wantErr: true},
		{name: "no scheme", in: "shop.example/path", wantErr: true},
		{name: "no host", in: "mailto:team@shop.example", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
