package main

import (
	"fmt"
	"sync"
	"time"

	"scrapinator/pkg/analyzer"
	"scrapinator/pkg/browser"
	"scrapinator/pkg/config"
	"scrapinator/pkg/display"
	"scrapinator/pkg/executor"
	"scrapinator/pkg/explorer"
	"scrapinator/pkg/llm"
	"scrapinator/pkg/pipeline"
	"scrapinator/pkg/planner"
	"scrapinator/pkg/security"
	"scrapinator/pkg/store"
	"scrapinator/pkg/types"
)

// app holds the wired pipeline components a command needs. Commands
// build only what they use: analyze never launches a browser, runs
// never builds a provider.
type app struct {
	tracker  *llm.UsageTracker
	store    *store.Store
	manager  *browser.Manager
	pool     *browser.Pool
	analyzer *analyzer.Analyzer
	explorer *explorer.Explorer
	planner  *planner.Planner
	pipe     *pipeline.Pipeline

	events  chan *types.Event
	printWG sync.WaitGroup
}

// appOptions select which components a command needs.
type appOptions struct {
	// browser launches Playwright and a session pool. Required for
	// explore, plan, run, and serve.
	browser bool

	// events attaches an event channel to the pipeline and starts a
	// printer goroutine rendering progress lines.
	events bool
}

// buildApp wires the pipeline from configuration and the root flags.
func buildApp(opts appOptions) (*app, error) {
	provider, err := config.BuildProvider(rootFlags.provider, rootFlags.model, rootFlags.baseURL, rootFlags.apiKey)
	if err != nil {
		return nil, err
	}

	a := &app{tracker: llm.NewUsageTracker(provider)}
	if err := a.wire(opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(opts appOptions) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	a.store = st

	allowed, denied := config.GetExecutor().GetURLPatterns()
	policy, err := security.NewPolicy(allowed, denied)
	if err != nil {
		return fmt.Errorf("invalid URL patterns in executor config: %w", err)
	}

	a.analyzer, err = analyzer.NewAnalyzer(a.stageProvider(config.GetLLM().GetAnalysisModel()))
	if err != nil {
		return err
	}

	a.planner, err = planner.NewPlanner(
		a.stageProvider(config.GetLLM().GetPlanningModel()),
		planner.WithConfidenceThreshold(config.GetExecutor().GetConfidenceThreshold()),
	)
	if err != nil {
		return err
	}

	if !opts.browser {
		return nil
	}

	if err := a.startBrowser(); err != nil {
		return err
	}

	exploreOpts := []explorer.Option{explorer.WithPolicy(policy)}
	cache := config.GetCache()
	if cache.GetEnabled() {
		exploreOpts = append(exploreOpts,
			explorer.WithCache(a.store),
			explorer.WithCacheTTL(cache.GetTTL()),
		)
	}
	a.explorer, err = explorer.NewExplorer(
		explorer.PoolSource{Pool: a.pool},
		a.stageProvider(config.GetLLM().GetAnalysisModel()),
		exploreOpts...,
	)
	if err != nil {
		return err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithStore(a.store),
		pipeline.WithUsage(a.tracker),
		pipeline.WithConstraints(executor.ConstraintConfig{
			Policy:   policy,
			MaxSteps: executor.DefaultMaxSteps,
			Timeout:  executor.DefaultRunTimeout,
		}),
		pipeline.WithScreenshots(config.GetExecutor().GetScreenshotOnFailure()),
	}
	if root := config.GetExecutor().GetArtifactRoot(); root != "" {
		pipeOpts = append(pipeOpts, pipeline.WithArtifactRoot(root))
	}
	if opts.events {
		a.events = make(chan *types.Event, 64)
		pipeOpts = append(pipeOpts, pipeline.WithEvents(a.events))
		a.printWG.Add(1)
		go a.printEvents()
	}

	a.pipe, err = pipeline.NewPipeline(
		a.analyzer, a.explorer, a.planner,
		pipeline.PoolSource{Pool: a.pool},
		pipeOpts...,
	)
	return err
}

// stageProvider returns the shared tracked provider, redirected at a
// stage-specific model when one is configured. Clones share the usage
// counters.
func (a *app) stageProvider(model string) llm.Provider {
	if model == "" {
		return a.tracker
	}
	return a.tracker.CloneWithModel(model)
}

// managerIdleLimit returns the manager's session reaper threshold for
// a given pool idle TTL. The pool owns the idle lifecycle, so the
// manager only reaps sessions well past the point where the pool
// should have evicted them.
func managerIdleLimit(poolTTL time.Duration) time.Duration {
	return 2 * poolTTL
}

// startBrowser launches Playwright and the bounded session pool using
// the browser config section.
func (a *app) startBrowser() error {
	cfg := config.GetBrowser()
	timeouts := browser.DefaultTimeouts()
	timeouts.Navigation, timeouts.Action = cfg.GetTimeouts()

	a.manager = browser.NewManager(browser.Options{
		Headless:  cfg.GetHeadless(),
		Timeouts:  timeouts,
		IdleLimit: managerIdleLimit(cfg.GetIdleTTL()),
	})
	if err := a.manager.Initialize(); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	minSize, maxSize := cfg.GetPoolSizes()
	pool, err := browser.NewPool(browser.PoolConfig{
		MinSize: minSize,
		MaxSize: maxSize,
		IdleTTL: cfg.GetIdleTTL(),
	}, a.manager.NewSession)
	if err != nil {
		return err
	}
	a.pool = pool
	return nil
}

// printEvents renders pipeline events until the channel is closed.
func (a *app) printEvents() {
	defer a.printWG.Done()
	for ev := range a.events {
		if line := display.Event(ev); line != "" {
			fmt.Println(line)
		}
	}
}

// drainEvents closes the event channel and waits for the printer to
// finish rendering queued events. Call after the last pipeline run.
func (a *app) drainEvents() {
	if a.events == nil {
		return
	}
	close(a.events)
	a.printWG.Wait()
	a.events = nil
}

// Close tears down the browser and the store. Safe on partially wired
// apps.
func (a *app) Close() {
	a.drainEvents()
	if a.pool != nil {
		a.pool.Close()
	}
	if a.manager != nil {
		a.manager.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// openStore opens the run/cache database at the configured path.
func openStore() (*store.Store, error) {
	path := config.GetCache().GetDBPath()
	if path == "" {
		defaultPath, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return store.Open(path)
}

// usageSummary returns a one-line token usage report, or the empty
// string when nothing was consumed.
func (a *app) usageSummary() string {
	total := a.tracker.Total()
	if total.TotalTokens == 0 {
		return ""
	}
	return fmt.Sprintf("tokens used: %d prompt + %d completion = %d (%d calls)",
		total.PromptTokens, total.CompletionTokens, total.TotalTokens, a.tracker.Calls())
}
