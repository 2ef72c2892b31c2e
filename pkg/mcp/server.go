// Package mcp exposes the pipeline stages as Model Context Protocol
// tools so agent hosts can analyze tasks, explore pages, and execute
// plans over a stdio transport.
package mcp

import (
	"context"
	"errors"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"scrapinator/pkg/explorer"
	"scrapinator/pkg/logging"
	"scrapinator/pkg/pipeline"
	"scrapinator/pkg/planner"
	"scrapinator/pkg/store"
	"scrapinator/pkg/task"
)

// RunLister lists stored run summaries. *store.Store implements it.
type RunLister interface {
	ListRuns(limit int) ([]*store.RunRecord, error)
}

// Config carries the components the server's tools call into.
type Config struct {
	// Analyzer serves the analyze_task tool.
	Analyzer pipeline.TaskAnalyzer

	// Explorer serves the explore_page tool.
	Explorer pipeline.PageExplorer

	// Pipeline serves the build_plan and execute_plan tools.
	Pipeline *pipeline.Pipeline

	// Runs serves the list_runs tool.
	Runs RunLister

	// Version is reported to MCP clients. Empty means "dev".
	Version string

	// Logger receives tool diagnostics. A default one is created when
	// nil.
	Logger *logging.Logger
}

// Server wraps the MCP SDK server with the pipeline tools registered.
type Server struct {
	MCPServer *sdkmcp.Server

	analyzer pipeline.TaskAnalyzer
	explorer pipeline.PageExplorer
	pipe     *pipeline.Pipeline
	runs     RunLister
	log      *logging.Logger
}

// NewServer creates a scrapinator MCP server with the pipeline tools
// registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("mcp server requires an analyzer")
	}
	if cfg.Explorer == nil {
		return nil, errors.New("mcp server requires an explorer")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("mcp server requires a pipeline")
	}
	if cfg.Runs == nil {
		return nil, errors.New("mcp server requires a run lister")
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	log := cfg.Logger
	if log == nil {
		logger, err := logging.NewLogger("mcp")
		if err != nil {
			logger.Warnf("Failed to initialize mcp log file, using stderr: %v", err)
		}
		log = logger
	}

	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "scrapinator", Version: version},
			nil,
		),
		analyzer: cfg.Analyzer,
		explorer: cfg.Explorer,
		pipe:     cfg.Pipeline,
		runs:     cfg.Runs,
		log:      log,
	}
	s.registerTools()
	return s, nil
}

// Run serves MCP over the given transport until the context is
// canceled or the client disconnects.
func (s *Server) Run(ctx context.Context, transport sdkmcp.Transport) error {
	return s.MCPServer.Run(ctx, transport)
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "analyze_task",
		Description: "Analyze a natural-language task description into structured objectives, success criteria, and data to extract.",
	}, s.handleAnalyzeTask)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "explore_page",
		Description: "Load a page in a browser and return its structure: page type, interactive elements, and extractable data.",
	}, s.handleExplorePage)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "build_plan",
		Description: "Analyze a task, explore its target page, and generate an execution plan without executing it.",
	}, s.handleBuildPlan)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "execute_plan",
		Description: "Run a task end to end: analyze, explore, plan, and execute the plan in a browser session.",
	}, s.handleExecutePlan)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List stored run summaries, newest first.",
	}, s.handleListRuns)
}

// --- Tool input/output types ---

type analyzeTaskInput struct {
	Description string `json:"description" jsonschema:"natural-language description of the task"`
	URL         string `json:"url,omitempty" jsonschema:"target page URL, if known"`
}

type analyzeTaskOutput struct {
	Task *task.Task `json:"task"`
}

type explorePageInput struct {
	URL     string `json:"url" jsonschema:"URL of the page to explore"`
	Refresh bool   `json:"refresh,omitempty" jsonschema:"bypass the page analysis cache"`
}

type explorePageOutput struct {
	Analysis  *task.PageAnalysis `json:"analysis"`
	FromCache bool               `json:"from_cache"`
}

type buildPlanInput struct {
	Description string `json:"description" jsonschema:"natural-language description of the task"`
	URL         string `json:"url,omitempty" jsonschema:"target page URL; omit to plan without page context"`
	Refresh     bool   `json:"refresh,omitempty" jsonschema:"bypass the page analysis cache"`
}

type buildPlanOutput struct {
	Plan          *task.ExecutionPlan `json:"plan"`
	LowConfidence bool                `json:"low_confidence,omitempty"`
}

type executePlanInput struct {
	Description string `json:"description" jsonschema:"natural-language description of the task"`
	URL         string `json:"url,omitempty" jsonschema:"target page URL"`
	DryRun      bool   `json:"dry_run,omitempty" jsonschema:"verify plan steps without clicking, filling, or downloading"`
	Force       bool   `json:"force,omitempty" jsonschema:"execute even when plan confidence is below the threshold"`
	Refresh     bool   `json:"refresh,omitempty" jsonschema:"bypass the page analysis cache"`
}

type executePlanOutput struct {
	Run       *task.RunResult `json:"run"`
	Extracted []string        `json:"extracted,omitempty"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum runs to return (default 20)"`
}

type runSummary struct {
	RunID       string    `json:"run_id"`
	TaskID      string    `json:"task_id"`
	URL         string    `json:"url,omitempty"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	Duration    string    `json:"duration"`
	ArtifactDir string    `json:"artifact_dir,omitempty"`
}

type listRunsOutput struct {
	Runs  []runSummary `json:"runs"`
	Total int          `json:"total"`
}

// --- Tool handlers ---

func (s *Server) handleAnalyzeTask(ctx context.Context, _ *sdkmcp.CallToolRequest, input analyzeTaskInput) (*sdkmcp.CallToolResult, analyzeTaskOutput, error) {
	if input.Description == "" {
		return nil, analyzeTaskOutput{}, errors.New("description is required")
	}

	t, err := s.analyzer.Analyze(ctx, input.Description, input.URL)
	if err != nil {
		return nil, analyzeTaskOutput{}, err
	}
	s.log.Infof("analyze_task produced task %s", t.ID)
	return nil, analyzeTaskOutput{Task: t}, nil
}

func (s *Server) handleExplorePage(ctx context.Context, _ *sdkmcp.CallToolRequest, input explorePageInput) (*sdkmcp.CallToolResult, explorePageOutput, error) {
	if input.URL == "" {
		return nil, explorePageOutput{}, errors.New("url is required")
	}

	analysis, err := s.explorer.Explore(ctx, input.URL, explorer.ExploreOptions{Refresh: input.Refresh})
	if err != nil {
		return nil, explorePageOutput{}, err
	}
	s.log.Infof("explore_page analyzed %s: %s page, %d elements", input.URL, analysis.PageType, len(analysis.Elements))
	return nil, explorePageOutput{Analysis: analysis, FromCache: analysis.FromCache}, nil
}

func (s *Server) handleBuildPlan(ctx context.Context, _ *sdkmcp.CallToolRequest, input buildPlanInput) (*sdkmcp.CallToolResult, buildPlanOutput, error) {
	if input.Description == "" {
		return nil, buildPlanOutput{}, errors.New("description is required")
	}

	outcome, err := s.pipe.Run(ctx, input.Description, input.URL, pipeline.RunOptions{
		PlanOnly: true,
		Refresh:  input.Refresh,
	})
	if err != nil {
		// A low-confidence plan is still a plan. Hand it back flagged
		// instead of failing the call.
		if errors.Is(err, planner.ErrLowConfidence) && outcome != nil && outcome.Plan != nil {
			return nil, buildPlanOutput{Plan: outcome.Plan, LowConfidence: true}, nil
		}
		return nil, buildPlanOutput{}, err
	}
	return nil, buildPlanOutput{Plan: outcome.Plan}, nil
}

func (s *Server) handleExecutePlan(ctx context.Context, _ *sdkmcp.CallToolRequest, input executePlanInput) (*sdkmcp.CallToolResult, executePlanOutput, error) {
	if input.Description == "" {
		return nil, executePlanOutput{}, errors.New("description is required")
	}

	outcome, err := s.pipe.Run(ctx, input.Description, input.URL, pipeline.RunOptions{
		DryRun:  input.DryRun,
		Force:   input.Force,
		Refresh: input.Refresh,
	})
	if err != nil {
		// Execution failures still carry the partial run result, with
		// the failed step recorded. Return it so clients can inspect
		// what happened.
		if outcome != nil && outcome.Run != nil {
			return nil, executePlanOutput{Run: outcome.Run, Extracted: outcome.Run.Extracted()}, nil
		}
		return nil, executePlanOutput{}, err
	}
	return nil, executePlanOutput{Run: outcome.Run, Extracted: outcome.Run.Extracted()}, nil
}

func (s *Server) handleListRuns(_ context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	records, err := s.runs.ListRuns(limit)
	if err != nil {
		return nil, listRunsOutput{}, err
	}

	summaries := make([]runSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, runSummary{
			RunID:       rec.ID,
			TaskID:      rec.TaskID,
			URL:         rec.URL,
			Status:      string(rec.Status),
			StartedAt:   rec.StartedAt,
			Duration:    rec.FinishedAt.Sub(rec.StartedAt).String(),
			ArtifactDir: rec.ArtifactDir,
		})
	}
	return nil, listRunsOutput{Runs: summaries, Total: len(summaries)}, nil
}
