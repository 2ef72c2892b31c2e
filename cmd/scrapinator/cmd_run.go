package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scrapinator/pkg/config"
	"scrapinator/pkg/display"
	"scrapinator/pkg/pipeline"
	"scrapinator/pkg/planner"
	"scrapinator/pkg/task"
)

var runFlags struct {
	url        string
	configPath string
	dryRun     bool
	force      bool
	planOnly   bool
	refresh    bool
	parallel   int
}

var runCmd = &cobra.Command{
	Use:   "run [description]",
	Short: "Run a task end to end: analyze, explore, plan, and execute",
	Long: `Run takes a task from natural-language description to executed browser
automation. Progress is streamed as the pipeline moves through its
stages; artifacts (plan, results, extracted data, screenshots,
downloads) are written to the run directory.

A batch of tasks can be run from a YAML file with --config.`,
	Example: `  scrapinator run "download the latest invoice" --url https://billing.example.com
  scrapinator run "accept cookies and extract headlines" --url https://example.com --dry-run
  scrapinator run --config jobs.yaml --parallel 3`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.url, "url", "", "Target page URL")
	f.StringVar(&runFlags.configPath, "config", "", "YAML batch job file")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "Verify plan steps without clicking, filling, or downloading")
	f.BoolVar(&runFlags.force, "force", false, "Execute plans below the confidence threshold")
	f.BoolVar(&runFlags.planOnly, "plan-only", false, "Stop after plan generation")
	f.BoolVar(&runFlags.refresh, "refresh", false, "Bypass the page analysis cache")
	f.IntVar(&runFlags.parallel, "parallel", 0, "Concurrent tasks for batch runs (default from the job file)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFlags.configPath == "" && len(args) == 0 {
		return fmt.Errorf("a task description or --config file is required")
	}

	app, err := buildApp(appOptions{browser: true, events: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if runFlags.configPath != "" {
		return runBatch(cmd, app)
	}

	opts := pipeline.RunOptions{
		PlanOnly: runFlags.planOnly,
		DryRun:   runFlags.dryRun,
		Force:    runFlags.force,
		Refresh:  runFlags.refresh,
	}
	outcome, err := app.pipe.Run(cmd.Context(), strings.Join(args, " "), runFlags.url, opts)
	app.drainEvents()
	reportOutcome(outcome, err)
	if usage := app.usageSummary(); usage != "" {
		display.Step(usage)
	}
	return err
}

func runBatch(cmd *cobra.Command, app *app) error {
	jobs, err := config.LoadRunConfig(runFlags.configPath)
	if err != nil {
		return err
	}

	specs := make([]pipeline.TaskSpec, len(jobs.Tasks))
	for i, t := range jobs.Tasks {
		specs[i] = pipeline.TaskSpec{Description: t.Description, URL: t.URL}
	}

	parallelism := jobs.Parallelism
	if runFlags.parallel > 0 {
		parallelism = runFlags.parallel
	}
	opts := pipeline.RunOptions{
		PlanOnly: jobs.PlanOnly || runFlags.planOnly,
		DryRun:   jobs.DryRun || runFlags.dryRun,
		Force:    jobs.Force || runFlags.force,
		Refresh:  runFlags.refresh,
	}

	display.Info(fmt.Sprintf("Running %d tasks with parallelism %d", len(specs), parallelism))
	outcomes, batchErr := app.pipe.RunAll(cmd.Context(), specs, parallelism, opts)
	app.drainEvents()

	for i, outcome := range outcomes {
		fmt.Println()
		display.Step(fmt.Sprintf("--- task %d: %s", i+1, specs[i].Description))
		reportOutcome(outcome, nil)
	}
	if usage := app.usageSummary(); usage != "" {
		fmt.Println()
		display.Step(usage)
	}
	return batchErr
}

// reportOutcome prints what a run produced. Failed runs still show the
// partial result and where its artifacts landed.
func reportOutcome(outcome *pipeline.Outcome, err error) {
	if outcome == nil {
		return
	}

	if outcome.Run == nil {
		if outcome.Plan != nil {
			fmt.Println()
			fmt.Println(display.Plan(outcome.Plan))
			if errors.Is(err, planner.ErrLowConfidence) {
				display.ErrorMsg(fmt.Sprintf(
					"plan confidence %.2f is below the threshold; pass --force to execute anyway",
					outcome.Plan.Confidence))
			}
		}
		return
	}

	result := outcome.Run
	switch result.Status {
	case task.RunCompleted:
		display.Success(fmt.Sprintf("Run %s completed: %d of %d steps in %s",
			result.RunID, result.Completed(), len(result.Steps), result.Duration().Round(time.Millisecond)))
	default:
		display.ErrorMsg(fmt.Sprintf("Run %s failed: %s", result.RunID, result.Error))
	}

	if extracted := result.Extracted(); len(extracted) > 0 {
		printList("Extracted", extracted)
	}
	for _, step := range result.Steps {
		if step.DownloadPath != "" {
			display.Step("downloaded: " + step.DownloadPath)
		}
	}
	if result.ArtifactDir != "" {
		display.Step("artifacts: " + result.ArtifactDir)
	}
}
