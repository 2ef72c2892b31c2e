package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scrapinator/pkg/display"
	"scrapinator/pkg/pipeline"
	"scrapinator/pkg/planner"
)

var planFlags struct {
	url     string
	refresh bool
	jsonOut bool
	copy    bool
}

var planCmd = &cobra.Command{
	Use:   "plan <description>",
	Short: "Generate an execution plan without executing it",
	Long: `Plan analyzes the task, explores the target page, and generates the
execution plan the run command would execute. Nothing is clicked,
filled, or downloaded.`,
	Example: `  scrapinator plan "log search results to a file" --url https://example.com/search
  scrapinator plan "extract all article titles" --url https://news.ycombinator.com --copy`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.url, "url", "", "Target page URL (omit to plan without page context)")
	f.BoolVar(&planFlags.refresh, "refresh", false, "Bypass the page analysis cache")
	f.BoolVar(&planFlags.jsonOut, "json", false, "Print the plan as JSON")
	f.BoolVar(&planFlags.copy, "copy", false, "Copy the plan JSON to the clipboard")
}

func runPlan(cmd *cobra.Command, args []string) error {
	app, err := buildApp(appOptions{browser: true, events: true})
	if err != nil {
		return err
	}
	defer app.Close()

	outcome, err := app.pipe.Run(cmd.Context(), strings.Join(args, " "), planFlags.url, pipeline.RunOptions{
		PlanOnly: true,
		Refresh:  planFlags.refresh,
	})
	app.drainEvents()

	lowConfidence := errors.Is(err, planner.ErrLowConfidence)
	if err != nil && !lowConfidence {
		return err
	}
	plan := outcome.Plan

	if planFlags.jsonOut {
		if err := display.JSON(plan); err != nil {
			return err
		}
	} else {
		fmt.Println()
		fmt.Println(display.Plan(plan))
	}

	if lowConfidence {
		display.ErrorMsg(fmt.Sprintf(
			"plan confidence %.2f is below the threshold; run would require --force", plan.Confidence))
	}
	if planFlags.copy {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
		display.CopyToClipboard(string(data), "Plan")
	}
	return nil
}
