package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrapinator/pkg/display"
	"scrapinator/pkg/explorer"
	"scrapinator/pkg/task"
)

var exploreFlags struct {
	refresh bool
	jsonOut bool
}

var exploreCmd = &cobra.Command{
	Use:   "explore <url>",
	Short: "Load a page in a browser and analyze its structure",
	Example: `  scrapinator explore https://news.ycombinator.com
  scrapinator explore https://example.com/login --refresh --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExplore,
}

func init() {
	f := exploreCmd.Flags()
	f.BoolVar(&exploreFlags.refresh, "refresh", false, "Bypass the page analysis cache")
	f.BoolVar(&exploreFlags.jsonOut, "json", false, "Print the analysis as JSON")
}

func runExplore(cmd *cobra.Command, args []string) error {
	app, err := buildApp(appOptions{browser: true})
	if err != nil {
		return err
	}
	defer app.Close()

	var analysis *task.PageAnalysis
	var exploreErr error
	spinErr := display.Spin("Exploring page...", func() {
		analysis, exploreErr = app.explorer.Explore(cmd.Context(), args[0], explorer.ExploreOptions{
			Refresh: exploreFlags.refresh,
		})
	})
	if spinErr != nil {
		return spinErr
	}
	if exploreErr != nil {
		return exploreErr
	}

	if exploreFlags.jsonOut {
		return display.JSON(analysis)
	}
	printAnalysis(analysis)
	if usage := app.usageSummary(); usage != "" {
		display.Step(usage)
	}
	return nil
}

func printAnalysis(analysis *task.PageAnalysis) {
	title := analysis.Title
	if title == "" {
		title = analysis.URL
	}
	display.Info(fmt.Sprintf("%s (%s page, confidence %.2f)", title, analysis.PageType, analysis.Confidence))
	if analysis.FromCache {
		display.Step("served from cache; use --refresh to re-analyze the live page")
	}
	if analysis.Summary != "" {
		fmt.Println(analysis.Summary)
	}
	printList("Insights", analysis.Insights)

	if len(analysis.Elements) > 0 {
		fmt.Println()
		fmt.Printf("Elements (%d):\n", len(analysis.Elements))
		for _, el := range analysis.Elements {
			line := fmt.Sprintf("  %-8s %s", el.Type, el.Selector)
			if el.Purpose != "" {
				line += "  " + el.Purpose
			} else if el.Text != "" {
				line += "  " + el.Text
			}
			fmt.Println(line)
		}
	}
}
