package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scrapinator/pkg/display"
	"scrapinator/pkg/task"
)

var analyzeFlags struct {
	url     string
	jsonOut bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <description>",
	Short: "Analyze a task description into structured objectives",
	Example: `  scrapinator analyze "download the latest invoice" --url https://billing.example.com
  scrapinator analyze "find the cheapest flight to Lisbon" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.url, "url", "", "Target page URL")
	f.BoolVar(&analyzeFlags.jsonOut, "json", false, "Print the task as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := buildApp(appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	description := strings.Join(args, " ")

	var t *task.Task
	var analyzeErr error
	spinErr := display.Spin("Analyzing task...", func() {
		t, analyzeErr = app.analyzer.Analyze(cmd.Context(), description, analyzeFlags.url)
	})
	if spinErr != nil {
		return spinErr
	}
	if analyzeErr != nil {
		return analyzeErr
	}

	if analyzeFlags.jsonOut {
		return display.JSON(t)
	}
	printTask(t)
	if usage := app.usageSummary(); usage != "" {
		display.Step(usage)
	}
	return nil
}

func printTask(t *task.Task) {
	display.Info("Task " + t.ID)
	fmt.Println(t.Description)
	printList("Objectives", t.Objectives)
	printList("Success criteria", t.SuccessCriteria)
	printList("Constraints", t.Constraints)
	printList("Data to extract", t.DataToExtract)
	printList("Actions to perform", t.ActionsToPerform)
	if t.Complex {
		display.Step("complex task: consider breaking it into smaller runs")
	}
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(label + ":")
	for _, item := range items {
		fmt.Println("  - " + item)
	}
}
