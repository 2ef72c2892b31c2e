package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scrapinator/pkg/display"
)

var runsListFlags struct {
	limit   int
	jsonOut bool
}

var runsShowFlags struct {
	jsonOut bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run's summary and results",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsListCmd.Flags().IntVar(&runsListFlags.limit, "limit", 20, "Maximum runs to list")
	runsListCmd.Flags().BoolVar(&runsListFlags.jsonOut, "json", false, "Print runs as JSON")
	runsShowCmd.Flags().BoolVar(&runsShowFlags.jsonOut, "json", false, "Print the full result as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

func runRunsList(_ *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListRuns(runsListFlags.limit)
	if err != nil {
		return err
	}
	if runsListFlags.jsonOut {
		return display.JSON(records)
	}
	if len(records) == 0 {
		display.Info("No stored runs yet")
		return nil
	}

	for _, rec := range records {
		line := fmt.Sprintf("%s  %-9s  %s  %s",
			rec.ID, rec.Status, rec.StartedAt.Local().Format("2006-01-02 15:04:05"), rec.URL)
		fmt.Println(line)
	}
	return nil
}

func runRunsShow(_ *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := st.GetRun(args[0])
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("run %s not found", args[0])
	}
	if runsShowFlags.jsonOut {
		return display.JSON(result)
	}

	// Prefer the human summary the executor wrote alongside the run.
	if result.ArtifactDir != "" {
		if md, err := os.ReadFile(filepath.Join(result.ArtifactDir, "summary.md")); err == nil {
			fmt.Print(display.Markdown(string(md)))
			return nil
		}
	}
	return display.JSON(result)
}
