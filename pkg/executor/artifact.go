package executor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrapinator/pkg/task"
)

// ArtifactWriter writes run artifacts under a per-run directory.
type ArtifactWriter struct {
	runDir string
}

// DefaultArtifactRoot returns the default location for run artifacts
// under the user's home directory.
func DefaultArtifactRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".scrapinator", "runs"), nil
}

// NewArtifactWriter creates the run's artifact directory under root and
// returns a writer for it.
func NewArtifactWriter(root, runID string) (*ArtifactWriter, error) {
	if runID == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	runDir := filepath.Join(root, runID)
	if err := os.MkdirAll(runDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &ArtifactWriter{runDir: runDir}, nil
}

// Dir returns the run's artifact directory.
func (w *ArtifactWriter) Dir() string {
	return w.runDir
}

// ScreenshotPath returns where the failure screenshot for a step goes.
func (w *ArtifactWriter) ScreenshotPath(stepIndex int) string {
	return filepath.Join(w.runDir, fmt.Sprintf("step-%d-failure.png", stepIndex))
}

// DownloadDir creates and returns the downloads directory for the run.
func (w *ArtifactWriter) DownloadDir() (string, error) {
	dir := filepath.Join(w.runDir, "downloads")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create downloads directory: %w", err)
	}
	return dir, nil
}

// WriteAll writes the plan, the full result, any extracted data, and the
// markdown summary.
func (w *ArtifactWriter) WriteAll(result *task.RunResult) error {
	if result.Plan != nil {
		if err := w.WritePlan(result.Plan); err != nil {
			return err
		}
	}
	if err := w.WriteResult(result); err != nil {
		return err
	}
	if err := w.WriteExtracted(result); err != nil {
		return err
	}
	return w.WriteSummary(result)
}

// WritePlan writes the executed plan as plan.json.
func (w *ArtifactWriter) WritePlan(plan *task.ExecutionPlan) error {
	return w.writeJSON("plan.json", plan)
}

// WriteResult writes the full run result as result.json.
func (w *ArtifactWriter) WriteResult(result *task.RunResult) error {
	return w.writeJSON("result.json", result)
}

type extractedEntry struct {
	Step     int    `json:"step"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text"`
}

// WriteExtracted writes the values captured by extract steps as
// extracted.json. Nothing is written when the run extracted nothing.
func (w *ArtifactWriter) WriteExtracted(result *task.RunResult) error {
	var entries []extractedEntry
	for _, step := range result.Steps {
		if step.Action != task.ActionExtract || step.Status != task.StepCompleted {
			continue
		}
		if step.Extracted == "" {
			continue
		}
		entries = append(entries, extractedEntry{
			Step:     step.Index,
			Selector: step.Selector,
			Text:     step.Extracted,
		})
	}
	if len(entries) == 0 {
		return nil
	}
	return w.writeJSON("extracted.json", entries)
}

// WriteSummary writes a human-readable markdown summary as summary.md.
func (w *ArtifactWriter) WriteSummary(result *task.RunResult) error {
	path := filepath.Join(w.runDir, "summary.md")

	var md strings.Builder

	// Header
	md.WriteString("# Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Run:** %s\n\n", result.RunID))
	md.WriteString(fmt.Sprintf("**Task:** %s\n\n", result.TaskID))
	md.WriteString(fmt.Sprintf("**URL:** %s\n\n", result.URL))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", result.StartedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Finished:** %s\n\n", result.FinishedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", result.Duration().Round(time.Millisecond)))

	// Result
	md.WriteString("## Result\n\n")
	if result.Status == task.RunCompleted {
		md.WriteString(fmt.Sprintf("✅ **Completed** (%d of %d steps)\n\n", result.Completed(), len(result.Steps)))
	} else {
		md.WriteString(fmt.Sprintf("❌ **Failed:** %s\n\n", result.Error))
	}

	// Steps
	if len(result.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		for _, step := range result.Steps {
			marker := "✅"
			switch step.Status {
			case task.StepFailed:
				marker = "❌"
			case task.StepSkipped:
				marker = "⚠️"
			}
			md.WriteString(fmt.Sprintf("%s **Step %d** (%s)", marker, step.Index, step.Action))
			if step.Selector != "" {
				md.WriteString(fmt.Sprintf(" `%s`", step.Selector))
			}
			if step.Attempts > 1 {
				md.WriteString(fmt.Sprintf(" (%d attempts)", step.Attempts))
			}
			md.WriteString("\n")
			if step.Error != "" {
				md.WriteString(fmt.Sprintf("   Error: %s\n", step.Error))
			}
			if step.Screenshot != "" {
				md.WriteString(fmt.Sprintf("   Screenshot: `%s`\n", filepath.Base(step.Screenshot)))
			}
		}
		md.WriteString("\n")
	}

	// Extracted data
	extracted := false
	for _, step := range result.Steps {
		if step.Action != task.ActionExtract || step.Status != task.StepCompleted || step.Extracted == "" {
			continue
		}
		if !extracted {
			md.WriteString("## Extracted Data\n\n")
			extracted = true
		}
		md.WriteString(fmt.Sprintf("**Step %d**", step.Index))
		if step.Selector != "" {
			md.WriteString(fmt.Sprintf(" (`%s`)", step.Selector))
		}
		md.WriteString(":\n\n```\n")
		md.WriteString(step.Extracted)
		md.WriteString("\n```\n\n")
	}

	// Downloads
	downloads := false
	for _, step := range result.Steps {
		if step.DownloadPath == "" {
			continue
		}
		if !downloads {
			md.WriteString("## Downloads\n\n")
			downloads = true
		}
		md.WriteString(fmt.Sprintf("- Step %d: `%s`", step.Index, filepath.Base(step.DownloadPath)))
		if step.PageCount > 0 {
			md.WriteString(fmt.Sprintf(" (%d pages)", step.PageCount))
		}
		md.WriteString("\n")
	}
	if downloads {
		md.WriteString("\n")
	}

	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

func (w *ArtifactWriter) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if writeErr := os.WriteFile(filepath.Join(w.runDir, name), data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", name, writeErr)
	}
	return nil
}
