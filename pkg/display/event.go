// Package display renders pipeline progress, plans, and run results for
// the terminal.
package display

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"scrapinator/pkg/types"
)

var stageStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.AdaptiveColor{
		Light: "21",
		Dark:  "33",
	})

var stepStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("245"))

var warnStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("3"))

var failLineStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("9"))

var doneLineStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("2"))

// StageLabel returns the human label for a pipeline stage.
func StageLabel(stage types.Stage) string {
	switch stage {
	case types.StageAnalyze:
		return "Analyzing task"
	case types.StageExplore:
		return "Exploring page"
	case types.StagePlan:
		return "Generating plan"
	case types.StageExecute:
		return "Executing plan"
	default:
		return string(stage)
	}
}

// Step prints a secondary progress line, dimmed relative to Info.
func Step(text string) {
	fmt.Println(stepStyle.Render(text))
}

// Event formats a pipeline event as a single display line. Events with
// no terminal representation, such as step completions already covered
// by their start line, return the empty string.
func Event(ev *types.Event) string {
	switch ev.Type {
	case types.EventTypeStageStarted:
		return stageStyle.Render(StageLabel(ev.Stage) + "...")
	case types.EventTypeStageCompleted:
		return stepStyle.Render("  " + ev.Message)
	case types.EventTypeStepStarted:
		return stepStyle.Render(fmt.Sprintf("  [%d/%d] %s", ev.StepIndex, ev.StepCount, ev.Message))
	case types.EventTypeStepFailed:
		return failLineStyle.Render(fmt.Sprintf("  [%d/%d] failed: %v", ev.StepIndex, ev.StepCount, ev.Error))
	case types.EventTypeStepSkipped:
		return warnStyle.Render(fmt.Sprintf("  [%d/%d] skipped: %s", ev.StepIndex, ev.StepCount, ev.Message))
	case types.EventTypeRetry:
		return warnStyle.Render(fmt.Sprintf("  retrying %s (attempt %d, next in %s): %v",
			ev.Stage, ev.Attempt, ev.Delay, ev.Error))
	case types.EventTypeTokenUsage:
		if ev.TokenUsage == nil {
			return ""
		}
		return stepStyle.Render(fmt.Sprintf("  tokens: %d prompt + %d completion = %d",
			ev.TokenUsage.PromptTokens, ev.TokenUsage.CompletionTokens, ev.TokenUsage.TotalTokens))
	case types.EventTypeCacheHit:
		return stepStyle.Render("  " + ev.Message)
	case types.EventTypeRunCompleted:
		return doneLineStyle.Render(ev.Message)
	case types.EventTypeRunFailed:
		return failLineStyle.Render(fmt.Sprintf("run failed: %v", ev.Error))
	default:
		return ""
	}
}
