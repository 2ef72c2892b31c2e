package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"scrapinator/pkg/task"
)

var planHeaderStyle = lipgloss.NewStyle().
	Bold(true)

var planActionStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.AdaptiveColor{
		Light: "21",
		Dark:  "33",
	})

var planDetailStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("245"))

// Plan renders an execution plan as an indented step listing with the
// selector and value details under each step.
func Plan(plan *task.ExecutionPlan) string {
	var b strings.Builder

	header := fmt.Sprintf("Plan for task %s (%d steps, confidence %.2f)",
		plan.TaskID, len(plan.Steps), plan.Confidence)
	b.WriteString(planHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, step := range plan.Steps {
		action := planActionStyle.Render(fmt.Sprintf("%-8s", step.Action))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%3d. %s %s", step.Index, action, step.Description))
		for _, detail := range stepDetails(step) {
			b.WriteString("\n")
			b.WriteString(planDetailStyle.Render(strings.Repeat(" ", 14) + detail))
		}
	}

	if plan.Rationale != "" {
		b.WriteString("\n\n")
		b.WriteString(planDetailStyle.Render(plan.Rationale))
	}
	return b.String()
}

func stepDetails(step task.Step) []string {
	var details []string
	if step.Selector != "" {
		details = append(details, "selector: "+step.Selector)
	}
	if step.Value != "" {
		details = append(details, "value: "+step.Value)
	}
	if len(step.Fallbacks) > 0 {
		details = append(details, "fallbacks: "+strings.Join(step.Fallbacks, ", "))
	}
	if step.Timeout > 0 {
		details = append(details, "timeout: "+step.Timeout.String())
	}
	if step.Optional {
		details = append(details, "optional")
	}
	return details
}
