package prompts

import (
	"fmt"
	"strings"

	"scrapinator/pkg/task"
)

// TaskAnalysis builds the full task analysis prompt.
func TaskAnalysis(description, url string) string {
	return fmt.Sprintf(TaskAnalysisTemplate, url, description)
}

// TaskAnalysisCompact builds the short task analysis prompt for use
// under token pressure.
func TaskAnalysisCompact(description, url string) string {
	return fmt.Sprintf(TaskAnalysisCompactTemplate, url, description)
}

// PageAnalysis builds the page analysis prompt around a cleaned HTML
// snapshot.
func PageAnalysis(url, html string) string {
	return fmt.Sprintf(PageAnalysisTemplate, url, html)
}

// PlanGeneration builds the plan generation prompt from an analyzed
// task and the page analysis it will run against.
func PlanGeneration(t *task.Task, analysis *task.PageAnalysis) string {
	url := t.URL
	if url == "" && analysis != nil {
		url = analysis.URL
	}

	pageType := "unknown"
	pageSummary := "(no page analysis available)"
	var elements []task.PageElement
	if analysis != nil {
		if analysis.PageType != "" {
			pageType = analysis.PageType
		}
		if analysis.Summary != "" {
			pageSummary = analysis.Summary
		}
		elements = analysis.Elements
	}

	return fmt.Sprintf(PlanGenerationTemplate,
		t.Description,
		url,
		bulletList(t.Objectives),
		bulletList(t.SuccessCriteria),
		bulletList(t.Constraints),
		bulletList(t.DataToExtract),
		pageType,
		pageSummary,
		formatElements(elements),
		actionList(),
	)
}

// bulletList renders items one per line for prompt readability.
func bulletList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var builder strings.Builder
	for i, item := range items {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("- ")
		builder.WriteString(item)
	}
	return builder.String()
}

// formatElements renders the discovered element inventory, one element
// per line with its selector first so the model reuses real selectors.
func formatElements(elements []task.PageElement) string {
	if len(elements) == 0 {
		return "(no interactive elements discovered)"
	}
	var builder strings.Builder
	for i, element := range elements {
		if i > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "- %s", element.Selector)
		if element.Type != "" {
			fmt.Fprintf(&builder, " [%s]", element.Type)
		}
		if element.Text != "" {
			fmt.Fprintf(&builder, " %q", element.Text)
		}
		if element.Purpose != "" {
			fmt.Fprintf(&builder, " (%s)", element.Purpose)
		}
	}
	return builder.String()
}

// actionList renders the allowed action kinds for the plan prompt.
func actionList() string {
	actions := task.KnownActions()
	names := make([]string, len(actions))
	for i, action := range actions {
		names[i] = string(action)
	}
	return strings.Join(names, ", ")
}
