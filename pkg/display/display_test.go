package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"scrapinator/pkg/task"
	"scrapinator/pkg/types"
)

func TestStageLabel(t *testing.T) {
	tests := []struct {
		stage types.Stage
		want  string
	}{
		{types.StageAnalyze, "Analyzing task"},
		{types.StageExplore, "Exploring page"},
		{types.StagePlan, "Generating plan"},
		{types.StageExecute, "Executing plan"},
		{types.Stage("custom"), "custom"},
	}
	for _, tt := range tests {
		if got := StageLabel(tt.stage); got != tt.want {
			t.Errorf("StageLabel(%q) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestEventStageLines(t *testing.T) {
	started := Event(types.NewStageStartedEvent(types.StagePlan))
	if !strings.Contains(started, "Generating plan") {
		t.Errorf("stage started line = %q, want plan stage label", started)
	}

	completed := Event(types.NewStageCompletedEvent(types.StagePlan, "3 steps, confidence 0.92"))
	if !strings.Contains(completed, "3 steps, confidence 0.92") {
		t.Errorf("stage completed line = %q, want stage summary", completed)
	}
}

func TestEventStepLines(t *testing.T) {
	started := Event(types.NewStepStartedEvent(1, 3, "open the catalog"))
	if !strings.Contains(started, "[1/3]") || !strings.Contains(started, "open the catalog") {
		t.Errorf("step started line = %q, want index and description", started)
	}

	if got := Event(types.NewStepCompletedEvent(1, 3, "open the catalog")); got != "" {
		t.Errorf("step completed line = %q, want hidden", got)
	}

	failed := Event(types.NewStepFailedEvent(2, 3, errors.New("no element found")))
	if !strings.Contains(failed, "[2/3]") || !strings.Contains(failed, "no element found") {
		t.Errorf("step failed line = %q, want index and error", failed)
	}

	skipped := Event(types.NewStepSkippedEvent(3, 3, "popup not present"))
	if !strings.Contains(skipped, "skipped") || !strings.Contains(skipped, "popup not present") {
		t.Errorf("step skipped line = %q, want skip reason", skipped)
	}
}

func TestEventRetryLine(t *testing.T) {
	line := Event(types.NewRetryEvent(types.StagePlan, 2, 150*time.Millisecond, errors.New("rate limited")))
	if !strings.Contains(line, "attempt 2") || !strings.Contains(line, "150ms") {
		t.Errorf("retry line = %q, want attempt and delay", line)
	}
}

func TestEventTokenUsageLine(t *testing.T) {
	usage := &types.TokenUsage{PromptTokens: 100, CompletionTokens: 25, TotalTokens: 125}
	line := Event(types.NewTokenUsageEvent(types.StageAnalyze, usage))
	if !strings.Contains(line, "125") {
		t.Errorf("token usage line = %q, want total token count", line)
	}

	if got := Event(&types.Event{Type: types.EventTypeTokenUsage}); got != "" {
		t.Errorf("token usage line without usage = %q, want hidden", got)
	}
}

func TestEventTerminalLines(t *testing.T) {
	completed := Event(types.NewRunCompletedEvent("task task-1 completed: 2 of 2 steps in 3s"))
	if !strings.Contains(completed, "task task-1 completed") {
		t.Errorf("run completed line = %q", completed)
	}

	failed := Event(types.NewRunFailedEvent(errors.New("browser pool is closed")))
	if !strings.Contains(failed, "browser pool is closed") {
		t.Errorf("run failed line = %q", failed)
	}
}

func TestEventUnknownTypeIsHidden(t *testing.T) {
	if got := Event(&types.Event{Type: types.EventType("mystery")}); got != "" {
		t.Errorf("unknown event rendered %q, want hidden", got)
	}
}

func TestPlanListsStepsWithDetails(t *testing.T) {
	plan := &task.ExecutionPlan{
		TaskID: "task-1",
		URL:    "https://shop.example/catalog",
		Steps: []task.Step{
			{Index: 1, Action: task.ActionNavigate, Value: "https://shop.example/catalog", Description: "open the catalog"},
			{
				Index:       2,
				Action:      task.ActionExtract,
				Selector:    ".price",
				Description: "collect the prices",
				Fallbacks:   []string{".amount", "[data-price]"},
				Optional:    true,
			},
		},
		Confidence: 0.85,
		Rationale:  "prices are rendered server side",
		CreatedAt:  time.Now(),
	}

	out := Plan(plan)
	for _, want := range []string{
		"task-1",
		"confidence 0.85",
		"open the catalog",
		"selector: .price",
		"value: https://shop.example/catalog",
		"fallbacks: .amount, [data-price]",
		"optional",
		"prices are rendered server side",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("plan rendering missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownRendersHeading(t *testing.T) {
	out := Markdown("# Catalog Run\n\nExtracted 3 prices.")
	if !strings.Contains(out, "Catalog Run") {
		t.Errorf("markdown rendering lost the heading:\n%s", out)
	}
	if !strings.Contains(out, "Extracted 3 prices.") {
		t.Errorf("markdown rendering lost the body:\n%s", out)
	}
}

func TestFprintJSONWritesHighlightedOutput(t *testing.T) {
	var buf bytes.Buffer
	payload := struct {
		Status string `json:"status"`
		Steps  int    `json:"steps"`
	}{Status: "completed", Steps: 2}

	if err := FprintJSON(&buf, payload); err != nil {
		t.Fatalf("FprintJSON() error = %v", err)
	}
	out := buf.String()
	if out == "" {
		t.Fatal("FprintJSON() wrote nothing")
	}
	if !strings.Contains(out, "status") || !strings.Contains(out, "completed") {
		t.Errorf("json output missing fields:\n%s", out)
	}
}

func TestFprintJSONRejectsUnmarshalableValue(t *testing.T) {
	var buf bytes.Buffer
	if err := FprintJSON(&buf, make(chan int)); err == nil {
		t.Fatal("FprintJSON() accepted a channel, want error")
	}
}
