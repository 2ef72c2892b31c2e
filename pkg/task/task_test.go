package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTask() *Task {
	return &Task{
		ID:              "7b3e4f6a-1d2c-4e5f-9a8b-0c1d2e3f4a5b",
		Description:     "Find the pricing page and extract plan names",
		URL:             "https://example.com",
		Objectives:      []string{"locate the pricing page"},
		SuccessCriteria: []string{"plan names extracted"},
		Constraints:     []string{},
		CreatedAt:       time.Now(),
	}
}

func TestTaskValidate(t *testing.T) {
	require.NoError(t, validTask().Validate())
}

func TestTaskValidateFailures(t *testing.T) {
	tests := []struct {
		mutate func(*Task)
		name   string
		field  string
	}{
		{
			name:   "empty description",
			mutate: func(task *Task) { task.Description = "" },
			field:  "description",
		},
		{
			name:   "whitespace description",
			mutate: func(task *Task) { task.Description = "   \t" },
			field:  "description",
		},
		{
			name:   "no objectives",
			mutate: func(task *Task) { task.Objectives = nil },
			field:  "objectives",
		},
		{
			name:   "empty objective entry",
			mutate: func(task *Task) { task.Objectives = []string{"real", "  "} },
			field:  "objectives",
		},
		{
			name:   "no success criteria",
			mutate: func(task *Task) { task.SuccessCriteria = []string{} },
			field:  "success_criteria",
		},
		{
			name:   "empty criterion entry",
			mutate: func(task *Task) { task.SuccessCriteria = []string{""} },
			field:  "success_criteria",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(task)

			err := task.Validate()
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestTaskHasDataExtraction(t *testing.T) {
	task := validTask()
	assert.False(t, task.HasDataExtraction())

	task.DataToExtract = []string{"plan names", "prices"}
	assert.True(t, task.HasDataExtraction())
}

func TestTaskHasActions(t *testing.T) {
	task := validTask()
	assert.False(t, task.HasActions())

	task.ActionsToPerform = []string{"click the pricing link"}
	assert.True(t, task.HasActions())
}

func TestTaskEstimateComplex(t *testing.T) {
	tests := []struct {
		name       string
		objectives int
		actions    int
		complex    bool
	}{
		{name: "simple", objectives: 1, actions: 0, complex: false},
		{name: "two objectives", objectives: 2, actions: 3, complex: false},
		{name: "three objectives", objectives: 3, actions: 0, complex: true},
		{name: "four actions", objectives: 1, actions: 4, complex: true},
		{name: "both over", objectives: 5, actions: 6, complex: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{}
			for i := 0; i < tt.objectives; i++ {
				task.Objectives = append(task.Objectives, "objective")
			}
			for i := 0; i < tt.actions; i++ {
				task.ActionsToPerform = append(task.ActionsToPerform, "action")
			}
			assert.Equal(t, tt.complex, task.EstimateComplex())
		})
	}
}

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{name: "in range", input: 0.85, expected: 0.85},
		{name: "zero", input: 0, expected: 0},
		{name: "one", input: 1, expected: 1},
		{name: "negative", input: -0.3, expected: 0},
		{name: "above one", input: 1.7, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampConfidence(tt.input))
		})
	}
}

func TestPageAnalysisValidate(t *testing.T) {
	analysis := &PageAnalysis{
		URL:        "https://example.com/login",
		PageType:   "login",
		Confidence: 0.9,
	}
	require.NoError(t, analysis.Validate())

	analysis.URL = ""
	require.Error(t, analysis.Validate())

	analysis.URL = "https://example.com/login"
	analysis.Confidence = 1.2
	require.Error(t, analysis.Validate())
}

func TestPageAnalysisElement(t *testing.T) {
	analysis := &PageAnalysis{
		URL: "https://example.com",
		Elements: []PageElement{
			{Selector: "#login", Type: "button"},
			{Selector: "input[name=q]", Type: "input"},
		},
	}

	element := analysis.Element("input[name=q]")
	require.NotNil(t, element)
	assert.Equal(t, "input", element.Type)

	assert.Nil(t, analysis.Element("#missing"))
}
