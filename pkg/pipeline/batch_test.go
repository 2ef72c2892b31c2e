package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapinator/pkg/task"
)

func newBatchPipeline(t *testing.T, analyzer *fakeAnalyzer) *Pipeline {
	t.Helper()

	pipeline, err := NewPipeline(
		analyzer,
		&fakeExplorer{analysis: sampleAnalysis()},
		&fakePlanner{plan: samplePlan()},
		&fakeSource{browser: &fakeBrowser{extract: map[string]string{".price": "$5"}}},
		WithArtifactRoot(t.TempDir()),
	)
	require.NoError(t, err)
	return pipeline
}

func TestRunAllRunsEverySpec(t *testing.T) {
	analyzer := &fakeAnalyzer{task: sampleTask()}
	pipeline := newBatchPipeline(t, analyzer)

	specs := []TaskSpec{
		{Description: "collect prices", URL: "https://shop.example/catalog"},
		{Description: "collect reviews", URL: "https://shop.example/reviews"},
		{Description: "collect stock levels", URL: "https://shop.example/stock"},
	}

	outcomes, err := pipeline.RunAll(context.Background(), specs, 2, RunOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for i, outcome := range outcomes {
		require.NotNil(t, outcome, "outcome %d", i)
		require.NotNil(t, outcome.Run, "outcome %d", i)
		assert.Equal(t, task.RunCompleted, outcome.Run.Status, "outcome %d", i)
	}
	assert.Equal(t, 3, analyzer.callCount())
}

func TestRunAllPropagatesFirstFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{task: sampleTask(), failFor: "collect reviews"}
	pipeline := newBatchPipeline(t, analyzer)

	specs := []TaskSpec{
		{Description: "collect prices", URL: "https://shop.example/catalog"},
		{Description: "collect reviews", URL: "https://shop.example/reviews"},
	}

	// Serial so the failing spec is deterministically the second run.
	outcomes, err := pipeline.RunAll(context.Background(), specs, 1, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task 2")

	require.Len(t, outcomes, 2)
	require.NotNil(t, outcomes[0])
	assert.Equal(t, task.RunCompleted, outcomes[0].Run.Status)
	// The failed spec still gets an outcome with whatever it produced.
	require.NotNil(t, outcomes[1])
	assert.Nil(t, outcomes[1].Task)
}

func TestRunAllPreservesSpecOrder(t *testing.T) {
	analyzer := &fakeAnalyzer{task: sampleTask(), echo: true}
	pipeline := newBatchPipeline(t, analyzer)

	specs := make([]TaskSpec, 8)
	for i := range specs {
		specs[i] = TaskSpec{
			Description: fmt.Sprintf("collect shelf %d", i),
			URL:         "https://shop.example/catalog",
		}
	}

	outcomes, err := pipeline.RunAll(context.Background(), specs, 4, RunOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, len(specs))

	for i, outcome := range outcomes {
		require.NotNil(t, outcome.Task, "outcome %d", i)
		assert.Equal(t, specs[i].Description, outcome.Task.Description, "outcome %d", i)
	}
}

func TestRunAllZeroParallelismRunsSerially(t *testing.T) {
	pipeline := newBatchPipeline(t, &fakeAnalyzer{task: sampleTask()})

	specs := []TaskSpec{
		{Description: "collect prices", URL: "https://shop.example/catalog"},
	}

	outcomes, err := pipeline.RunAll(context.Background(), specs, 0, RunOptions{})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, task.RunCompleted, outcomes[0].Run.Status)
}

func TestRunAllEmptySpecs(t *testing.T) {
	pipeline := newBatchPipeline(t, &fakeAnalyzer{task: sampleTask()})

	outcomes, err := pipeline.RunAll(context.Background(), nil, 4, RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
