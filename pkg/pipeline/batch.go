package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// TaskSpec describes one task in a batch run.
type TaskSpec struct {
	// Description is the natural-language task description.
	Description string `json:"description" yaml:"description"`

	// URL is the target page. Empty leaves the analyzer to read the
	// target out of the description.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// RunAll executes the given specs with at most parallelism concurrent
// runs. Outcomes come back in spec order; a failed run's entry carries
// whatever it produced before failing. The first failure cancels the
// context shared by the remaining runs and is returned, annotated with
// the task's position in the batch.
func (p *Pipeline) RunAll(ctx context.Context, specs []TaskSpec, parallelism int, opts RunOptions) ([]*Outcome, error) {
	if parallelism <= 0 {
		parallelism = 1
	}

	outcomes := make([]*Outcome, len(specs))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	for i, spec := range specs {
		group.Go(func() error {
			outcome, err := p.Run(ctx, spec.Description, spec.URL, opts)
			outcomes[i] = outcome
			if err != nil {
				return fmt.Errorf("task %d: %w", i+1, err)
			}
			return nil
		})
	}

	err := group.Wait()
	return outcomes, err
}
