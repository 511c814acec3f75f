package imageflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchItem pairs one batch request with its outcome. Err is a *Failure for
// requests that were denied or failed; exactly one of Result and Err is set.
type BatchItem struct {
	Result *Result
	Err    error
}

// ExecuteBatch runs the requests concurrently with a bounded worker count.
// Each request goes through admission and retry independently, so one
// denial or failure never aborts its siblings. Results come back in request
// order.
func (o *Orchestrator) ExecuteBatch(ctx context.Context, reqs []*Request) []BatchItem {
	items := make([]BatchItem, len(reqs))

	g := new(errgroup.Group)
	g.SetLimit(o.batchConcurrency)

	for i, req := range reqs {
		g.Go(func() error {
			result, err := o.Execute(ctx, req)
			items[i] = BatchItem{Result: result, Err: err}
			return nil
		})
	}

	// Workers report through items, never through group errors.
	_ = g.Wait()

	return items
}
