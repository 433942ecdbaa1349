package decompile

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// DecompileAll runs targets on at most maxParallel goroutines and returns
// the results in target order. Requests are independent: one failure does
// not stop the others. Once ctx is done, requests that have not started
// yet come back cancelled without launching anything.
func (o *Orchestrator) DecompileAll(ctx context.Context, targets []Target, maxParallel int) []Result {
	if maxParallel < 1 {
		maxParallel = 1
	}
	results := make([]Result, len(targets))

	p := pool.New().WithMaxGoroutines(maxParallel)
	for i, t := range targets {
		p.Go(func() {
			if ctx.Err() != nil {
				results[i] = o.cancelled(t)
				results[i].Target = t
				return
			}
			results[i] = o.Decompile(ctx, t)
		})
	}
	p.Wait()
	return results
}
