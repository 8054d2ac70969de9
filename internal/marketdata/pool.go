package marketdata

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runBounded runs n independent units of work through fn, bounded at
// workers concurrent goroutines, matching spec section 5's "bounded
// worker pool for per-batch or per-symbol fetches."
func runBounded(ctx context.Context, workers, n int, fn func(i int) error) error {
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(i)
		})
	}
	return g.Wait()
}
