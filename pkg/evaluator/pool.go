package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runPool calls fn(i) for every i in [0, n) on at most workers goroutines.
// Indices are handed out over a channel; dispatch stops as soon as ctx is
// cancelled and ctx.Err() is returned. Cancellation seen only after the last
// index was handed out is not an error, since every fn(i) has then run.
func runPool(ctx context.Context, workers, n int, fn func(int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if workers > n {
		workers = n
	}
	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				fn(i)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- i:
			}
		}
		return nil
	})

	return g.Wait()
}
