package illum

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunk is the number of points handed to a worker at once.
const chunk = 64

// parallelFor calls fn over [0, n) split in chunks run by at most workers
// goroutines. fn must only write to its own index range.
func parallelFor(n, workers int, fn func(lo, hi int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n <= chunk || workers == 1 {
		fn(0, n)
		return
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	g.Wait() // workers never fail
}
