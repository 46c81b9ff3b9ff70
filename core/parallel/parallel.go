// Package parallel splits index ranges across CPU cores.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the number of items below which work stays on the calling goroutine.
const DefaultThreshold = 1000

// chunks returns [start, end) ranges covering items, one per worker.
func chunks(items, workers int) [][2]int {
	if items <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > items {
		workers = items
	}

	// ceiling division so that the last chunk is never larger than the others
	size := (items + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < items; start += size {
		end := start + size
		if end > items {
			end = items
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// Parallelize runs fn over the range [0, items) split into one chunk per CPU core
// and waits for every chunk to finish.
func Parallelize(items int, fn func(start, end int)) {
	_ = ParallelizeErr(items, func(start, end int) error {
		fn(start, end)
		return nil
	})
}

// ParallelizeErr is Parallelize for chunk functions that can fail.
// It returns the first error reported by any chunk.
func ParallelizeErr(items int, fn func(start, end int) error) error {
	var g errgroup.Group
	for _, c := range chunks(items, runtime.NumCPU()) {
		start, end := c[0], c[1]
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold.
// Below the threshold fn is called once with the full range.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
