package pipeline

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/gtex-eqtl/internal/eqtl"
)

// WorkItem holds a tissue job ready to run.
type WorkItem struct {
	Seq int
	Job Job
}

// WorkResult holds the outcome of a single job.
type WorkResult struct {
	Seq   int
	Job   Job
	Stats eqtl.Stats
	Err   error
}

// ParallelRun runs work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (r *Runner) ParallelRun(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				var (
					stats eqtl.Stats
					err   = ctx.Err()
				)
				if err == nil {
					stats, err = r.Run(ctx, item.Job)
				}
				results <- WorkResult{
					Seq:   item.Seq,
					Job:   item.Job,
					Stats: stats,
					Err:   err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// RunAll runs jobs on a pool of workers and calls fn for each result in job
// order. A failed job is reported through WorkResult.Err and does not stop
// the others; an error returned by fn does.
func (r *Runner) RunAll(ctx context.Context, jobs []Job, workers int, fn func(WorkResult) error) error {
	if workers <= 0 || workers > len(jobs) {
		workers = min(runtime.NumCPU(), max(len(jobs), 1))
	}
	items := make(chan WorkItem)
	go func() {
		defer close(items)
		for i, job := range jobs {
			items <- WorkItem{Seq: i, Job: job}
		}
	}()
	return OrderedCollect(r.ParallelRun(ctx, items, workers), fn)
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
