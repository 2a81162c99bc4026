package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// BatchItem is one named request of a batch
type BatchItem struct {
	Name    string
	Request Request
}

// BatchResult is the outcome of one batch item; exactly one of Report and
// Err is set
type BatchResult struct {
	Name     string
	Request  Request
	Report   *RateReport
	Err      error
	Duration time.Duration
}

// BatchProgress tracks live progress of a batch
type BatchProgress struct {
	Total     int64
	Completed int64
	Failed    int64
}

// Done returns the number of finished items
func (p BatchProgress) Done() int64 {
	return p.Completed + p.Failed
}

// BatchExecutor runs independent estimations in parallel. Each pass builds
// its own Source, so items never share mutable state.
type BatchExecutor struct {
	calc       *Calculator
	maxWorkers int
}

// NewBatchExecutor creates an executor; workers <= 0 defaults to 4
func NewBatchExecutor(calc *Calculator, workers int) *BatchExecutor {
	if workers <= 0 {
		workers = 4
	}
	return &BatchExecutor{calc: calc, maxWorkers: workers}
}

// Run estimates every item. Results keep the order of items. A failed item
// does not stop the others; cancellation leaves unstarted items with the
// context error. onProgress may be nil and is never called concurrently.
func (b *BatchExecutor) Run(ctx context.Context, items []BatchItem, onProgress func(BatchProgress)) []BatchResult {
	results := make([]BatchResult, len(items))
	if len(items) == 0 {
		return results
	}

	workers := b.maxWorkers
	if len(items) < workers {
		workers = len(items)
	}

	work := make(chan int, len(items))
	for i := range items {
		work <- i
	}
	close(work)

	progress := BatchProgress{Total: int64(len(items))}
	var progressMu sync.Mutex
	report := func() {
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		onProgress(BatchProgress{
			Total:     progress.Total,
			Completed: atomic.LoadInt64(&progress.Completed),
			Failed:    atomic.LoadInt64(&progress.Failed),
		})
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				item := items[i]
				results[i] = BatchResult{Name: item.Name, Request: item.Request}

				if err := ctx.Err(); err != nil {
					results[i].Err = err
					atomic.AddInt64(&progress.Failed, 1)
					report()
					continue
				}

				start := time.Now()
				r, err := b.calc.Estimate(ctx, item.Request)
				results[i].Duration = time.Since(start)
				if err != nil {
					results[i].Err = err
					atomic.AddInt64(&progress.Failed, 1)
				} else {
					results[i].Report = r
					atomic.AddInt64(&progress.Completed, 1)
				}
				report()
			}
		}()
	}
	wg.Wait()
	return results
}
