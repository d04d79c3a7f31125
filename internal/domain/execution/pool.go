package execution

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/rigup/internal/domain/capability"
)

// DefaultWorkers is the worker count used when the user does not set
// --concurrency.
const DefaultWorkers = 4

// ApplyFunc processes one item and reports what happened. It must
// never panic across the pool boundary; item failures travel inside
// the ItemResult.
type ApplyFunc func(ctx context.Context, item capability.Item) capability.ItemResult

// Pool runs item batches on a bounded number of workers.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker bound. Values below 1
// fall back to DefaultWorkers.
func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pool{workers: workers}
}

// Workers returns the worker bound.
func (p *Pool) Workers() int {
	return p.workers
}

// Run applies fn to every item and returns the results in input
// order. Behavior under pressure:
//
//   - onDone fires as each item finishes, from a single collector
//     goroutine. The completion channel is buffered to the batch size,
//     so a slow onDone never blocks a worker.
//   - One item failing never cancels its siblings.
//   - Cancelling ctx stops dispatching new items; items already
//     running finish undisturbed, and items never dispatched are
//     omitted from the returned slice.
func (p *Pool) Run(ctx context.Context, items []capability.Item, fn ApplyFunc, onDone func(capability.ItemResult)) []capability.ItemResult {
	if len(items) == 0 {
		return nil
	}

	workers := p.workers
	if workers > len(items) {
		workers = len(items)
	}

	type indexed struct {
		idx int
		res capability.ItemResult
	}

	tasks := make(chan int)
	finished := make(chan indexed, len(items))

	// In-flight items must finish even after ctx is cancelled; only
	// dispatch observes the cancellation.
	itemCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				finished <- indexed{idx: idx, res: fn(itemCtx, items[idx])}
			}
		}()
	}

	results := make([]capability.ItemResult, len(items))
	seen := make([]bool, len(items))

	var collector sync.WaitGroup
	collector.Add(1)
	go func() {
		defer collector.Done()
		for f := range finished {
			results[f.idx] = f.res
			seen[f.idx] = true
			if onDone != nil {
				onDone(f.res)
			}
		}
	}()

dispatch:
	for i := range items {
		select {
		case <-ctx.Done():
			break dispatch
		case tasks <- i:
		}
	}
	close(tasks)
	wg.Wait()
	close(finished)
	collector.Wait()

	out := make([]capability.ItemResult, 0, len(items))
	for i := range items {
		if seen[i] {
			out = append(out, results[i])
		}
	}
	return out
}
