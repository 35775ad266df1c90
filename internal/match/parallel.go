package match

import (
	"runtime"
	"sync"
)

// chunkSize is the number of identifiers handed to a worker at a time.
const chunkSize = 4096

// WorkItem holds a contiguous slice of identifiers to evaluate.
type WorkItem struct {
	Seq int
	IDs []string
}

// WorkResult holds the findings produced for one WorkItem.
type WorkResult struct {
	Seq      int
	Findings []*Finding
}

// matchParallel partitions ids into chunks and evaluates them on m.workers
// goroutines. Findings are merged in chunk order.
func (m *Matcher) matchParallel(ids []string, eval func(string) *Finding) []*Finding {
	items := make(chan WorkItem, 2*m.workers)
	go func() {
		defer close(items)
		seq := 0
		for start := 0; start < len(ids); start += chunkSize {
			end := min(start+chunkSize, len(ids))
			items <- WorkItem{Seq: seq, IDs: ids[start:end]}
			seq++
		}
	}()

	results := ParallelEvaluate(items, m.workers, eval)

	var findings []*Finding
	OrderedCollect(results, func(r WorkResult) {
		findings = append(findings, r.Findings...)
	})
	return findings
}

// ParallelEvaluate evaluates work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func ParallelEvaluate(items <-chan WorkItem, workers int, eval func(string) *Finding) <-chan WorkResult {
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
				var found []*Finding
				for _, id := range item.IDs {
					if f := eval(id); f != nil {
						found = append(found, f)
					}
				}
				results <- WorkResult{Seq: item.Seq, Findings: found}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult)) {
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
			fn(rr)
		}
	}
}
