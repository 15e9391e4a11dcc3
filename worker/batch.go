package worker

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/gofhir/txclient/valueset"
)

// Checker tests one term for membership. *valueset.Resource implements it.
type Checker interface {
	ContainsTerm(ctx context.Context, t valueset.Term) (bool, error)
}

// Batch checks terms against one ValueSet with a bounded number of
// concurrent requests.
type Batch struct {
	checker Checker
	workers int
}

// NewBatch creates a batch runner. workers <= 0 uses runtime.NumCPU().
func NewBatch(checker Checker, workers int) *Batch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Batch{
		checker: checker,
		workers: workers,
	}
}

// Workers returns the maximum number of concurrent checks.
func (b *Batch) Workers() int {
	return b.workers
}

// Run checks every term and waits for all of them. After ctx is canceled,
// remaining terms are not sent and carry ctx.Err().
func (b *Batch) Run(ctx context.Context, terms []valueset.Term) *BatchResult {
	start := time.Now()
	result := &BatchResult{
		Results:   make([]*JobResult, len(terms)),
		TotalJobs: len(terms),
	}
	if len(terms) == 0 {
		return result
	}

	// For small batches, don't use parallelism
	if len(terms) <= 2 || b.workers == 1 {
		for i, t := range terms {
			result.Results[i] = b.check(ctx, i, t)
		}
	} else {
		b.runParallel(ctx, terms, result.Results)
	}

	for _, r := range result.Results {
		if r.Skipped {
			continue
		}
		result.CompletedJobs++
		if r.Error != nil {
			result.FailedJobs++
		}
	}
	result.TotalDuration = time.Since(start)
	return result
}

func (b *Batch) runParallel(ctx context.Context, terms []valueset.Term, results []*JobResult) {
	numWorkers := min(b.workers, len(terms))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.check(ctx, i, terms[i])
			}
		}()
	}

submit:
	for i := range terms {
		select {
		case <-ctx.Done():
			break submit
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	for i := range results {
		if results[i] == nil {
			results[i] = &JobResult{Index: i, Term: terms[i], Error: ctx.Err(), Skipped: true}
		}
	}
}

func (b *Batch) check(ctx context.Context, i int, t valueset.Term) *JobResult {
	if err := ctx.Err(); err != nil {
		return &JobResult{Index: i, Term: t, Error: err, Skipped: true}
	}
	start := time.Now()
	member, err := b.checker.ContainsTerm(ctx, t)
	return &JobResult{
		Index:    i,
		Term:     t,
		Member:   member && err == nil,
		Error:    err,
		Duration: time.Since(start),
	}
}
