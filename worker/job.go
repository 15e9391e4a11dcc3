package worker

import (
	"time"

	"github.com/gofhir/txclient/valueset"
)

// JobResult is the outcome of one membership check.
type JobResult struct {
	// Index is the position of the term in the input.
	Index int

	// Term is the checked term.
	Term valueset.Term

	// Member reports whether the term is in the ValueSet. It is false when
	// Error is set.
	Member bool

	// Error is the failure of the check, or the context error for checks
	// that never ran.
	Error error

	// Skipped is true when the check never ran because ctx was done.
	Skipped bool

	// Duration is the time taken by the check.
	Duration time.Duration
}

// BatchResult aggregates the checks of one Run.
type BatchResult struct {
	// Results holds one entry per input term, in input order.
	Results []*JobResult

	// TotalJobs is the number of terms submitted.
	TotalJobs int

	// CompletedJobs is the number of checks that ran, failed ones included.
	CompletedJobs int

	// FailedJobs is the number of checks that returned an error.
	FailedJobs int

	// TotalDuration is the wall time of the whole batch.
	TotalDuration time.Duration
}

// HasErrors returns true if any check failed or did not run.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r.Error != nil {
			return true
		}
	}
	return false
}

// Members returns the number of terms found in the ValueSet.
func (br *BatchResult) Members() int {
	count := 0
	for _, r := range br.Results {
		if r.Member {
			count++
		}
	}
	return count
}

// AllMembers returns true if every check succeeded and found its term.
func (br *BatchResult) AllMembers() bool {
	return !br.HasErrors() && br.Members() == len(br.Results)
}
