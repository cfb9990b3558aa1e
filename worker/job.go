package worker

import (
	"fmt"

	"github.com/gofhir/labcodeset/terminology"
)

// Kind selects the lookup a job performs.
type Kind int

// Job kinds.
const (
	KindDisplay Kind = iota
	KindProperties
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindDisplay:
		return "display"
	case KindProperties:
		return "properties"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Job is one lookup to resolve ahead of generation.
type Job struct {
	Kind Kind
	Key  terminology.Key

	// Fallback is the display cached when the server does not know the
	// code. Only used by display jobs.
	Fallback string
}

// DisplayJob returns a job resolving the display of code.
func DisplayJob(code, system, version, fallback string) Job {
	return Job{
		Kind:     KindDisplay,
		Key:      terminology.Key{Code: code, System: system, Version: version},
		Fallback: fallback,
	}
}

// PropertiesJob returns a job resolving all properties of code.
func PropertiesJob(code, system, version string) Job {
	return Job{
		Kind: KindProperties,
		Key:  terminology.Key{Code: code, System: system, Version: version},
	}
}

// ID identifies the job in results and logs.
func (j Job) ID() string {
	return j.Kind.String() + ":" + j.Key.String()
}

// JobResult represents the result of a job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Error contains any error returned by the lookup.
	Error error

	// Duration is the time taken by the lookup (in nanoseconds).
	Duration int64
}

// BatchResult aggregates results from multiple jobs.
type BatchResult struct {
	// Results contains all job results, in completion order.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs completed (including errors).
	CompletedJobs int

	// FailedJobs is the number of jobs that failed with an error.
	FailedJobs int

	// TotalDuration is the total time spent in lookups (in nanoseconds).
	TotalDuration int64
}

// HasErrors returns true if any job failed.
func (br *BatchResult) HasErrors() bool {
	return br.FailedJobs > 0
}

// Err returns nil when every job succeeded. Otherwise it reports the
// number of failures and wraps the first one.
func (br *BatchResult) Err() error {
	for _, r := range br.Results {
		if r.Error != nil {
			return fmt.Errorf("%d of %d lookups failed, first %s: %w", br.FailedJobs, br.TotalJobs, r.ID, r.Error)
		}
	}
	return nil
}
