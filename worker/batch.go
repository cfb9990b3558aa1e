package worker

import (
	"context"
	"runtime"
)

// sequentialThreshold is the batch size below which jobs run inline.
const sequentialThreshold = 2

// Prefetch runs jobs on workers goroutines and waits for all of them.
// If workers <= 0, it defaults to runtime.NumCPU().
func Prefetch(ctx context.Context, resolver Resolver, jobs []Job, workers int) *BatchResult {
	if len(jobs) == 0 {
		return &BatchResult{
			Results: make([]*JobResult, 0),
		}
	}

	if len(jobs) <= sequentialThreshold {
		return prefetchSequential(ctx, resolver, jobs)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	return prefetchParallel(ctx, resolver, jobs, workers)
}

func prefetchSequential(ctx context.Context, resolver Resolver, jobs []Job) *BatchResult {
	p := &Pool{resolver: resolver, ctx: ctx}
	br := &BatchResult{
		Results:   make([]*JobResult, 0, len(jobs)),
		TotalJobs: len(jobs),
	}

	for _, job := range jobs {
		result := p.processJob(job)
		br.Results = append(br.Results, result)
		br.CompletedJobs++
		br.TotalDuration += result.Duration
		if result.Error != nil {
			br.FailedJobs++
		}
	}
	return br
}

func prefetchParallel(ctx context.Context, resolver Resolver, jobs []Job, workers int) *BatchResult {
	pool := NewPool(ctx, resolver, workers)

	// Collect results while submitting
	results := make([]*JobResult, 0, len(jobs))
	done := make(chan struct{})
	go func() {
		for r := range pool.Results() {
			results = append(results, r)
		}
		close(done)
	}()

	for _, job := range jobs {
		if !pool.Submit(job) {
			break
		}
	}
	pool.Close()
	<-done

	stats := pool.Stats()
	br := &BatchResult{
		Results:       results,
		TotalJobs:     len(jobs),
		CompletedJobs: int(stats.JobsCompleted),
		FailedJobs:    int(stats.JobsFailed),
		TotalDuration: int64(pool.totalDuration.Load()),
	}
	if skipped := len(jobs) - int(stats.JobsSubmitted); skipped > 0 {
		// The context ended before every job was queued.
		br.Results = append(br.Results, &JobResult{ID: "prefetch", Error: ctx.Err()})
		br.FailedJobs++
	}
	return br
}
