package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofhir/labcodeset/terminology"
)

// Resolver is the lookup cache the pool warms.
type Resolver interface {
	ResolveDisplay(ctx context.Context, code, system, version, fallback string) (string, error)
	ResolveAllProperties(ctx context.Context, code, system, version string) ([]terminology.Property, error)
}

var _ Resolver = (*terminology.LookupCache)(nil)

// Pool manages a pool of worker goroutines resolving lookups.
type Pool struct {
	workers    int
	jobsChan   chan Job
	resultChan chan *JobResult
	resolver   Resolver
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	// mu guards closing jobsChan against concurrent submits.
	mu     sync.RWMutex
	closed bool

	// Metrics
	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	jobsFailed    atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool creates a new worker pool with the specified number of workers.
// If workers <= 0, it defaults to runtime.NumCPU(). Jobs run under ctx;
// once ctx is done the remaining jobs fail with its error.
func NewPool(ctx context.Context, resolver Resolver, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		workers:    workers,
		jobsChan:   make(chan Job, workers*2),
		resultChan: make(chan *JobResult, workers*2),
		resolver:   resolver,
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit submits a job to the pool for processing.
// This method blocks if the job queue is full. It returns false once the
// pool is closed or its context is done.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	}
}

// Results returns the channel for receiving job results. It is closed by
// Close once every submitted job has finished.
func (p *Pool) Results() <-chan *JobResult {
	return p.resultChan
}

// Close stops accepting jobs, waits for the queued ones and closes
// Results. Results must be drained concurrently or Close blocks.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobsChan)
	p.mu.Unlock()

	p.wg.Wait()
	close(p.resultChan)
	p.cancel()
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsCompleted: p.jobsCompleted.Load(),
		JobsFailed:    p.jobsFailed.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	JobsFailed    uint64
	AvgDuration   time.Duration
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		result := p.processJob(job)
		p.jobsCompleted.Add(1)
		if result.Error != nil {
			p.jobsFailed.Add(1)
		}
		p.totalDuration.Add(uint64(result.Duration))
		p.resultChan <- result
	}
}

func (p *Pool) processJob(job Job) *JobResult {
	start := time.Now()

	result := &JobResult{
		ID: job.ID(),
	}

	if p.resolver == nil {
		result.Error = ErrNoResolver
		result.Duration = time.Since(start).Nanoseconds()
		return result
	}
	if err := p.ctx.Err(); err != nil {
		result.Error = err
		result.Duration = time.Since(start).Nanoseconds()
		return result
	}

	k := job.Key
	switch job.Kind {
	case KindDisplay:
		_, result.Error = p.resolver.ResolveDisplay(p.ctx, k.Code, k.System, k.Version, job.Fallback)
	case KindProperties:
		_, result.Error = p.resolver.ResolveAllProperties(p.ctx, k.Code, k.System, k.Version)
	default:
		result.Error = ErrUnknownKind
	}

	result.Duration = time.Since(start).Nanoseconds()
	return result
}

func (p *Pool) averageDuration() time.Duration {
	completed := p.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}

// Pool errors.
var (
	ErrNoResolver  = poolError("no resolver configured")
	ErrUnknownKind = poolError("unknown job kind")
)

type poolError string

func (e poolError) Error() string {
	return string(e)
}
