package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/terminology"
)

// mockResolver implements the Resolver interface for testing.
type mockResolver struct {
	displayCalls atomic.Int32
	propCalls    atomic.Int32
	delay        time.Duration
	err          error
}

func (m *mockResolver) wait(ctx context.Context) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *mockResolver) ResolveDisplay(ctx context.Context, _, _, _, fallback string) (string, error) {
	m.displayCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return fallback, nil
}

func (m *mockResolver) ResolveAllProperties(ctx context.Context, _, _, _ string) ([]terminology.Property, error) {
	m.propCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return nil, nil
}

func drain(p *Pool) <-chan []*JobResult {
	out := make(chan []*JobResult, 1)
	go func() {
		var results []*JobResult
		for r := range p.Results() {
			results = append(results, r)
		}
		out <- results
	}()
	return out
}

func propJobs(n int) []Job {
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = PropertiesJob(fmt.Sprintf("%d-%d", 1000+i, i%10), "http://loinc.org", "2.72")
	}
	return jobs
}

func TestPool_NewPool(t *testing.T) {
	pool := NewPool(context.Background(), &mockResolver{}, 2)
	defer pool.Close()

	if pool.workers != 2 {
		t.Errorf("workers = %d; want 2", pool.workers)
	}
}

func TestPool_DefaultWorkers(t *testing.T) {
	pool := NewPool(context.Background(), &mockResolver{}, 0)
	defer pool.Close()

	if pool.workers <= 0 {
		t.Errorf("workers = %d; want > 0", pool.workers)
	}
}

func TestPool_SubmitAndReceive(t *testing.T) {
	resolver := &mockResolver{}
	pool := NewPool(context.Background(), resolver, 2)
	results := drain(pool)

	if !pool.Submit(DisplayJob("119364003", "http://snomed.info/sct", "nl", "Serum")) {
		t.Fatal("Submit() = false; want true")
	}
	if !pool.Submit(PropertiesJob("2345-7", "http://loinc.org", "2.72")) {
		t.Fatal("Submit() = false; want true")
	}
	pool.Close()

	got := <-results
	if len(got) != 2 {
		t.Fatalf("results = %d; want 2", len(got))
	}
	for _, r := range got {
		if r.Error != nil {
			t.Errorf("job %s: unexpected error %v", r.ID, r.Error)
		}
	}
	if resolver.displayCalls.Load() != 1 || resolver.propCalls.Load() != 1 {
		t.Errorf("calls = %d display, %d properties; want 1 each", resolver.displayCalls.Load(), resolver.propCalls.Load())
	}
}

func TestPool_SubmitToClosedPool(t *testing.T) {
	pool := NewPool(context.Background(), &mockResolver{}, 1)
	pool.Close()

	if pool.Submit(PropertiesJob("1", "s", "v")) {
		t.Error("Submit() on closed pool = true; want false")
	}
}

func TestPool_DoubleClose(t *testing.T) {
	pool := NewPool(context.Background(), &mockResolver{}, 1)
	pool.Close()
	pool.Close() // must not panic
}

func TestPool_NilResolver(t *testing.T) {
	pool := NewPool(context.Background(), nil, 1)
	results := drain(pool)
	pool.Submit(PropertiesJob("1", "s", "v"))
	pool.Close()

	got := <-results
	if len(got) != 1 || !errors.Is(got[0].Error, ErrNoResolver) {
		t.Fatalf("results = %+v; want one ErrNoResolver", got)
	}
}

func TestPool_UnknownKind(t *testing.T) {
	pool := NewPool(context.Background(), &mockResolver{}, 1)
	results := drain(pool)
	pool.Submit(Job{Kind: Kind(42)})
	pool.Close()

	got := <-results
	if len(got) != 1 || !errors.Is(got[0].Error, ErrUnknownKind) {
		t.Fatalf("results = %+v; want one ErrUnknownKind", got)
	}
}

func TestPool_Stats(t *testing.T) {
	pool := NewPool(context.Background(), &mockResolver{err: errors.New("boom")}, 2)
	results := drain(pool)
	for _, job := range propJobs(5) {
		pool.Submit(job)
	}
	pool.Close()
	<-results

	stats := pool.Stats()
	if stats.Workers != 2 {
		t.Errorf("Workers = %d; want 2", stats.Workers)
	}
	if stats.JobsSubmitted != 5 || stats.JobsCompleted != 5 {
		t.Errorf("submitted/completed = %d/%d; want 5/5", stats.JobsSubmitted, stats.JobsCompleted)
	}
	if stats.JobsFailed != 5 {
		t.Errorf("JobsFailed = %d; want 5", stats.JobsFailed)
	}
}

func TestJob_ID(t *testing.T) {
	tests := []struct {
		job  Job
		want string
	}{
		{DisplayJob("119364003", "http://snomed.info/sct", "nl", "Serum"), "display:http://snomed.info/sct|nl|119364003"},
		{PropertiesJob("2345-7", "http://loinc.org", "2.72"), "properties:http://loinc.org|2.72|2345-7"},
		{Job{Kind: Kind(7)}, "kind(7):||"},
	}

	for _, tt := range tests {
		if got := tt.job.ID(); got != tt.want {
			t.Errorf("ID() = %q; want %q", got, tt.want)
		}
	}
}

func TestPrefetch_EmptyBatch(t *testing.T) {
	br := Prefetch(context.Background(), &mockResolver{}, nil, 4)
	if br.TotalJobs != 0 || len(br.Results) != 0 {
		t.Errorf("BatchResult = %+v; want empty", br)
	}
	if br.HasErrors() || br.Err() != nil {
		t.Error("empty batch should have no errors")
	}
}

func TestPrefetch_SmallBatch(t *testing.T) {
	resolver := &mockResolver{}
	br := Prefetch(context.Background(), resolver, propJobs(2), 4)

	if br.CompletedJobs != 2 {
		t.Errorf("CompletedJobs = %d; want 2", br.CompletedJobs)
	}
	if resolver.propCalls.Load() != 2 {
		t.Errorf("calls = %d; want 2", resolver.propCalls.Load())
	}
}

func TestPrefetch_ParallelExecution(t *testing.T) {
	resolver := &mockResolver{delay: 20 * time.Millisecond}
	start := time.Now()
	br := Prefetch(context.Background(), resolver, propJobs(20), 10)
	elapsed := time.Since(start)

	if br.CompletedJobs != 20 || br.FailedJobs != 0 {
		t.Errorf("completed/failed = %d/%d; want 20/0", br.CompletedJobs, br.FailedJobs)
	}
	if len(br.Results) != 20 {
		t.Errorf("results = %d; want 20", len(br.Results))
	}
	// Sequential execution would take 400ms.
	if elapsed > 300*time.Millisecond {
		t.Errorf("prefetch took %v; want parallel execution", elapsed)
	}
}

func TestPrefetch_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	br := Prefetch(context.Background(), &mockResolver{err: boom}, propJobs(6), 3)

	if !br.HasErrors() {
		t.Fatal("HasErrors() = false; want true")
	}
	if br.FailedJobs != 6 {
		t.Errorf("FailedJobs = %d; want 6", br.FailedJobs)
	}
	if !errors.Is(br.Err(), boom) {
		t.Errorf("Err() = %v; want to wrap %v", br.Err(), boom)
	}
}

func TestPrefetch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	br := Prefetch(ctx, &mockResolver{}, propJobs(10), 2)
	if !errors.Is(br.Err(), context.Canceled) {
		t.Errorf("Err() = %v; want context.Canceled", br.Err())
	}
}

// countingClient counts remote calls behind a real lookup cache.
type countingClient struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingClient) LookupDisplay(_ context.Context, code, _, _ string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["display:"+code]++
	return "display " + code, nil
}

func (c *countingClient) LookupProperties(_ context.Context, code, _, _ string) ([]terminology.Property, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["properties:"+code]++
	time.Sleep(5 * time.Millisecond)
	return []terminology.Property{{Name: "CLASS", Value: "CHEM"}}, nil
}

func TestPrefetch_WarmsLookupCache(t *testing.T) {
	client := &countingClient{calls: map[string]int{}}
	lookup := terminology.NewLookupCache(client, terminology.WithIssues(issue.NewCollector(zerolog.Nop())))

	// The same key submitted many times reaches the server once.
	jobs := make([]Job, 0, 40)
	for i := 0; i < 20; i++ {
		jobs = append(jobs, PropertiesJob("2345-7", "http://loinc.org", "2.72"))
		jobs = append(jobs, DisplayJob("119364003", "http://snomed.info/sct", "nl", "Serum"))
	}
	br := Prefetch(context.Background(), lookup, jobs, 8)
	if err := br.Err(); err != nil {
		t.Fatal(err)
	}

	if client.calls["properties:2345-7"] != 1 || client.calls["display:119364003"] != 1 {
		t.Errorf("remote calls = %v; want one per key", client.calls)
	}

	// Later lookups are answered from the cache.
	if _, err := lookup.ResolveAllProperties(context.Background(), "2345-7", "http://loinc.org", "2.72"); err != nil {
		t.Fatal(err)
	}
	if client.calls["properties:2345-7"] != 1 {
		t.Errorf("properties calls = %d; want 1", client.calls["properties:2345-7"])
	}
}
