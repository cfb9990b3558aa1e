package labcodeset

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/labcodeset/pkg/issue"
)

// Option configures a transform run.
type Option func(*Options)

// Options holds all configuration for a transform run.
type Options struct {
	// Execution
	ParallelGenerators bool
	GeneratorTimeout   time.Duration

	// PrefetchWorkers is the number of workers warming the lookup cache
	// before generation. Zero disables the prefetch.
	PrefetchWorkers int

	// Collaborators
	Logger  zerolog.Logger
	Issues  *issue.Collector
	Metrics *Metrics
}

// DefaultOptions returns the default configuration: generators run one
// after the other and nothing is prefetched.
func DefaultOptions() *Options {
	return &Options{
		ParallelGenerators: false,
		GeneratorTimeout:   0, // no timeout
		PrefetchWorkers:    0,
		Logger:             zerolog.Nop(),
	}
}

// WithParallelGenerators runs the generators concurrently. Output order is
// unchanged.
func WithParallelGenerators(enable bool) Option {
	return func(o *Options) {
		o.ParallelGenerators = enable
	}
}

// WithGeneratorTimeout bounds the time a single generator may take.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.GeneratorTimeout = d
	}
}

// WithPrefetchWorkers warms the lookup cache with n workers before the
// generators run. A negative n uses runtime.NumCPU().
func WithPrefetchWorkers(n int) Option {
	return func(o *Options) {
		if n < 0 {
			n = runtime.NumCPU()
		}
		o.PrefetchWorkers = n
	}
}

// WithLogger sets the run logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = log
	}
}

// WithIssues sets the collector receiving run diagnostics. Pass the same
// collector to the lookup cache so lookup warnings end up in the result.
func WithIssues(col *issue.Collector) Option {
	return func(o *Options) {
		o.Issues = col
	}
}

// WithMetrics enables run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// FastOptions returns options for large publications: parallel generators
// and a prefetch worker per CPU.
func FastOptions() []Option {
	return []Option{
		WithParallelGenerators(true),
		WithPrefetchWorkers(runtime.NumCPU()),
	}
}

// Apply returns DefaultOptions with opts applied.
func Apply(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
