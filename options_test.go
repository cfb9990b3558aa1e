package labcodeset

import (
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/labcodeset/pkg/issue"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.ParallelGenerators {
		t.Error("ParallelGenerators should be false by default")
	}
	if opts.PrefetchWorkers != 0 {
		t.Errorf("PrefetchWorkers = %d; want 0", opts.PrefetchWorkers)
	}
	if opts.GeneratorTimeout != 0 {
		t.Errorf("GeneratorTimeout = %v; want 0", opts.GeneratorTimeout)
	}
	if opts.Issues != nil || opts.Metrics != nil {
		t.Error("collaborators should be unset by default")
	}
}

func TestWithParallelGenerators(t *testing.T) {
	opts := Apply(WithParallelGenerators(true))
	if !opts.ParallelGenerators {
		t.Error("ParallelGenerators should be true")
	}
}

func TestWithGeneratorTimeout(t *testing.T) {
	opts := Apply(WithGeneratorTimeout(30 * time.Second))
	if opts.GeneratorTimeout != 30*time.Second {
		t.Errorf("GeneratorTimeout = %v; want 30s", opts.GeneratorTimeout)
	}
}

func TestWithPrefetchWorkers(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{"disabled", 0, 0},
		{"explicit", 4, 4},
		{"negative uses cpu count", -1, runtime.NumCPU()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Apply(WithPrefetchWorkers(tt.n))
			if opts.PrefetchWorkers != tt.want {
				t.Errorf("PrefetchWorkers = %d; want %d", opts.PrefetchWorkers, tt.want)
			}
		})
	}
}

func TestWithCollaborators(t *testing.T) {
	col := issue.NewCollector(zerolog.Nop())
	m := NewMetrics()

	opts := Apply(WithIssues(col), WithMetrics(m), WithLogger(zerolog.Nop()))
	if opts.Issues != col {
		t.Error("Issues not set")
	}
	if opts.Metrics != m {
		t.Error("Metrics not set")
	}
}

func TestFastOptions(t *testing.T) {
	opts := Apply(FastOptions()...)
	if !opts.ParallelGenerators {
		t.Error("FastOptions should enable parallel generators")
	}
	if opts.PrefetchWorkers != runtime.NumCPU() {
		t.Errorf("PrefetchWorkers = %d; want %d", opts.PrefetchWorkers, runtime.NumCPU())
	}
}

func TestOptionsCombination(t *testing.T) {
	// Later options win.
	opts := Apply(WithPrefetchWorkers(2), WithPrefetchWorkers(6), WithParallelGenerators(true), WithParallelGenerators(false))
	if opts.PrefetchWorkers != 6 {
		t.Errorf("PrefetchWorkers = %d; want 6", opts.PrefetchWorkers)
	}
	if opts.ParallelGenerators {
		t.Error("ParallelGenerators should be false")
	}
}
