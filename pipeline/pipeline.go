package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gofhir/labcodeset/resource"
)

// Pipeline runs registered generators in registration order.
// Generators run one after another by default; with ParallelExecution they
// run concurrently but their output keeps registration order.
type Pipeline struct {
	generators []Generator
	options    *Options
	observer   Observer

	mu sync.RWMutex
}

// Options configures pipeline behavior.
type Options struct {
	// ParallelExecution runs all generators concurrently
	ParallelExecution bool

	// GeneratorTimeout is the maximum time for a single generator (0 = none)
	GeneratorTimeout time.Duration
}

// DefaultOptions returns the sequential defaults.
func DefaultOptions() *Options {
	return &Options{}
}

// Result holds the entries of every generator that completed.
type Result struct {
	// Entries are in registration order
	Entries []resource.Entry

	// Completed lists the names of generators that finished without error
	Completed []string
}

// NewPipeline creates an empty pipeline.
func NewPipeline(opts *Options) *Pipeline {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Pipeline{
		options:  opts,
		observer: nopObserver{},
	}
}

// Register appends generators.
func (p *Pipeline) Register(gens ...Generator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generators = append(p.generators, gens...)
}

// SetObserver sets the receiver of generator timings.
func (p *Pipeline) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	p.observer = o
}

// Names returns the registered generator names in run order.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.generators))
	for i, g := range p.generators {
		names[i] = g.Name()
	}
	return names
}

// Execute runs the generators. On error the returned Result still carries
// the entries of generators that completed.
func (p *Pipeline) Execute(ctx context.Context, pctx *Context) (*Result, error) {
	p.mu.RLock()
	gens := make([]Generator, len(p.generators))
	copy(gens, p.generators)
	p.mu.RUnlock()

	if p.options.ParallelExecution && len(gens) > 1 {
		return p.executeParallel(ctx, pctx, gens)
	}
	return p.executeSequential(ctx, pctx, gens)
}

// executeSequential stops at the first failing generator.
func (p *Pipeline) executeSequential(ctx context.Context, pctx *Context, gens []Generator) (*Result, error) {
	result := &Result{}
	for _, g := range gens {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		entries, err := p.run(ctx, pctx, g)
		if err != nil {
			return result, err
		}
		result.Entries = append(result.Entries, entries...)
		result.Completed = append(result.Completed, g.Name())
	}
	return result, nil
}

// executeParallel runs every generator concurrently. The first error cancels
// the others; output is slotted by registration index.
func (p *Pipeline) executeParallel(ctx context.Context, pctx *Context, gens []Generator) (*Result, error) {
	slots := make([][]resource.Entry, len(gens))
	done := make([]bool, len(gens))

	g, gctx := errgroup.WithContext(ctx)
	for i, gen := range gens {
		g.Go(func() error {
			entries, err := p.run(gctx, pctx, gen)
			if err != nil {
				return err
			}
			slots[i] = entries
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	result := &Result{}
	for i, gen := range gens {
		if !done[i] {
			continue
		}
		result.Entries = append(result.Entries, slots[i]...)
		result.Completed = append(result.Completed, gen.Name())
	}
	return result, err
}

// run executes a single generator with timing.
func (p *Pipeline) run(ctx context.Context, pctx *Context, g Generator) ([]resource.Entry, error) {
	genCtx := ctx
	if p.options.GeneratorTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.options.GeneratorTimeout)
		defer cancel()
	}

	start := time.Now()
	entries, err := g.Generate(genCtx, pctx)
	p.observer.ObserveGenerator(g.Name(), time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", g.Name(), err)
	}
	return entries, nil
}
