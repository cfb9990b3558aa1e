package pipeline

import (
	"context"

	"github.com/gofhir/labcodeset/resource"
)

// Generator produces one family of terminology resources from a publication.
//
// Generators should be:
//   - Independent: never read another generator's output
//   - Safe to run concurrently with other generators sharing the Context
//   - Fatal only through the returned error; recoverable misses go to
//     Context.Issues
type Generator interface {
	// Name returns the unique identifier for this generator.
	Name() string

	// Generate builds the generator's resources in a fixed order.
	Generate(ctx context.Context, pctx *Context) ([]resource.Entry, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc struct {
	name string
	fn   func(ctx context.Context, pctx *Context) ([]resource.Entry, error)
}

// NewGeneratorFunc creates a Generator from a function.
func NewGeneratorFunc(name string, fn func(ctx context.Context, pctx *Context) ([]resource.Entry, error)) Generator {
	return &GeneratorFunc{name: name, fn: fn}
}

// Name returns the generator name.
func (g *GeneratorFunc) Name() string {
	return g.name
}

// Generate calls the wrapped function.
func (g *GeneratorFunc) Generate(ctx context.Context, pctx *Context) ([]resource.Entry, error) {
	return g.fn(ctx, pctx)
}

// Standard generator names, in run order.
const (
	NameLoinc     = "loinc"
	NameUnits     = "ucum"
	NameMaterials = "materials"
	NameOutcomes  = "outcomes"
)

// Observer receives per-generator timings.
type Observer interface {
	ObserveGenerator(name string, seconds float64, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveGenerator(string, float64, error) {}
