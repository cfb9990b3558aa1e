// Package engine drives a Labcodeset transform run.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	lcs "github.com/gofhir/labcodeset"
	"github.com/gofhir/labcodeset/generator"
	"github.com/gofhir/labcodeset/pipeline"
	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/pkg/logger"
	"github.com/gofhir/labcodeset/publication"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/worker"
)

// Lookup is the per-run terminology cache shared by the generators and the
// prefetch pool.
type Lookup interface {
	generator.Lookup
	worker.Resolver
}

var _ pipeline.Observer = (*lcs.Metrics)(nil)

// Transformer turns a publication into FHIR terminology resources.
// It coordinates the generators and keeps no run state of its own. The
// lookup it is given does: a Transformer reused for several runs shares
// that cache, so a lookup fallback is resolved and reported only in the
// first run that needs it. Use a new lookup per run for self-contained
// diagnostics.
type Transformer struct {
	// Configuration
	options *lcs.Options

	// Collaborators
	lookup Lookup
	common generator.CommonUnitsSource

	log zerolog.Logger
}

// New creates a Transformer resolving lookups through lookup and the common
// UCUM units through common. A nil common source adds no common units.
func New(lookup Lookup, common generator.CommonUnitsSource, opts ...lcs.Option) *Transformer {
	options := lcs.Apply(opts...)
	return &Transformer{
		options: options,
		lookup:  lookup,
		common:  common,
		log:     logger.Component(options.Logger, "engine"),
	}
}

// Options returns the run configuration.
func (t *Transformer) Options() *lcs.Options {
	return t.options
}

// Metrics returns the run metrics, or nil when metrics are disabled.
func (t *Transformer) Metrics() *lcs.Metrics {
	return t.options.Metrics
}

// buildPipeline registers the generators in output order.
func (t *Transformer) buildPipeline() *pipeline.Pipeline {
	pipe := pipeline.NewPipeline(&pipeline.Options{
		ParallelExecution: t.options.ParallelGenerators,
		GeneratorTimeout:  t.options.GeneratorTimeout,
	})
	pipe.Register(
		generator.NewLoinc(t.lookup),
		generator.NewUnits(t.common),
		generator.NewMaterials(t.lookup),
		generator.NewOutcomes(),
	)
	if t.options.Metrics != nil {
		pipe.SetObserver(t.options.Metrics)
	}
	return pipe
}

// Run transforms pub against LOINC release loincVersion.
//
// On a fatal error Run returns the error together with a partial result
// holding the resources of the generators that completed and every issue
// raised so far. The partial result carries no bundle.
func (t *Transformer) Run(ctx context.Context, pub *publication.Publication, loincVersion string) (*Result, error) {
	if err := lcs.ValidateLoincVersion(loincVersion); err != nil {
		return nil, err
	}

	start := time.Now()
	issues := t.options.Issues
	if issues == nil {
		issues = issue.NewCollector(t.log)
	}
	// The collector may outlive the run; only this run's issues are reported.
	mark := issues.Len()
	pctx := pipeline.NewContext(pub, loincVersion, issues)

	result := &Result{
		Version:      pctx.Version,
		LoincVersion: loincVersion,
	}
	defer func() {
		result.Issues = issues.Since(mark)
		result.Duration = time.Since(start)
		t.options.Metrics.RecordIssues(result.Issues)
		t.options.Metrics.RecordResources(result.Resources)
	}()

	t.log.Info().
		Str("version", pctx.Version).
		Str("loinc_version", loincVersion).
		Int("concepts", len(pub.LabConcepts)).
		Int("materials", len(pub.Materials)).
		Int("units", len(pub.Units)).
		Int("material_codes", pctx.Tables.MaterialCount()).
		Msg("starting transform")

	if err := t.prefetch(ctx, pub, loincVersion); err != nil {
		return result, err
	}

	pipe := t.buildPipeline()
	t.log.Debug().
		Strs("generators", pipe.Names()).
		Bool("parallel", t.options.ParallelGenerators).
		Msg("running generators")

	out, err := pipe.Execute(ctx, pctx)
	if out != nil {
		asm := resource.NewAssembler(pctx.Version)
		asm.Add(out.Entries...)
		result.Resources = asm.Entries()
		result.Completed = out.Completed
		if err == nil {
			result.Bundle = asm.Bundle()
		}
	}
	if err != nil {
		t.log.Error().Err(err).
			Bool("data_integrity", generator.IsDataIntegrity(err)).
			Strs("completed", result.Completed).
			Msg("transform failed")
		return result, err
	}

	t.log.Info().
		Int("resources", len(result.Resources)).
		Int("warnings", issue.CountSeverity(issues.Since(mark), issue.SeverityWarning)).
		Dur("took", time.Since(start)).
		Msg("transform complete")
	return result, nil
}

// RunFile loads the publication at path and runs it.
func (t *Transformer) RunFile(ctx context.Context, path, loincVersion string) (*Result, error) {
	pub, err := publication.Load(path)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, pub, loincVersion)
}

// prefetch warms the lookup cache when prefetch workers are configured.
// Parallel generators always prefetch: the jobs carry the fallback display
// of a sequential run, which concurrent generators would otherwise race for.
func (t *Transformer) prefetch(ctx context.Context, pub *publication.Publication, loincVersion string) error {
	workers := t.options.PrefetchWorkers
	if workers <= 0 {
		if !t.options.ParallelGenerators {
			return nil
		}
		workers = runtime.NumCPU()
	}

	jobs := PrefetchJobs(pub, loincVersion)
	br := worker.Prefetch(ctx, t.lookup, jobs, workers)
	t.log.Debug().
		Int("jobs", br.TotalJobs).
		Int("failed", br.FailedJobs).
		Dur("lookup_time", time.Duration(br.TotalDuration)).
		Msg("prefetch done")

	if err := br.Err(); err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}
	return nil
}
